package main

import (
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerDeadlines(t *testing.T) {
	srv := newHTTPServer(":0", http.NewServeMux())

	if srv.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want none; slow interpretation calls must not drop the response", srv.WriteTimeout)
	}
	if srv.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", srv.ReadTimeout)
	}
	if srv.Addr != ":0" {
		t.Errorf("Addr = %q, want the configured address", srv.Addr)
	}
}
