package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/glancelog/glance/internal/errors"
)

// replyWith builds a chat/completions success envelope around content.
func replyWith(content string) string {
	env := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(env)
	return string(data)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(0)
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}

	c = NewClient(5 * time.Second)
	if c.httpClient.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
	}
}

func TestAnalyzeRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-1234" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Model != "gpt-4o" {
			t.Errorf("model = %q, want %q", req.Model, "gpt-4o")
		}
		if req.MaxTokens != AnalysisMaxTokens {
			t.Errorf("max_tokens = %d, want %d", req.MaxTokens, AnalysisMaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Fatalf("messages = %+v, want one user message", req.Messages)
		}

		parts := req.Messages[0].Content
		if len(parts) != 2 {
			t.Fatalf("content parts = %d, want 2", len(parts))
		}
		if parts[0].Type != "text" || parts[0].Text == "" {
			t.Errorf("first part = %+v, want text part with prompt", parts[0])
		}
		if parts[1].Type != "image_url" || parts[1].ImageURL == nil {
			t.Fatalf("second part = %+v, want image_url part", parts[1])
		}
		if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,") {
			t.Errorf("image url should be a PNG data URI, got %q", parts[1].ImageURL.URL)
		}

		w.Write([]byte(replyWith(`{"current_focus":"writing tests","active_software":"editor","context_keywords":["go"]}`)))
	}))
	defer server.Close()

	c := NewClient(0)
	ep := Endpoint{BaseURL: server.URL + "/v1", APIKey: "sk-test-1234", Model: "gpt-4o"}

	res, err := c.Analyze(context.Background(), ep, "", []byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.CurrentFocus != "writing tests" {
		t.Errorf("CurrentFocus = %q, want %q", res.CurrentFocus, "writing tests")
	}
	if res.ActiveSoftware != "editor" {
		t.Errorf("ActiveSoftware = %q, want %q", res.ActiveSoftware, "editor")
	}
	if len(res.ContextKeywords) != 1 || res.ContextKeywords[0] != "go" {
		t.Errorf("ContextKeywords = %v, want [go]", res.ContextKeywords)
	}
}

func TestAnalyzeFencedReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"tagged fence", "```json\n{\"current_focus\":\"reviewing\",\"active_software\":\"browser\",\"context_keywords\":[]}\n```"},
		{"bare fence", "```\n{\"current_focus\":\"reviewing\",\"active_software\":\"browser\",\"context_keywords\":[]}\n```"},
		{"no fence", "{\"current_focus\":\"reviewing\",\"active_software\":\"browser\",\"context_keywords\":[]}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(replyWith(tt.content)))
			}))
			defer server.Close()

			c := NewClient(0)
			res, err := c.Analyze(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "", []byte("png"))
			if err != nil {
				t.Fatalf("Analyze error: %v", err)
			}
			if res.CurrentFocus != "reviewing" {
				t.Errorf("CurrentFocus = %q, want %q", res.CurrentFocus, "reviewing")
			}
		})
	}
}

func TestAnalyzeServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	c := NewClient(0)
	_, err := c.Analyze(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "", []byte("png"))

	var se *apperrors.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T (%v), want *errors.ServiceError", err, err)
	}
	if se.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", se.Status, http.StatusUnauthorized)
	}
	if !strings.Contains(se.Body, "bad key") {
		t.Errorf("Body = %q, should retain the service reply", se.Body)
	}
}

func TestAnalyzeUnsupportedModality(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"unknown variant ` + "`image_url`" + `, expected one of ..."}`))
	}))
	defer server.Close()

	c := NewClient(0)
	_, err := c.Analyze(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "text-only-model"}, "", []byte("png"))

	var ue *apperrors.UnsupportedModalityError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %T (%v), want *errors.UnsupportedModalityError", err, err)
	}
	if ue.Model != "text-only-model" {
		t.Errorf("Model = %q, want the configured model", ue.Model)
	}
}

func TestAnalyzeMissingContent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"no content field", `{"choices":[{"message":{"role":"assistant"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(0)
			_, err := c.Analyze(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "", []byte("png"))

			var me *apperrors.MalformedResponseError
			if !errors.As(err, &me) {
				t.Fatalf("error = %T (%v), want *errors.MalformedResponseError", err, err)
			}
		})
	}
}

func TestCompleteMissingContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant"}}]}`))
	}))
	defer server.Close()

	c := NewClient(0)
	out, err := c.Complete(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "summarize my day", SummaryMaxTokens)

	var me *apperrors.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("Complete = (%q, %v), want *errors.MalformedResponseError", out, err)
	}
	if !strings.Contains(me.Raw, "choices") {
		t.Errorf("Raw = %q, should retain the reply body", me.Raw)
	}
}

// An empty string is a reply; only an absent field is malformed.
func TestCompleteEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(replyWith("")))
	}))
	defer server.Close()

	c := NewClient(0)
	out, err := c.Complete(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "summarize my day", SummaryMaxTokens)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "" {
		t.Errorf("Complete = %q, want empty string", out)
	}
}

func TestAnalyzeMalformedReplyRetainsRaw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(replyWith("not json")))
	}))
	defer server.Close()

	c := NewClient(0)
	_, err := c.Analyze(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "", []byte("png"))

	var me *apperrors.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("error = %T (%v), want *errors.MalformedResponseError", err, err)
	}
	if me.Raw != "not json" {
		t.Errorf("Raw = %q, want the reply text retained", me.Raw)
	}
}

func TestAnalyzeTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(time.Second)
	_, err := c.Analyze(context.Background(), Endpoint{BaseURL: url, APIKey: "k", Model: "m"}, "", []byte("png"))

	var te *apperrors.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %T (%v), want *errors.TransportError", err, err)
	}
}

func TestCompleteTextOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "summarize my day" {
			t.Errorf("messages = %+v, want plain string content", req.Messages)
		}
		if req.MaxTokens != SummaryMaxTokens {
			t.Errorf("max_tokens = %d, want %d", req.MaxTokens, SummaryMaxTokens)
		}

		w.Write([]byte(replyWith("## Daily Summary\n- worked on Go")))
	}))
	defer server.Close()

	c := NewClient(0)
	out, err := c.Complete(context.Background(), Endpoint{BaseURL: server.URL, APIKey: "k", Model: "m"}, "summarize my day", SummaryMaxTokens)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if !strings.HasPrefix(out, "## Daily Summary") {
		t.Errorf("reply = %q, want raw markdown untouched", out)
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tagged", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"unwrapped", `{"a":1}`, `{"a":1}`},
		{"padded", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"single line", "```json{\"a\":1}```", `{"a":1}`},
		{"plain text", "not json", "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFence(tt.input); got != tt.want {
				t.Errorf("stripFence(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk-abc123xyz9999", "****9999"},
		{"12345", "****2345"},
		{"abcd", "****"},
		{"ab", "****"},
		{"", "****"},
	}

	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestDefaultPromptShape(t *testing.T) {
	for _, field := range []string{"current_focus", "active_software", "context_keywords"} {
		if !strings.Contains(DefaultPrompt, field) {
			t.Errorf("DefaultPrompt should instruct the model about %q", field)
		}
	}
}
