// Package screen provides the screen source: one encoded frame of the
// primary display on demand. The platform backend is chosen once at startup
// by runtime detection, so everything above it stays implementation-agnostic
// and testable with a fake source.
package screen

import (
	"context"
	"runtime"
	"time"
)

// Source produces one encoded PNG frame of the primary display per call.
// A source may fail (permissions, missing display, tool errors) but must
// not hang: every grab is bounded by the source's timeout.
type Source interface {
	Capture(ctx context.Context) ([]byte, error)
	Close()
}

// DefaultTimeout bounds a single grab.
const DefaultTimeout = 10 * time.Second

// NewSource selects the backend for the current platform: the native
// screencapture tool on macOS, direct display reads everywhere else.
func NewSource(timeout time.Duration) Source {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if runtime.GOOS == "darwin" {
		return newDarwinSource(timeout)
	}
	return newDisplaySource(timeout)
}
