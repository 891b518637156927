package screen

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"time"

	"github.com/kbinani/screenshot"
)

// displaySource reads the primary display directly through the platform's
// native graphics APIs.
type displaySource struct {
	timeout time.Duration
}

func newDisplaySource(timeout time.Duration) *displaySource {
	return &displaySource{timeout: timeout}
}

// Capture grabs display 0 and encodes it as PNG. The grab runs on its own
// goroutine so a wedged graphics call cannot stall the caller past the
// timeout.
func (s *displaySource) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active display")
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(0))
		if err != nil {
			done <- result{err: fmt.Errorf("capture display 0: %w", err)}
			return
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			done <- result{err: fmt.Errorf("encode frame: %w", err)}
			return
		}
		done <- result{data: buf.Bytes()}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.data, r.err
	}
}

func (s *displaySource) Close() {}
