package screen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// darwinSource shells out to the system screencapture tool, which handles
// Retina scaling and the screen-recording permission prompt natively.
type darwinSource struct {
	tempDir string
	timeout time.Duration
}

func newDarwinSource(timeout time.Duration) *darwinSource {
	tmpDir, err := os.MkdirTemp("", "glance-screen-*")
	if err != nil {
		tmpDir = os.TempDir()
	}
	return &darwinSource{tempDir: tmpDir, timeout: timeout}
}

// Capture grabs the main display as PNG.
// -x: no sound, -t png: PNG format, -m: main display only
func (s *darwinSource) Capture(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tmpFile := filepath.Join(s.tempDir, "frame.png")
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-m", tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("screencapture: %w (stderr: %s)", err, stderr.String())
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read captured frame: %w", err)
	}
	os.Remove(tmpFile)

	return data, nil
}

// Close removes the temp directory.
func (s *darwinSource) Close() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}
