// Package artifact persists capture screenshots as timestamped PNG files
// and serves them back as inline data URIs.
package artifact

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/corona10/goimagehash"
)

// fileTimeLayout stamps artifact names in UTC.
const fileTimeLayout = "20060102_150405"

const dataURIPrefix = "data:image/png;base64,"

// ErrOutsideDir is returned when a requested artifact path resolves
// outside the screenshots directory.
var ErrOutsideDir = errors.New("artifact path outside screenshots directory")

// Store writes screenshots under a single directory.
type Store struct {
	dir string
}

// NewStore creates the screenshots directory under baseDir.
func NewStore(baseDir string) (*Store, error) {
	dir, err := filepath.Abs(filepath.Join(baseDir, "screenshots"))
	if err != nil {
		return nil, fmt.Errorf("resolve screenshots dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create screenshots dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the absolute screenshots directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes imageData as screenshot_YYYYMMDD_HHMMSS.png and returns the
// file path plus a perceptual hash of the image. The hash is best effort:
// undecodable data still persists, with an empty hash.
func (s *Store) Save(imageData []byte, now time.Time) (string, string, error) {
	name := "screenshot_" + now.UTC().Format(fileTimeLayout) + ".png"
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, imageData, 0o600); err != nil {
		return "", "", fmt.Errorf("write screenshot: %w", err)
	}

	return path, perceptionHash(imageData), nil
}

// DataURI re-reads a stored artifact as a data:image/png;base64 URI.
// Paths outside the screenshots directory are refused.
func (s *Store) DataURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve artifact path: %w", err)
	}
	if filepath.Dir(abs) != s.dir {
		return "", ErrOutsideDir
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return EncodeDataURI(data), nil
}

// Path resolves a bare artifact file name inside the store directory.
// Anything that would escape the directory is refused.
func (s *Store) Path(name string) (string, error) {
	p := filepath.Join(s.dir, name)
	if filepath.Dir(p) != s.dir || p == s.dir {
		return "", ErrOutsideDir
	}
	return p, nil
}

// EncodeDataURI wraps raw PNG bytes as an inline data URI.
func EncodeDataURI(imageData []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(imageData)
}

func perceptionHash(imageData []byte) string {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Debug("artifact hash skipped", "error", err)
		return ""
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		slog.Debug("artifact hash skipped", "error", err)
		return ""
	}
	return hash.ToString()
}
