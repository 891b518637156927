// Package logbuf keeps a bounded in-memory tail of the daemon's log output.
package logbuf

import (
	"strings"
	"sync"
)

// DefaultCapacity bounds how many log lines are retained.
const DefaultCapacity = 2000

// Buffer is an io.Writer that retains the most recent log lines. It is
// safe for concurrent use and meant to sit in an io.MultiWriter next to
// the process's normal log destination.
type Buffer struct {
	mu      sync.RWMutex
	lines   []string
	maxSize int
	partial string
}

// New creates a buffer holding at most capacity lines.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		lines:   make([]string, 0, capacity),
		maxSize: capacity,
	}
}

// Write implements io.Writer. Input is split on newlines; a trailing
// fragment is held back until its line completes.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.partial += string(p)
	for {
		i := strings.IndexByte(b.partial, '\n')
		if i < 0 {
			break
		}
		b.lines = append(b.lines, b.partial[:i])
		b.partial = b.partial[i+1:]
	}

	if len(b.lines) > b.maxSize {
		b.lines = b.lines[len(b.lines)-b.maxSize:]
	}
	return len(p), nil
}

// Tail returns the most recent n lines, oldest first. n <= 0 or n larger
// than the buffer returns everything retained.
func (b *Buffer) Tail(n int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.lines) {
		n = len(b.lines)
	}
	result := make([]string, n)
	copy(result, b.lines[len(b.lines)-n:])
	return result
}
