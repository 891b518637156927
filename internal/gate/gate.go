// Package gate decides whether a freshly fingerprinted frame is worth the
// expensive half of the pipeline: artifact write, interpretation call, and
// durable record. It holds the baseline digest and the instant of the last
// proceeded capture, and applies the change-threshold + max-silence policy
// under exclusive access.
package gate

import (
	"log/slog"
	"time"

	"github.com/glancelog/glance/internal/fingerprint"
	"github.com/glancelog/glance/internal/syncx"
)

// state is the gate baseline: the digest of the last proceeded frame and
// when it went through. A nil digest means nothing has proceeded yet.
type state struct {
	lastDigest    []byte
	lastCaptureAt time.Time
}

// Snapshot is a read-only view of the gate for status reporting.
type Snapshot struct {
	HasBaseline   bool      `json:"has_baseline"`
	LastCaptureAt time.Time `json:"last_capture_at"`
}

// Gate applies the capture policy. Construct one per scheduler; state is
// injected, not global, so independent schedulers can coexist in one
// process and in tests.
type Gate struct {
	state *syncx.RWGuard[state]
}

// New creates a gate with no baseline. The first evaluation always proceeds.
func New() *Gate {
	return &Gate{state: syncx.NewGuard(state{})}
}

// ShouldCapture evaluates a new digest against the baseline. It returns true
// when the pipeline should run: first-ever evaluation, change rate at or
// above threshold, or maxSilent elapsed since the last proceeded capture
// (heartbeat). On proceed the baseline moves to the new digest before the
// caller does any downstream work, so an overlapping evaluation of the same
// change cannot double-trigger. On reject the baseline is left untouched and
// the next evaluation still compares against it.
//
// The guard's write lock makes this the serialization point between the
// scheduled loop and manual triggers.
func (g *Gate) ShouldCapture(digest []byte, threshold float64, maxSilent time.Duration) bool {
	return g.state.Update(func(s *state) any {
		now := time.Now()

		if s.lastDigest == nil {
			s.lastDigest = digest
			s.lastCaptureAt = now
			slog.Debug("gate proceed: first capture")
			return true
		}

		rate := fingerprint.ChangeRate(s.lastDigest, digest)
		silent := now.Sub(s.lastCaptureAt)

		if rate >= threshold {
			s.lastDigest = digest
			s.lastCaptureAt = now
			slog.Debug("gate proceed: change above threshold", "rate", rate, "threshold", threshold)
			return true
		}
		if silent >= maxSilent {
			s.lastDigest = digest
			s.lastCaptureAt = now
			slog.Debug("gate proceed: heartbeat after silence", "silent", silent, "rate", rate)
			return true
		}

		slog.Debug("gate reject", "rate", rate, "threshold", threshold, "silent", silent)
		return false
	}).(bool)
}

// Snapshot reports whether a baseline exists and when the last proceeded
// capture happened.
func (g *Gate) Snapshot() Snapshot {
	s := g.state.Get()
	return Snapshot{
		HasBaseline:   s.lastDigest != nil,
		LastCaptureAt: s.lastCaptureAt,
	}
}
