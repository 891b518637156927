package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glancelog/glance/internal/resilience"
)

// scheduleRecheck bounds how long a disabled or misconfigured summary_time
// goes unnoticed once the setting changes.
const scheduleRecheck = time.Minute

// RunDaily fires Generate at the configured summary_time (local HH:MM)
// once per day until stopCh closes. The setting is re-read every minute,
// so an empty summary_time disables the slot and changes take effect
// without a restart. The run retries transient failures because the slot
// only comes around once a day.
func (g *Generator) RunDaily(stopCh <-chan struct{}) {
	ctx := context.Background()

	for {
		wait := scheduleRecheck
		armed := false

		settings, err := g.store.Settings(ctx)
		if err != nil {
			slog.Error("summary schedule: load settings failed", "error", err)
		} else if settings.SummaryTime != "" {
			next, err := nextRun(settings.SummaryTime, time.Now())
			if err != nil {
				slog.Warn("summary schedule: bad summary_time", "summary_time", settings.SummaryTime, "error", err)
			} else if until := time.Until(next); until <= scheduleRecheck {
				// Arm exactly only inside the final window; otherwise
				// keep polling so setting changes are picked up.
				wait = until
				armed = true
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		if !armed {
			continue
		}

		err = resilience.Retry(ctx, resilience.LLMRetryConfig(), func() error {
			_, err := g.Generate(ctx)
			return err
		})
		if err != nil {
			slog.Error("daily summary failed", "error", err)
		}
	}
}

// nextRun returns the next local occurrence of the HH:MM clock time.
func nextRun(clock string, now time.Time) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse summary time %q: %w", clock, err)
	}

	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
