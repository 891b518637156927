package capture

import (
	"context"
	"encoding/json"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glancelog/glance/internal/analysis"
	"github.com/glancelog/glance/internal/store"
)

// TestCaptureWorkflow exercises the full capture lifecycle:
// trigger (captured) → trigger same frame (skipped) → changed frame
// (captured) → today listing → status.
func TestCaptureWorkflow(t *testing.T) {
	srv := newAnalysisServer(t, `{"current_focus":"drafting a report","active_software":"writer","context_keywords":["report","q3"]}`)
	src := &fakeSource{img: makeSolidPNG(t, color.White)}
	sched, st := newTestScheduler(t, src, srv.URL, "sk-workflow")
	ctx := context.Background()

	// 1. First frame always captures.
	outcome, err := sched.Trigger(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeCaptured, outcome)

	// 2. Unchanged frame is gated out.
	outcome, err = sched.Trigger(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome)

	// 3. A visibly different frame captures again.
	src.setImage(makeSolidPNG(t, color.Black))
	outcome, err = sched.Trigger(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeCaptured, outcome)

	// 4. Both captures landed, newest first, with parseable content.
	records, err := st.TodayRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		require.Equal(t, store.SourceAuto, rec.SourceType)
		require.NotEmpty(t, rec.ScreenshotPath)

		var result analysis.Result
		require.NoError(t, json.Unmarshal([]byte(rec.Content), &result))
		require.Equal(t, "drafting a report", result.CurrentFocus)
	}
	require.Greater(t, records[0].ID, records[1].ID)

	// 5. Status reflects the last cycle.
	status := sched.Status()
	require.True(t, status.HasBaseline)
	require.Equal(t, OutcomeCaptured, status.LastOutcome)
	require.Empty(t, status.LastError)
}
