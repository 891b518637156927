// Package synthesis turns a day of records into a markdown summary.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glancelog/glance/internal/analysis"
	"github.com/glancelog/glance/internal/store"
	"github.com/glancelog/glance/internal/trace"
)

// ErrNoRecords is returned when a summary is requested for a day with no
// records.
var ErrNoRecords = errors.New("no records for today")

// ErrNoSummary is returned when no summary has been generated yet.
var ErrNoSummary = errors.New("no summary generated yet")

const promptTemplate = `You are a work journal assistant. Using today's work records below, produce a structured daily report in Markdown.

Requirements:
1. Organize entries chronologically.
2. Extract the key work items and technical keywords.
3. Summarize the day's accomplishments and any problems encountered.
4. Output pure Markdown with no extra commentary.

Today's records:
%s

Generate the daily report:`

// Generator builds daily markdown summaries from the record store.
type Generator struct {
	store  *store.Store
	client *analysis.Client
}

// NewGenerator creates a summary generator.
func NewGenerator(st *store.Store, client *analysis.Client) *Generator {
	return &Generator{store: st, client: client}
}

// Generate summarizes today's records into <summary dir>/YYYY-MM-DD.md and
// records the path in settings. The summary dir falls back to
// <data dir>/summaries when unconfigured.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "generate_summary")
	defer span.End()
	log := trace.Logger(ctx)

	settings, err := g.store.Settings(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	cs := settings.CaptureSettings()
	if cs.APIKey == "" {
		return "", store.ErrNoCredential
	}

	records, err := g.store.TodayRecords(ctx)
	if err != nil {
		return "", fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		return "", ErrNoRecords
	}
	span.SetAttr("records", len(records))

	summary, err := g.client.Complete(ctx, analysis.Endpoint{
		BaseURL: cs.BaseURL,
		APIKey:  cs.APIKey,
		Model:   cs.Model,
	}, buildPrompt(records), analysis.SummaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("summarize records: %w", err)
	}

	dir := settings.SummaryDir
	if dir == "" {
		dir = filepath.Join(g.store.BaseDir(), "summaries")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".md")
	if err := os.WriteFile(path, []byte(summary), 0o600); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	if err := g.store.SetLastSummaryPath(ctx, path); err != nil {
		return "", fmt.Errorf("record summary path: %w", err)
	}

	log.Info("daily summary generated", "path", path, "records", len(records))
	return path, nil
}

// Latest returns the path and content of the most recent summary.
func (g *Generator) Latest(ctx context.Context) (string, string, error) {
	settings, err := g.store.Settings(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load settings: %w", err)
	}
	if settings.LastSummaryPath == "" {
		return "", "", ErrNoSummary
	}

	content, err := os.ReadFile(settings.LastSummaryPath)
	if err != nil {
		return "", "", fmt.Errorf("read summary: %w", err)
	}
	return settings.LastSummaryPath, string(content), nil
}

// buildPrompt renders the records oldest-first into the summary
// instruction. TodayRecords returns newest-first.
func buildPrompt(records []store.Record) string {
	var b strings.Builder
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		fmt.Fprintf(&b, "- [%s] %s: %s\n",
			rec.Timestamp.Local().Format("15:04"), sourceLabel(rec.SourceType), rec.Content)
	}
	return fmt.Sprintf(promptTemplate, strings.TrimRight(b.String(), "\n"))
}

func sourceLabel(sourceType string) string {
	if sourceType == store.SourceAuto {
		return "screen"
	}
	return "note"
}
