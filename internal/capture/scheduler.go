// Package capture drives the screen capture pipeline: grab, change gate,
// analysis, persistence.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glancelog/glance/internal/analysis"
	"github.com/glancelog/glance/internal/artifact"
	"github.com/glancelog/glance/internal/fingerprint"
	"github.com/glancelog/glance/internal/gate"
	"github.com/glancelog/glance/internal/screen"
	"github.com/glancelog/glance/internal/store"
	"github.com/glancelog/glance/internal/trace"
)

// Event is pushed to WebSocket consumers when a record lands or the
// scheduler changes state.
type Event struct {
	Type   string        `json:"type"`
	Record *store.Record `json:"record,omitempty"`
	Status *Status       `json:"status,omitempty"`
}

// Status reports the scheduler and gate state.
type Status struct {
	Running       bool      `json:"running"`
	HasBaseline   bool      `json:"has_baseline"`
	LastCaptureAt time.Time `json:"last_capture_at"`
	LastOutcome   string    `json:"last_outcome,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Scheduler owns the periodic capture loop and the one-shot entry points.
type Scheduler struct {
	store     *store.Store
	source    screen.Source
	analyzer  *analysis.Client
	gate      *gate.Gate
	artifacts *artifact.Store

	running atomic.Bool

	mu          sync.Mutex
	stopCh      chan struct{}
	lastOutcome string
	lastError   string

	eventCh chan Event
}

// New creates a scheduler wired to its collaborators.
func New(st *store.Store, src screen.Source, client *analysis.Client, g *gate.Gate, artifacts *artifact.Store) *Scheduler {
	return &Scheduler{
		store:     st,
		source:    src,
		analyzer:  client,
		gate:      g,
		artifacts: artifacts,
		eventCh:   make(chan Event, EventBufferSize),
	}
}

// Start launches the periodic capture loop: one cycle immediately, then
// one per interval. Calling Start while running is a no-op. Fails when no
// API key is configured.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running.Load() {
		return nil
	}

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	cs := settings.CaptureSettings()
	if cs.APIKey == "" {
		return store.ErrNoCredential
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	stopCh := make(chan struct{})
	s.mu.Lock()
	s.stopCh = stopCh
	s.mu.Unlock()

	go s.run(stopCh, cs.Interval)

	trace.Logger(ctx).Info("auto capture started", "interval", cs.Interval)
	s.emitStatus()
	return nil
}

// Stop clears the running flag. An in-flight cycle is not interrupted;
// the loop exits at its next checkpoint.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	s.mu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.mu.Unlock()

	slog.Info("auto capture stopped")
	s.emitStatus()
}

// Trigger runs exactly one cycle, independent of the running flag, and
// surfaces the error to the caller.
func (s *Scheduler) Trigger(ctx context.Context) (string, error) {
	log := trace.Logger(ctx)
	outcome, err := s.cycle(ctx)
	if err != nil {
		log.Error("trigger capture failed", "error", err)
		return outcome, err
	}
	log.Info("manual capture triggered", "outcome", outcome)
	return outcome, nil
}

// Screenshot grabs one frame and stores it for preview. No gate check,
// no analysis, no record.
func (s *Scheduler) Screenshot(ctx context.Context) (string, error) {
	img, err := s.source.Capture(ctx)
	if err != nil {
		return "", fmt.Errorf("screen capture: %w", err)
	}
	path, _, err := s.artifacts.Save(img, time.Now())
	if err != nil {
		return "", fmt.Errorf("save screenshot: %w", err)
	}
	trace.Logger(ctx).Info("screenshot saved for preview", "path", path)
	return path, nil
}

// Status reports the current scheduler and gate state.
func (s *Scheduler) Status() Status {
	snap := s.gate.Snapshot()

	s.mu.Lock()
	outcome, lastErr := s.lastOutcome, s.lastError
	s.mu.Unlock()

	return Status{
		Running:       s.running.Load(),
		HasBaseline:   snap.HasBaseline,
		LastCaptureAt: snap.LastCaptureAt,
		LastOutcome:   outcome,
		LastError:     lastErr,
	}
}

// Events returns the channel of record and status events.
func (s *Scheduler) Events() <-chan Event {
	return s.eventCh
}

// EmitRecord publishes a record event on behalf of another producer,
// such as a manually added note.
func (s *Scheduler) EmitRecord(rec store.Record) {
	s.emit(Event{Type: EventRecord, Record: &rec})
}

func (s *Scheduler) run(stopCh <-chan struct{}, interval time.Duration) {
	ctx := context.Background()

	if _, err := s.cycle(ctx); err != nil {
		slog.Error("initial capture failed", "error", err)
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}

		if !s.running.Load() {
			return
		}

		if _, err := s.cycle(ctx); err != nil {
			slog.Error("auto capture failed", "error", err)
		}

		timer.Reset(interval)
	}
}

// cycle runs one gate-check-through-persistence pass and records the
// outcome for the status endpoint.
func (s *Scheduler) cycle(ctx context.Context) (string, error) {
	ctx, span := trace.StartSpan(ctx, "capture_cycle")
	defer span.End()

	outcome, err := s.runCycle(ctx)
	span.SetAttr("outcome", outcome)
	if err != nil {
		span.SetAttr("error", err.Error())
	}

	s.mu.Lock()
	s.lastOutcome = outcome
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	return outcome, err
}

func (s *Scheduler) runCycle(ctx context.Context) (string, error) {
	log := trace.Logger(ctx)

	settings, err := s.store.Settings(ctx)
	if err != nil {
		return OutcomeError, fmt.Errorf("load settings: %w", err)
	}
	cs := settings.CaptureSettings()
	if cs.APIKey == "" {
		return OutcomeError, store.ErrNoCredential
	}

	img, err := s.source.Capture(ctx)
	if err != nil {
		return OutcomeError, fmt.Errorf("screen capture: %w", err)
	}

	digest, err := fingerprint.Digest(img)
	if err != nil {
		return OutcomeError, fmt.Errorf("fingerprint: %w", err)
	}

	if !s.gate.ShouldCapture(digest, cs.ChangeThreshold, cs.MaxSilent) {
		return OutcomeSkipped, nil
	}

	path, phash, err := s.artifacts.Save(img, time.Now())
	if err != nil {
		// The record is still worth keeping without its artifact.
		log.Error("screenshot save failed", "error", err)
		path, phash = "", ""
	}

	result, err := s.analyzer.Analyze(ctx, analysis.Endpoint{
		BaseURL: cs.BaseURL,
		APIKey:  cs.APIKey,
		Model:   cs.Model,
	}, cs.Prompt, img)
	if err != nil {
		return OutcomeError, fmt.Errorf("analyze screen: %w", err)
	}

	content, err := json.Marshal(result)
	if err != nil {
		return OutcomeError, fmt.Errorf("encode analysis: %w", err)
	}

	rec, err := s.store.AppendRecord(ctx, store.SourceAuto, string(content), path, phash)
	if err != nil {
		return OutcomeError, fmt.Errorf("store record: %w", err)
	}

	log.Info("screen captured", "id", rec.ID, "focus", result.CurrentFocus)

	s.emit(Event{Type: EventRecord, Record: &rec})

	return OutcomeCaptured, nil
}

func (s *Scheduler) emitStatus() {
	st := s.Status()
	s.emit(Event{Type: EventStatus, Status: &st})
}

func (s *Scheduler) emit(ev Event) {
	select {
	case s.eventCh <- ev:
	default:
		slog.Debug("event channel full", "type", ev.Type)
	}
}
