package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoCredential is returned when an operation needs the interpretation
// service but no API key has been configured.
var ErrNoCredential = errors.New("api key not configured")

// Defaults applied when a settings field has never been configured.
const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o"
	DefaultIntervalMin     = 5
	DefaultChangeThreshold = 3.0
	DefaultMaxSilentMin    = 30
	DefaultSummaryTime     = "18:00"
)

// Settings is the mutable singleton row (id = 1).
type Settings struct {
	APIBaseURL         string  `json:"api_base_url"`
	APIKey             string  `json:"api_key"`
	ModelName          string  `json:"model_name"`
	CaptureIntervalMin int     `json:"capture_interval_min"`
	ChangeThreshold    float64 `json:"change_threshold"`
	MaxSilentMin       int     `json:"max_silent_min"`
	AnalysisPrompt     string  `json:"analysis_prompt"`
	SummaryTime        string  `json:"summary_time"`
	SummaryDir         string  `json:"summary_dir"`
	AutoCaptureEnabled bool    `json:"auto_capture_enabled"`
	LastSummaryPath    string  `json:"last_summary_path"`
}

// CaptureSettings is the immutable per-cycle snapshot the scheduler works
// from, with defaults resolved.
type CaptureSettings struct {
	BaseURL         string
	APIKey          string
	Model           string
	Interval        time.Duration
	ChangeThreshold float64
	MaxSilent       time.Duration
	Prompt          string
}

// CaptureSettings resolves the row into a per-cycle snapshot. Unconfigured
// endpoint and model fall back to the documented defaults; non-positive
// durations do the same.
func (s Settings) CaptureSettings() CaptureSettings {
	cs := CaptureSettings{
		BaseURL:         s.APIBaseURL,
		APIKey:          s.APIKey,
		Model:           s.ModelName,
		Interval:        time.Duration(s.CaptureIntervalMin) * time.Minute,
		ChangeThreshold: s.ChangeThreshold,
		MaxSilent:       time.Duration(s.MaxSilentMin) * time.Minute,
		Prompt:          s.AnalysisPrompt,
	}
	if cs.BaseURL == "" {
		cs.BaseURL = DefaultBaseURL
	}
	if cs.Model == "" {
		cs.Model = DefaultModel
	}
	if cs.Interval <= 0 {
		cs.Interval = DefaultIntervalMin * time.Minute
	}
	if cs.MaxSilent <= 0 {
		cs.MaxSilent = DefaultMaxSilentMin * time.Minute
	}
	return cs
}

// Settings reads the singleton row. NULL columns resolve to their defaults,
// so a fresh database returns a usable (if credential-less) configuration.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	var out Settings
	var auto int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(api_base_url, ''),
		        COALESCE(api_key, ''),
		        COALESCE(model_name, ''),
		        COALESCE(capture_interval_min, ?),
		        COALESCE(change_threshold, ?),
		        COALESCE(max_silent_min, ?),
		        COALESCE(analysis_prompt, ''),
		        COALESCE(summary_time, ?),
		        COALESCE(summary_dir, ''),
		        COALESCE(auto_capture_enabled, 0),
		        COALESCE(last_summary_path, '')
		 FROM settings WHERE id = 1`,
		DefaultIntervalMin, DefaultChangeThreshold, DefaultMaxSilentMin, DefaultSummaryTime).
		Scan(&out.APIBaseURL, &out.APIKey, &out.ModelName, &out.CaptureIntervalMin,
			&out.ChangeThreshold, &out.MaxSilentMin, &out.AnalysisPrompt,
			&out.SummaryTime, &out.SummaryDir, &auto, &out.LastSummaryPath)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	out.AutoCaptureEnabled = auto != 0
	return out, nil
}

// SaveSettings replaces the singleton row.
func (s *Store) SaveSettings(ctx context.Context, in Settings) error {
	auto := 0
	if in.AutoCaptureEnabled {
		auto = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET
		   api_base_url = ?,
		   api_key = ?,
		   model_name = ?,
		   capture_interval_min = ?,
		   change_threshold = ?,
		   max_silent_min = ?,
		   analysis_prompt = ?,
		   summary_time = ?,
		   summary_dir = ?,
		   auto_capture_enabled = ?,
		   last_summary_path = ?
		 WHERE id = 1`,
		in.APIBaseURL, in.APIKey, in.ModelName, in.CaptureIntervalMin,
		in.ChangeThreshold, in.MaxSilentMin, in.AnalysisPrompt,
		in.SummaryTime, in.SummaryDir, auto, in.LastSummaryPath)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetLastSummaryPath records where the most recent daily summary was
// written without touching the rest of the row.
func (s *Store) SetLastSummaryPath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE settings SET last_summary_path = ? WHERE id = 1`, path); err != nil {
		return fmt.Errorf("set last summary path: %w", err)
	}
	return nil
}
