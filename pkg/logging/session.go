package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionSummary is written to summary.yaml when a run ends.
type SessionSummary struct {
	SessionID string         `yaml:"session_id"`
	Status    string         `yaml:"status"`
	Started   time.Time      `yaml:"started"`
	Finished  time.Time      `yaml:"finished"`
	Duration  string         `yaml:"duration"`
	Phases    []PhaseSummary `yaml:"phases,omitempty"`
	Metadata  map[string]any `yaml:"metadata,omitempty"`
}

// PhaseSummary counts outcomes of one provisioning phase.
type PhaseSummary struct {
	Name      string   `yaml:"name"`
	Succeeded int      `yaml:"succeeded"`
	Failed    int      `yaml:"failed"`
	Skipped   int      `yaml:"skipped"`
	Pending   int      `yaml:"pending,omitempty"`
	Failures  []string `yaml:"failures,omitempty"`
}

// EndSession writes summary.yaml into the current run directory.
func EndSession(status string, phases []PhaseSummary, metadata map[string]any) error {
	if instance == nil {
		return fmt.Errorf("logging not initialized")
	}
	return instance.endSession(status, phases, metadata)
}

func (l *Logger) endSession(status string, phases []PhaseSummary, metadata map[string]any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	finished := time.Now()
	summary := SessionSummary{
		SessionID: l.config.SessionID,
		Status:    status,
		Started:   l.sessionStart,
		Finished:  finished,
		Duration:  finished.Sub(l.sessionStart).Round(time.Millisecond).String(),
		Phases:    phases,
		Metadata:  metadata,
	}
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal session summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.logDir, "summary.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write session summary: %w", err)
	}
	return nil
}
