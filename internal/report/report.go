// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report turns a finished pipeline run into a RunRecord and writes
// it to disk or a terminal.
package report

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/curriculum-tutor/internal/pipeline"
	"github.com/pdiddy/curriculum-tutor/internal/trace"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

const (
	outlineFile = "outline.md"
	lessonsFile = "lessons.md"
	runFile     = "run.yaml"
)

// RunID derives a stable ID from the goal and start time: the first 12 hex
// characters of SHA-256(goal + RFC3339Nano start).
func RunID(goal types.Goal, started time.Time) string {
	h := sha256.New()
	h.Write([]byte(goal))
	h.Write([]byte(started.UTC().Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// NewRecord builds the RunRecord for res. runErr is the error returned by
// the controller, if any.
func NewRecord(res pipeline.Result, runErr error, ai types.AIConfig, tr *trace.Trace, started time.Time, elapsed time.Duration) types.RunRecord {
	rec := types.RunRecord{
		ID:        RunID(res.Goal, started),
		Goal:      res.Goal,
		Provider:  ai.Provider,
		Model:     ai.Model,
		Outline:   res.Outline,
		Verdict:   res.Verdict,
		Lessons:   res.Lessons,
		Outcome:   res.Outcome,
		StartedAt: started.UTC(),
		Duration:  elapsed,
		Spans:     tr.Spans(),
	}
	if tr != nil {
		rec.Workflow = tr.Workflow
	}
	if runErr != nil {
		rec.Error = runErr.Error()
		rec.Outcome = types.OutcomeFailed
	}
	return rec
}

// Save writes rec into dir/<id>/: outline.md when an outline exists,
// lessons.md when lessons were written, and run.yaml always. It returns
// the run directory.
func Save(dir string, rec types.RunRecord) (string, error) {
	runDir := filepath.Join(dir, rec.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run directory: %w", err)
	}

	if rec.Outline != "" {
		if err := writeText(filepath.Join(runDir, outlineFile), string(rec.Outline)); err != nil {
			return "", err
		}
	}
	if rec.Lessons != "" {
		if err := writeText(filepath.Join(runDir, lessonsFile), string(rec.Lessons)); err != nil {
			return "", err
		}
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("marshaling run record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, runFile), data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", runFile, err)
	}
	return runDir, nil
}

// Load reads run.yaml from a run directory written by Save.
func Load(runDir string) (types.RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(runDir, runFile))
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("reading run record: %w", err)
	}
	var rec types.RunRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return types.RunRecord{}, fmt.Errorf("parsing run record: %w", err)
	}
	return rec, nil
}

func writeText(path, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Print writes a human-readable view of rec to w.
func Print(w io.Writer, rec types.RunRecord) {
	fmt.Fprintf(w, "Run:      %s\n", rec.ID)
	fmt.Fprintf(w, "Goal:     %s\n", rec.Goal)
	fmt.Fprintf(w, "Started:  %s (%s)\n", rec.StartedAt.Format(time.RFC3339), rec.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Provider: %s %s\n", rec.Provider, rec.Model)
	fmt.Fprintf(w, "Outcome:  %s\n", rec.Outcome)
	if rec.Verdict != nil {
		fmt.Fprintf(w, "Verdict:  good_quality=%t matches_goal=%t\n", rec.Verdict.IsHighQuality, rec.Verdict.MatchesGoal)
	}
	if rec.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", rec.Error)
	}

	if len(rec.Spans) > 0 {
		fmt.Fprintf(w, "\n%-9s  %-26s  %10s  %8s  %8s\n", "Stage", "Agent", "Duration", "In", "Out")
		fmt.Fprintln(w, strings.Repeat("-", 69))
		for _, sp := range rec.Spans {
			fmt.Fprintf(w, "%-9s  %-26s  %10s  %8d  %8d\n",
				sp.Stage, sp.Agent, sp.Duration.Round(time.Millisecond), sp.InputBytes, sp.OutputBytes)
		}
	}

	if rec.Outline != "" {
		fmt.Fprintf(w, "\nCurriculum:\n%s\n", rec.Outline)
	}
	if rec.Lessons != "" {
		fmt.Fprintf(w, "\nLessons:\n%s\n", rec.Lessons)
	}
}
