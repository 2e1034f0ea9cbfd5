// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Goal is the learning goal the user typed. It is never modified.
type Goal string

// CurriculumOutline is the free-text plan produced by the generator agent.
// Sections are implicit in the text.
type CurriculumOutline string

// Lessons is the free-text output of the lesson writer agent.
type Lessons string

// Verdict is the structured judgment of the checker agent. Both fields must
// be true for lessons to be written.
type Verdict struct {
	IsHighQuality bool `json:"good_quality" yaml:"good_quality"`
	MatchesGoal   bool `json:"matches_goal" yaml:"matches_goal"`
}

// Passed reports whether every field of the verdict is true.
func (v Verdict) Passed() bool {
	return v.IsHighQuality && v.MatchesGoal
}

// Outcome classifies how a pipeline run ended.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeStoppedLowQuality Outcome = "stopped_low_quality"
	OutcomeStoppedMismatch   Outcome = "stopped_mismatch"
	OutcomeFailed            Outcome = "failed"
)

// Stopped reports whether the outcome is one of the controlled stops.
func (o Outcome) Stopped() bool {
	return o == OutcomeStoppedLowQuality || o == OutcomeStoppedMismatch
}

// Span records one agent invocation inside a run.
type Span struct {
	Stage       string        `json:"stage" yaml:"stage"`
	Agent       string        `json:"agent" yaml:"agent"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	InputBytes  int           `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int           `json:"output_bytes" yaml:"output_bytes"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunRecord is the persisted form of one pipeline run.
type RunRecord struct {
	ID        string            `json:"id" yaml:"id"`
	Workflow  string            `json:"workflow" yaml:"workflow"`
	Goal      Goal              `json:"goal" yaml:"goal"`
	Provider  Provider          `json:"provider" yaml:"provider"`
	Model     string            `json:"model" yaml:"model"`
	Outline   CurriculumOutline `json:"outline,omitempty" yaml:"outline,omitempty"`
	Verdict   *Verdict          `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Lessons   Lessons           `json:"lessons,omitempty" yaml:"lessons,omitempty"`
	Outcome   Outcome           `json:"outcome" yaml:"outcome"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
	Spans     []Span            `json:"spans,omitempty" yaml:"spans,omitempty"`
}
