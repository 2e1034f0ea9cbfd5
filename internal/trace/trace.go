// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trace records the agent invocations of one workflow run.
//
// A Trace collects one span per invocation. The zero value is not usable;
// call New. A nil *Trace and a nil *Span accept every call and record
// nothing, so callers never need to check whether tracing is on.
package trace

import (
	"time"

	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// Trace is the ordered list of spans of one workflow run.
type Trace struct {
	Workflow string

	spans []types.Span
	now   func() time.Time
}

// New starts an empty trace for the named workflow.
func New(workflow string) *Trace {
	return &Trace{Workflow: workflow, now: time.Now}
}

// Span is an in-flight invocation. End must be called exactly once.
type Span struct {
	t     *Trace
	rec   types.Span
	begin time.Time
}

// Start opens a span for one agent call.
func (t *Trace) Start(stage, agentName string, inputBytes int) *Span {
	if t == nil {
		return nil
	}
	begin := t.now()
	return &Span{
		t:     t,
		begin: begin,
		rec: types.Span{
			Stage:      stage,
			Agent:      agentName,
			StartedAt:  begin.UTC(),
			InputBytes: inputBytes,
		},
	}
}

// End closes the span and appends it to its trace.
func (s *Span) End(outputBytes int, err error) {
	if s == nil {
		return
	}
	s.rec.Duration = s.t.now().Sub(s.begin)
	s.rec.OutputBytes = outputBytes
	if err != nil {
		s.rec.Error = err.Error()
	}
	s.t.spans = append(s.t.spans, s.rec)
}

// Spans returns a copy of the finished spans in the order they ended.
func (t *Trace) Spans() []types.Span {
	if t == nil || len(t.spans) == 0 {
		return nil
	}
	out := make([]types.Span, len(t.spans))
	copy(out, t.spans)
	return out
}
