// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the tutor workflow: generate a curriculum outline,
// check it, and write lessons only when the check passes.
//
// The controller is strictly sequential. Each agent call blocks until it
// returns; nothing is retried and no stage is revisited. The two gate
// stops are successful results, not errors. A checker answer that does not
// parse as a verdict, or any failed agent call, aborts the run with an
// error and the lesson writer is never called.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/curriculum-tutor/internal/agent"
	"github.com/pdiddy/curriculum-tutor/internal/trace"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// Workflow names the traced run.
const Workflow = "Deterministic tutor flow"

// ErrEmptyGoal is returned when the goal has no non-whitespace text.
var ErrEmptyGoal = errors.New("learning goal is empty")

// Messages written to the controller's output.
const (
	MsgGenerated  = "\nCurriculum generated."
	MsgLowQuality = "Curriculum is low quality. Stopping."
	MsgMismatch   = "Curriculum doesn't match the learning goal. Stopping."
	MsgProceeding = "Curriculum looks good. Proceeding to generate lessons..."
	MsgLessons    = "\nGenerated Lessons:"
)

// State is a step of the controller's state machine.
type State string

const (
	StateStart             State = "start"
	StateGeneratingPlan    State = "generating_plan"
	StateValidatingPlan    State = "validating_plan"
	StateStoppedLowQuality State = "stopped_low_quality"
	StateStoppedMismatch   State = "stopped_mismatch"
	StateWritingLessons    State = "writing_lessons"
	StateDone              State = "done"
)

// Stage labels used in trace spans.
const (
	stageGenerate = "generate"
	stageValidate = "validate"
	stageWrite    = "write"
)

// Result is everything a run produced, filled as far as the run got.
type Result struct {
	Goal    types.Goal
	Outline types.CurriculumOutline
	Verdict *types.Verdict
	Lessons types.Lessons
	Outcome types.Outcome
	// States lists the states visited, starting with StateStart.
	States []State
}

// Controller sequences the three agent roles.
type Controller struct {
	invoker agent.Invoker
	roles   agent.Roles
	out     io.Writer
	trace   *trace.Trace
}

// Option configures a Controller.
type Option func(*Controller)

// WithTrace records one span per agent call in tr.
func WithTrace(tr *trace.Trace) Option {
	return func(c *Controller) { c.trace = tr }
}

// New returns a controller that calls invoker with roles and writes
// user-facing messages to out.
func New(invoker agent.Invoker, roles agent.Roles, out io.Writer, opts ...Option) *Controller {
	c := &Controller{invoker: invoker, roles: roles, out: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the workflow for goal. Controlled stops return a nil error
// with Outcome set to the stop reason. On error the returned Result has
// Outcome failed and holds whatever was produced before the failure.
func (c *Controller) Run(ctx context.Context, goal types.Goal) (Result, error) {
	res := Result{Goal: goal, States: []State{StateStart}}

	if strings.TrimSpace(string(goal)) == "" {
		res.Outcome = types.OutcomeFailed
		return res, ErrEmptyGoal
	}

	// Step 1: the outline is opaque text and is not inspected.
	res.enter(StateGeneratingPlan)
	outline, err := c.invoke(ctx, stageGenerate, c.roles.Generator, string(goal))
	if err != nil {
		return res.fail(fmt.Errorf("generating curriculum: %w", err))
	}
	res.Outline = types.CurriculumOutline(outline)
	fmt.Fprintln(c.out, MsgGenerated)

	// Step 2: the checker's answer must parse before any field is read.
	res.enter(StateValidatingPlan)
	raw, err := c.invoke(ctx, stageValidate, c.roles.Checker, string(res.Outline))
	if err != nil {
		return res.fail(fmt.Errorf("checking curriculum: %w", err))
	}
	verdict, err := ParseVerdict(raw)
	if err != nil {
		return res.fail(fmt.Errorf("checking curriculum: %w", err))
	}
	res.Verdict = &verdict

	// Gate: quality is reported before goal match.
	if !verdict.Passed() {
		if !verdict.IsHighQuality {
			res.enter(StateStoppedLowQuality)
			fmt.Fprintln(c.out, MsgLowQuality)
			res.Outcome = types.OutcomeStoppedLowQuality
		} else {
			res.enter(StateStoppedMismatch)
			fmt.Fprintln(c.out, MsgMismatch)
			res.Outcome = types.OutcomeStoppedMismatch
		}
		res.enter(StateDone)
		return res, nil
	}
	fmt.Fprintln(c.out, MsgProceeding)

	// Step 3: the writer gets exactly the outline from step 1.
	res.enter(StateWritingLessons)
	lessons, err := c.invoke(ctx, stageWrite, c.roles.Writer, string(res.Outline))
	if err != nil {
		return res.fail(fmt.Errorf("writing lessons: %w", err))
	}
	res.Lessons = types.Lessons(lessons)
	fmt.Fprintf(c.out, "%s\n%s\n", MsgLessons, res.Lessons)

	res.Outcome = types.OutcomeCompleted
	res.enter(StateDone)
	return res, nil
}

// invoke calls one role and records it in the trace.
func (c *Controller) invoke(ctx context.Context, stage string, role agent.Role, input string) (string, error) {
	span := c.trace.Start(stage, role.Name, len(input))
	out, err := c.invoker.Invoke(ctx, role, input)
	span.End(len(out.Text), err)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}

func (r Result) fail(err error) (Result, error) {
	r.Outcome = types.OutcomeFailed
	return r, err
}
