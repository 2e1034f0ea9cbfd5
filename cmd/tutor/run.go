// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/curriculum-tutor/internal/agent"
	"github.com/pdiddy/curriculum-tutor/internal/config"
	"github.com/pdiddy/curriculum-tutor/internal/history"
	"github.com/pdiddy/curriculum-tutor/internal/pipeline"
	"github.com/pdiddy/curriculum-tutor/internal/report"
	"github.com/pdiddy/curriculum-tutor/internal/trace"
	"github.com/pdiddy/curriculum-tutor/pkg/types"
)

// goalPrompt is shown when no goal is given on the command line.
const goalPrompt = "What do you want to learn? "

// Exit statuses for controlled stops under --strict-exit.
const (
	exitLowQuality = 3
	exitMismatch   = 4
)

// ExitError carries a non-zero exit status for a run that stopped at the
// quality gate. main exits with Code without printing an error.
type ExitError struct {
	Code    int
	Outcome types.Outcome
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("run %s (exit %d)", e.Outcome, e.Code)
}

var runCmd = &cobra.Command{
	Use:   "run [goal...]",
	Short: "Generate a curriculum for a learning goal, check it, and write lessons",
	Long: `Run asks the curriculum agent for an outline, has the checker agent judge
it, and asks the lesson writer for lessons only when the outline is judged
high quality and on-goal. A rejected outline ends the run without lessons.

The goal comes from --goal, the positional arguments, or an interactive
prompt, in that order. Use --provider fake for an offline dry run.`,
	RunE: runTutor,
}

func init() {
	runCmd.Flags().String("goal", "", "learning goal (default: positional arguments, then prompt)")
	runCmd.Flags().String("provider", "", "model provider: claude, gemini, openrouter, or fake")
	runCmd.Flags().String("model", "", "model name (default depends on provider)")
	runCmd.Flags().Bool("save", false, "write outline, lessons, and run.yaml under --runs-dir")
	runCmd.Flags().String("runs-dir", "", "directory for saved runs (default: output/runs)")
	runCmd.Flags().Bool("history", false, "record the run in the history database")
	runCmd.Flags().Bool("strict-exit", false, "exit 3 for a low-quality outline and 4 for a goal mismatch")

	bind := map[string]string{
		"provider":    config.KeyProvider,
		"model":       config.KeyModel,
		"save":        config.KeySaveRuns,
		"runs-dir":    config.KeyRunsDir,
		"history":     config.KeyHistory,
		"strict-exit": config.KeyStrictExit,
	}
	for flag, key := range bind {
		if err := v.BindPFlag(key, runCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runTutor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	goalFlag, _ := cmd.Flags().GetString("goal")
	goal, err := readGoal(goalFlag, args, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(goal)) == "" {
		return pipeline.ErrEmptyGoal
	}

	roles, err := agent.DefaultRoles().WithOverrides(cfg.Roles)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	invoker, err := agent.New(ctx, cfg.AI)
	if err != nil {
		return err
	}

	tr := trace.New(pipeline.Workflow)
	ctrl := pipeline.New(invoker, roles, cmd.OutOrStdout(), pipeline.WithTrace(tr))

	started := time.Now()
	res, runErr := ctrl.Run(ctx, goal)
	rec := report.NewRecord(res, runErr, cfg.AI, tr, started, time.Since(started))

	persistRun(ctx, cmd.ErrOrStderr(), cfg.Output, rec)

	if runErr != nil {
		return runErr
	}
	return exitFor(res.Outcome, cfg.StrictExit)
}

// readGoal picks the goal from the flag, then the arguments, then one line
// read from in after writing the prompt to out.
func readGoal(flagGoal string, args []string, in io.Reader, out io.Writer) (types.Goal, error) {
	if flagGoal != "" {
		return types.Goal(flagGoal), nil
	}
	if len(args) > 0 {
		return types.Goal(strings.Join(args, " ")), nil
	}

	fmt.Fprint(out, goalPrompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading goal: %w", err)
	}
	return types.Goal(strings.TrimRight(line, "\r\n")), nil
}

// exitFor maps a successful outcome to the command result. Stops are only
// errors under strict exit.
func exitFor(outcome types.Outcome, strict bool) error {
	if !strict || !outcome.Stopped() {
		return nil
	}
	switch outcome {
	case types.OutcomeStoppedLowQuality:
		return &ExitError{Code: exitLowQuality, Outcome: outcome}
	case types.OutcomeStoppedMismatch:
		return &ExitError{Code: exitMismatch, Outcome: outcome}
	}
	return nil
}

// persistRun saves rec where the configuration asks. Failures are warnings;
// they never change the outcome of the run.
func persistRun(ctx context.Context, w io.Writer, out types.OutputConfig, rec types.RunRecord) {
	if !out.SaveRuns && !out.History {
		return
	}
	fmt.Fprintf(w, "Run ID: %s\n", rec.ID)

	if out.SaveRuns {
		runDir, err := report.Save(out.RunsDir, rec)
		if err != nil {
			fmt.Fprintf(w, "Warning: saving run: %v\n", err)
		} else {
			fmt.Fprintf(w, "Saved run to %s\n", runDir)
		}
	}

	if out.History {
		if err := recordHistory(ctx, out.HistoryDB, rec); err != nil {
			fmt.Fprintf(w, "Warning: recording history: %v\n", err)
		}
	}
}

func recordHistory(ctx context.Context, path string, rec types.RunRecord) error {
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, rec)
}
