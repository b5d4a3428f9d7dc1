package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	orchestra "github.com/armatrix/orchestra-go"
	"github.com/armatrix/orchestra-go/teams"
)

var (
	runOpts   runFlags
	runQuiet  bool
	runStream bool
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Plan and execute a request with a team of agents",
	Long: `Run decomposes the request, assembles a team and executes the plan.

Progress is written to stderr and the deliverable to stdout. Interrupting
the command cancels running agents; tasks finished so far are kept.

Strategies (--strategy):
  single_agent       one agent works through every task
  sequential_agents  tasks run one at a time in dependency order
  parallel_agents    independent tasks run concurrently
  parallel_isolated  like parallel_agents, without team tools
  iterative_deep     sequential with a doubled turn budget`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRequest,
}

func init() {
	addRunFlags(runCmd, &runOpts)
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print the deliverable")
	runCmd.Flags().BoolVar(&runStream, "stream", false, "Echo agent output as it is generated")
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.strategy, "strategy", "s", "", "Override the planner's strategy")
	cmd.Flags().IntVar(&f.maxConcurrency, "max-concurrency", 0, "Maximum tasks running at once")
	cmd.Flags().IntVar(&f.maxTurns, "max-turns", 0, "Turn budget per agent")
	cmd.Flags().Float64Var(&f.budget, "budget", 0, "Stop starting tasks once this many USD are spent")
	cmd.Flags().StringVarP(&f.workspace, "workspace", "w", "", "Give agents file and shell tools confined to this directory")
	cmd.Flags().StringSliceVarP(&f.agents, "agent", "a", nil, "Add a preset agent (researcher, writer, developer, reviewer, analyst)")
}

func runRequest(cmd *cobra.Command, args []string) error {
	orch, log, err := newOrchestrator(&runOpts)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompt := strings.Join(args, " ")
	var progress io.Writer = cmd.ErrOrStderr()
	if runQuiet {
		progress = io.Discard
	}

	res, err := consume(orch.Run(ctx, prompt), progress, runStream)
	if err != nil {
		return err
	}

	log.Info("run complete",
		zap.String("run_id", res.RunID),
		zap.Bool("success", res.Success),
		zap.String("cost_usd", res.Cost.StringFixed(4)))

	fmt.Fprintln(cmd.OutOrStdout(), res.Content)
	if !res.Success {
		return fmt.Errorf("run finished with %d of %d tasks failed", res.Counts.Failed, res.Counts.Total)
	}
	return nil
}

// consume drains a run stream, writing a line per notable event to w.
func consume(stream *orchestra.RunStream, w io.Writer, echo bool) (*orchestra.Result, error) {
	for stream.Next() {
		switch e := stream.Current().(type) {
		case *orchestra.PlanEvent:
			fmt.Fprintf(w, "plan: %s (%s, %d tasks, %s)\n",
				e.Plan.MainTitle, e.Plan.Strategy, len(e.Plan.Tasks), e.Plan.Source)
		case *orchestra.TaskStartEvent:
			if e.Attempt > 1 {
				fmt.Fprintf(w, "  retry %s: %s (attempt %d)\n", e.AgentName, e.Title, e.Attempt)
			} else {
				fmt.Fprintf(w, "  start %s: %s\n", e.AgentName, e.Title)
			}
		case *orchestra.TaskProgressEvent:
			if len(e.Progress.Tools) > 0 {
				fmt.Fprintf(w, "    turn %d: %s\n", e.Progress.Turn, strings.Join(e.Progress.Tools, ", "))
			}
		case *orchestra.TaskStreamEvent:
			if echo {
				fmt.Fprint(w, e.Delta)
			}
		case *orchestra.TaskDoneEvent:
			if e.Status == teams.StatusCompleted {
				fmt.Fprintf(w, "  done  %s\n", e.Title)
			} else {
				fmt.Fprintf(w, "  fail  %s: %s\n", e.Title, e.Error)
			}
		case *orchestra.TeamEvent:
			if e.Event.Type == teams.EventMessageSent && e.Event.Message != nil {
				fmt.Fprintf(w, "    message %s -> %s\n", e.Event.Message.From, e.Event.Message.To)
			}
		case *orchestra.SynthesisEvent:
			fmt.Fprintln(w, "  synthesizing results")
		case *orchestra.ResultEvent:
			r := e.Result
			for _, warning := range r.Warnings {
				fmt.Fprintf(w, "warning: %s\n", warning)
			}
			fmt.Fprintf(w, "finished: %d/%d tasks, %d in / %d out tokens, $%s, %s\n",
				r.Counts.Completed, r.Counts.Total,
				r.Usage.InputTokens, r.Usage.OutputTokens,
				r.Cost.StringFixed(4), r.Duration.Round(time.Millisecond))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	if stream.Result() == nil {
		return nil, orchestra.ErrIncompleteRun
	}
	return stream.Result(), nil
}
