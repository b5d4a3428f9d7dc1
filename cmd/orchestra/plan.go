package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/armatrix/orchestra-go/decompose"
)

var (
	planOpts   runFlags
	planFormat string
)

var planCmd = &cobra.Command{
	Use:   "plan <request>",
	Short: "Decompose a request without executing it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, log, err := newOrchestrator(&planOpts)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		plan, err := orch.Plan(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), plan, planFormat)
	},
}

func init() {
	addRunFlags(planCmd, &planOpts)
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "text", "Output format: text, json or yaml")
}

func writePlan(w io.Writer, plan *decompose.TaskDecomposition, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "yaml", "yml":
		out, err := planYAML(plan)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "text", "":
		writePlanText(w, plan)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// planYAML renders the plan with its JSON field names. JSON is valid YAML,
// so the document is decoded into a node tree and re-encoded in block style.
func planYAML(plan *decompose.TaskDecomposition) ([]byte, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func writePlanText(w io.Writer, plan *decompose.TaskDecomposition) {
	fmt.Fprintf(w, "%s\n", plan.MainTitle)
	fmt.Fprintf(w, "strategy: %s  source: %s", plan.Strategy, plan.Source)
	if plan.EstimatedDuration != "" {
		fmt.Fprintf(w, "  estimate: %s", plan.EstimatedDuration)
	}
	fmt.Fprintln(w)
	if plan.FallbackReason != "" {
		fmt.Fprintf(w, "fallback: %s\n", plan.FallbackReason)
	}
	fmt.Fprintln(w)
	for _, t := range plan.Tasks {
		fmt.Fprintf(w, "[%s] %s (%s, %s, %s)\n", t.ID, t.Title, t.SuggestedAgent.Name, t.ExecutionMode, t.ModelTier)
		if len(t.Dependencies) > 0 {
			fmt.Fprintf(w, "     after: %s\n", strings.Join(t.Dependencies, ", "))
		}
	}
	if plan.RequiresSynthesis {
		fmt.Fprintln(w, "\nresults are synthesized into one deliverable")
	}
}
