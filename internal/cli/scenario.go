package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/harness"
)

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string               `json:"name"`
	File   string               `json:"file"`
	Pass   bool                 `json:"pass"`
	Trace  []harness.TraceEvent `json:"trace,omitempty"`
	Errors []string             `json:"errors,omitempty"`
}

// ScenarioReport is the result of the scenario command.
type ScenarioReport struct {
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []ScenarioResult `json:"results"`
}

func (r ScenarioReport) renderText(st Styles) string {
	var b strings.Builder
	for _, res := range r.Results {
		if res.Pass {
			fmt.Fprintf(&b, "%s %s\n", st.Success.Render("✓"), res.Name)
		} else {
			fmt.Fprintf(&b, "%s %s\n", st.Error.Render("✗"), res.Name)
			for _, e := range res.Errors {
				for _, line := range strings.Split(e, "\n") {
					b.WriteString("    " + line + "\n")
				}
			}
		}
		for _, ev := range res.Trace {
			detail := ""
			if ev.Detail != "" {
				detail = " " + st.Muted.Render(ev.Detail)
			}
			fmt.Fprintf(&b, "    %3d %-8s %-16s %s%s\n", ev.Seq, ev.Client, ev.Action, ev.Outcome, detail)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed", r.Passed, r.Failed)
	return b.String()
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Replay multi-client scenarios against an in-memory ledger",
		Long: `Run scenario files: several clients share one in-memory ledger and
execute the listed steps in order. Useful for reproducing lost updates
and other last-write-wins interleavings.

Example:
  foodstand scenario testdata/scenarios/*.yaml
  foodstand scenario concurrent_submit.yaml --trace`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			report := ScenarioReport{Results: []ScenarioResult{}}
			for _, path := range args {
				s, err := harness.LoadScenario(path)
				if err != nil {
					_ = formatter.Error(CodeScenario, err.Error(), nil)
					return WrapExitError(ExitCommandError, "invalid scenario", err)
				}
				formatter.VerboseLog("Running %s (%d clients, %d steps)", s.Name, len(s.Clients), len(s.Steps))

				res, err := harness.Run(s)
				if err != nil {
					_ = formatter.Error(CodeScenario, err.Error(), nil)
					return WrapExitError(ExitFailure, "scenario could not run", err)
				}

				sr := ScenarioResult{Name: s.Name, File: path, Pass: res.Pass, Errors: res.Errors}
				if showTrace || !res.Pass {
					sr.Trace = res.Trace
				}
				if res.Pass {
					report.Passed++
				} else {
					report.Failed++
				}
				report.Results = append(report.Results, sr)
			}

			if err := formatter.Success(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTrace, "trace", false, "show the step trace of passing scenarios")
	return cmd
}
