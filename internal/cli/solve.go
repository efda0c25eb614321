package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/cache"
	"github.com/piwi3910/RoomPlan/internal/dsl"
	"github.com/piwi3910/RoomPlan/internal/engine"
	"github.com/piwi3910/RoomPlan/internal/logging"
	"github.com/piwi3910/RoomPlan/internal/model"
	"github.com/piwi3910/RoomPlan/internal/project"
)

type solveOptions struct {
	objective string
	timeLimit time.Duration
	gap       float64
	rules     []string
	archive   string
	exports   []string
	font      string
	noCache   bool
	jsonOut   bool
}

func (c *CLI) solveCommand() *cobra.Command {
	var opts solveOptions
	cmd := &cobra.Command{
		Use:   "solve <instance>",
		Short: "Solve an instance file and print the layout",
		Long: `Solve loads an instance (TOML or JSON), applies any extra --rule sentences,
and asks the oracle for a layout within the time limit.

Exports are chosen by file extension: .pdf, .dxf, .xlsx, .svg, and
.labels.pdf for QR room labels.`,
		Example: `  roomplan solve studio.toml
  roomplan solve studio.toml --objective minimize-total-perimeter --time-limit 30s
  roomplan solve studio.toml --rule "room kitchen is left of room living" --export plan.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("objective") {
				opts.objective = string(c.cfg.Solver.Objective)
			}
			if !cmd.Flags().Changed("time-limit") {
				opts.timeLimit = c.cfg.Solver.TimeLimit.Std()
			}
			if !cmd.Flags().Changed("gap") {
				opts.gap = c.cfg.Solver.GapTolerance
			}
			return c.runSolve(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.objective, "objective", "o", "", "objective kind (default from config)")
	f.DurationVarP(&opts.timeLimit, "time-limit", "t", 0, "solve time limit (default from config)")
	f.Float64Var(&opts.gap, "gap", 0, "relative optimality gap to stop at (default from config)")
	f.StringArrayVarP(&opts.rules, "rule", "r", nil, "extra constraint sentence (repeatable)")
	f.StringVar(&opts.archive, "archive", "", "write a JSON solve record to this path")
	f.StringArrayVarP(&opts.exports, "export", "e", nil, "export the layout to this path (repeatable)")
	f.StringVar(&opts.font, "font", "", "TTF/OTF font for SVG labels")
	f.BoolVar(&opts.noCache, "no-cache", false, "skip the result cache")
	f.BoolVar(&opts.jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func (c *CLI) runSolve(ctx context.Context, path string, opts solveOptions) error {
	logger := logging.FromContext(ctx)

	kind, err := model.ParseObjective(opts.objective)
	if err != nil {
		return err
	}
	inst, err := project.LoadInstance(path)
	if err != nil {
		return err
	}
	if len(opts.rules) > 0 {
		if inst, err = dsl.Apply(inst, opts.rules...); err != nil {
			return err
		}
	}
	if err := inst.Validate(); err != nil {
		return err
	}

	solver, env, err := c.openSolver()
	if err != nil {
		return err
	}
	defer env.Close()
	results, err := c.openResults(opts.noCache)
	if err != nil {
		return err
	}
	defer results.Close()

	progress := logging.StartProgress(logger)
	key := cache.Key(inst, kind, opts.timeLimit, opts.gap, c.cfg.Solver)
	res, hit, err := results.Solve(ctx, key, func(ctx context.Context) (model.LayoutResult, error) {
		return solver.SolveInstance(ctx, inst, kind, opts.timeLimit, opts.gap)
	})
	if err != nil {
		return err
	}
	progress.Done("solve complete", zap.String("status", string(res.Status)), zap.Bool("cached", hit))
	c.rememberInstance(path)

	if opts.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(c.out, inst, res, hit, c.cfg.Solver.MinContact)
	}

	if opts.archive != "" {
		if err := project.SaveSolveRecord(opts.archive, project.NewSolveRecord(inst, res)); err != nil {
			return err
		}
		if !opts.jsonOut {
			printFile(c.out, opts.archive)
		}
	}
	for _, out := range opts.exports {
		if err := exportLayout(out, "", inst, res, opts.font); err != nil {
			return err
		}
		if !opts.jsonOut {
			printFile(c.out, out)
		}
	}
	return nil
}

// printResult prints the outcome with metrics, placements and relation
// checks.
func printResult(w io.Writer, inst model.Instance, res model.LayoutResult, hit bool, minContact float64) {
	switch {
	case res.IsSolved() && res.CertifiedOptimal:
		printSuccess(w, "Solved %s: certified optimum %s", inst.Name, cachedTag(hit))
	case res.IsSolved():
		printSuccess(w, "Solved %s: best layout found, gap %s %s", inst.Name, gapString(res.Gap), cachedTag(hit))
	case res.Status == model.StatusInfeasible:
		printError(w, "%s is infeasible: no layout satisfies every constraint %s", inst.Name, cachedTag(hit))
		return
	default:
		printWarning(w, "%s: time limit reached before any feasible layout", inst.Name)
		printDetail(w, "retry with a longer --time-limit or a looser --gap")
		return
	}

	l := *res.Layout
	fmt.Fprintln(w)
	printKeyValue(w, "Objective", res.Objective.Title())
	printKeyValue(w, "Value", fmt.Sprintf("%.4g", res.ObjectiveValue))
	printKeyValue(w, "Unused area", fmt.Sprintf("%.4g of %.4g", l.UnusedArea(), l.Boundary.Area()))
	printKeyValue(w, "Efficiency", fmt.Sprintf("%.1f%%", l.Efficiency()))
	printKeyValue(w, "Total perimeter", fmt.Sprintf("%.4g", l.TotalPerimeter()))
	if len(inst.Rooms) > 1 {
		printKeyValue(w, "Adjacency score", fmt.Sprintf("%.4g", l.AdjacencyScore(inst, minContact)))
	}
	if free, ok := model.LargestFreeRegion(l); ok {
		r := free.Rect()
		printKeyValue(w, "Largest free area", fmt.Sprintf("%.4gx%.4g at (%.4g, %.4g)", r.Width, r.Height, r.X, r.Y))
	}
	if res.Stats.Oracle != "" {
		printDetail(w, "%s · %d nodes · %s", res.Stats.Oracle, res.Stats.Nodes, res.Stats.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(l.Order))
	for _, id := range l.Order {
		r := l.Rooms[id]
		label := id
		if spec, _, ok := inst.Room(id); ok {
			label = spec.DisplayName()
		}
		rows = append(rows, []string{
			id, label,
			num(r.X), num(r.Y), num(r.Width), num(r.Height), num(r.Area()),
		})
	}
	printTable(w, []string{"Room", "Label", "X", "Y", "Width", "Height", "Area"}, rows)

	if len(inst.Relations) > 0 {
		fmt.Fprintln(w)
		for _, rel := range inst.Relations {
			if rel.Satisfied(l, inst.Spacing) {
				printSuccess(w, "%s", rel.String())
			} else {
				printError(w, "%s", rel.String())
			}
		}
	}
}

func gapString(gap float64) string {
	if gap < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.2f%%", gap*100)
}

func num(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func (c *CLI) compareCommand() *cobra.Command {
	var timeLimit time.Duration
	cmd := &cobra.Command{
		Use:   "compare <instance>",
		Short: "Solve one instance under several objectives and budgets and rank them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, err := project.LoadInstance(args[0])
			if err != nil {
				return err
			}
			cfg := c.cfg.Solver
			if cmd.Flags().Changed("time-limit") {
				cfg.TimeLimit = model.Duration(timeLimit)
			}
			solver, env, err := c.openSolver()
			if err != nil {
				return err
			}
			defer env.Close()

			results := solver.CompareScenarios(cmd.Context(), inst, engine.BuildDefaultScenarios(cfg))
			printComparison(c.out, engine.RankResults(results))
			return nil
		},
	}
	cmd.Flags().DurationVarP(&timeLimit, "time-limit", "t", 0, "base time limit per scenario (default from config)")
	return cmd
}

func printComparison(w io.Writer, ranked []engine.ComparisonResult) {
	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		status := string(r.Result.Status)
		switch {
		case r.Err != nil:
			status = "error: " + r.Err.Error()
		case r.Result.CertifiedOptimal:
			status = "optimal"
		case r.Result.IsSolved():
			status = "gap " + gapString(r.Result.Gap)
		}
		row := []string{fmt.Sprint(i + 1), r.Scenario.Name, status, "-", "-", "-", "-"}
		if r.Solved() {
			row[3] = fmt.Sprintf("%.1f%%", r.Efficiency)
			row[4] = num(r.UnusedArea)
			row[5] = num(r.TotalPerimeter)
			row[6] = num(r.AdjacencyScore)
		}
		rows = append(rows, row)
	}
	printTitle(w, "Scenario comparison")
	printTable(w, []string{"#", "Scenario", "Status", "Efficiency", "Unused", "Perimeter", "Adjacency"}, rows)
}
