package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/score"
	"github.com/rustyeddy/quantlab/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run parameter grid sweeps",
	Long: `Sweep backtests every combination of a strategy's parameter grid
on one or more symbol/timeframe pairs, scoring and saving each run
to the experiment catalogue.

Example:
  quantlab sweep --strategy StochRSIMeanReversion --symbol SPY --timeframe 5m
  quantlab sweep --quick`,
	RunE: runSweep,
}

var (
	swStrategy     string
	swSymbol       string
	swTimeframe    string
	swStart        string
	swEnd          string
	swQuick        bool
	swExperimentID string
	swNoSkip       bool
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&swStrategy, "strategy", "s", "", "strategy name")
	sweepCmd.Flags().StringVar(&swSymbol, "symbol", "", "single symbol to sweep")
	sweepCmd.Flags().StringVarP(&swTimeframe, "timeframe", "t", "", "single timeframe to sweep")
	sweepCmd.Flags().StringVar(&swStart, "start", "2020-01-01", "start date (YYYY-MM-DD)")
	sweepCmd.Flags().StringVar(&swEnd, "end", "2025-12-31", "end date (YYYY-MM-DD)")
	sweepCmd.Flags().BoolVar(&swQuick, "quick", false, "quick smoke test with a small grid")
	sweepCmd.Flags().StringVar(&swExperimentID, "experiment-id", "", "custom experiment group id")
	sweepCmd.Flags().BoolVar(&swNoSkip, "no-skip", false, "don't skip already-tested combinations")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if !swQuick && swStrategy == "" {
		return fmt.Errorf("specify --strategy or --quick")
	}

	_, log, cat, loader, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	start, end, err := parseDates(swStart, swEnd)
	if err != nil {
		return err
	}

	engine := sweep.New(loader, cat, log)
	engine.ShowProgress = true

	if swQuick {
		name := swStrategy
		if name == "" {
			name = "StochRSIMeanReversion"
		}
		grid, ok := sweep.QuickGrids[name]
		if !ok {
			for _, g := range sweep.QuickGrids {
				grid = g
				break
			}
		}
		symbol := swSymbol
		if symbol == "" {
			symbol = "SPY"
		}
		tf := market.H1
		if swTimeframe != "" {
			if tf, err = market.ParseTimeframe(swTimeframe); err != nil {
				return err
			}
		}
		experimentID := swExperimentID
		if experimentID == "" {
			experimentID = "quick_" + name
		}
		report, err := engine.Run(sweep.Request{
			Strategy:     name,
			Grid:         grid,
			Symbol:       symbol,
			Timeframe:    tf,
			Start:        start,
			End:          end,
			ExperimentID: experimentID,
			SkipTested:   !swNoSkip,
		})
		if err != nil {
			return err
		}
		printSweepSummary(cat, report)
		return nil
	}

	grid, ok := sweep.DefaultGrids[swStrategy]
	if !ok {
		return fmt.Errorf("unknown strategy %q, available: %s",
			swStrategy, strings.Join(sweep.Strategies(), ", "))
	}

	symbols := sweep.DefaultSymbols
	if swSymbol != "" {
		symbols = []string{swSymbol}
	}
	timeframes := sweep.DefaultTimeframes
	if swTimeframe != "" {
		tf, err := market.ParseTimeframe(swTimeframe)
		if err != nil {
			return err
		}
		timeframes = []market.Timeframe{tf}
	}
	experimentID := swExperimentID
	if experimentID == "" {
		experimentID = "sweep_" + swStrategy
	}

	total := &sweep.Report{}
	for _, symbol := range symbols {
		for _, tf := range timeframes {
			report, err := engine.Run(sweep.Request{
				Strategy:     swStrategy,
				Grid:         grid,
				Symbol:       symbol,
				Timeframe:    tf,
				Start:        start,
				End:          end,
				ExperimentID: experimentID,
				SkipTested:   !swNoSkip,
			})
			if err != nil {
				log.Warn("sweep failed: " + err.Error())
				continue
			}
			total.Outcomes = append(total.Outcomes, report.Outcomes...)
			total.Skipped += report.Skipped
			total.Errors += report.Errors
		}
	}
	printSweepSummary(cat, total)
	return nil
}

func printSweepSummary(cat *catalog.Catalog, report *sweep.Report) {
	sort.SliceStable(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].Score > report.Outcomes[j].Score
	})

	fmt.Printf("\nSweep summary: %d results, %d skipped, %d errors\n",
		len(report.Outcomes), report.Skipped, report.Errors)
	if n, err := cat.Count(); err == nil {
		fmt.Printf("Experiments in catalogue: %d\n", n)
	}

	shown := 0
	for _, out := range report.Outcomes {
		if out.Score <= score.Disqualified {
			continue
		}
		if shown == 0 {
			fmt.Println("\nTop results by score:")
		}
		shown++
		res := out.Result
		fmt.Printf("  %d. %s %s %s: score=%.4f return=%.2f%% sharpe=%.4f trades=%d dd=%.1f%%\n",
			shown, res.Strategy, res.Symbol, res.Timeframe,
			out.Score, res.ReturnPct, res.Sharpe, res.TotalTrades, res.MaxDrawdownPct)
		if shown == 10 {
			break
		}
	}
}

func parseDates(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date: %w", err)
	}
	return start, end, nil
}
