package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/strategy/blocks"
	"github.com/rustyeddy/quantlab/sweep"
)

var composableCmd = &cobra.Command{
	Use:   "composable",
	Short: "Sweep generated block-combination strategies",
	Long: `Composable generates every compatible entry/exit/filter/sizer
combination from the building-block catalogue and backtests each on
one symbol and timeframe.

Example:
  quantlab composable --symbol GLD --timeframe 1h
  quantlab composable --describe`,
	RunE: runComposable,
}

var (
	coSymbol    string
	coTimeframe string
	coStart     string
	coEnd       string
	coQuick     bool
	coDescribe  bool
	coNoSkip    bool
)

func init() {
	rootCmd.AddCommand(composableCmd)

	composableCmd.Flags().StringVar(&coSymbol, "symbol", "GLD", "symbol to test")
	composableCmd.Flags().StringVarP(&coTimeframe, "timeframe", "t", "1h", "timeframe")
	composableCmd.Flags().StringVar(&coStart, "start", "2020-01-01", "start date (YYYY-MM-DD)")
	composableCmd.Flags().StringVar(&coEnd, "end", "2025-12-31", "end date (YYYY-MM-DD)")
	composableCmd.Flags().BoolVar(&coQuick, "quick", false, "test only the first 10 combinations")
	composableCmd.Flags().BoolVar(&coDescribe, "describe", false, "list the available blocks and exit")
	composableCmd.Flags().BoolVar(&coNoSkip, "no-skip", false, "don't skip already-tested combinations")
}

func runComposable(cmd *cobra.Command, args []string) error {
	if coDescribe {
		describeBlocks()
		return nil
	}

	tf, err := market.ParseTimeframe(coTimeframe)
	if err != nil {
		return err
	}
	start, end, err := parseDates(coStart, coEnd)
	if err != nil {
		return err
	}

	_, log, cat, loader, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	engine := sweep.New(loader, cat, log)
	engine.ShowProgress = true

	limit := 0
	if coQuick {
		limit = 10
	}
	report, err := engine.RunComposable(sweep.ComposableRequest{
		Symbol:     coSymbol,
		Timeframe:  tf,
		Start:      start,
		End:        end,
		Limit:      limit,
		SkipTested: !coNoSkip,
	})
	if err != nil {
		return err
	}

	positive := 0
	for _, out := range report.Outcomes {
		if out.Result.ReturnPct > 0 {
			positive++
		}
	}
	fmt.Printf("\nResults: %d positive, %d negative out of %d tested (%d skipped)\n",
		positive, len(report.Outcomes)-positive, len(report.Outcomes), report.Skipped)
	if best := report.Best(); best != nil {
		fmt.Printf("Best Sharpe: %.3f\n", best.Result.Sharpe)
		fmt.Printf("Best combo: %s + %s + %s + %s\n",
			best.Result.Params.Str("entry", "?"),
			best.Result.Params.Str("exit", "?"),
			best.Result.Params.Str("filter", "?"),
			best.Result.Params.Str("sizer", "?"))
	}
	if n, err := cat.Count(); err == nil {
		fmt.Printf("Experiments in catalogue: %d\n", n)
	}
	return nil
}

func describeBlocks() {
	fmt.Println("Entries:")
	for _, e := range blocks.Entries() {
		fmt.Printf("  %s\n", e.Name)
	}
	fmt.Println("Exits:")
	for _, e := range blocks.Exits() {
		fmt.Printf("  %s\n", e.Name)
	}
	fmt.Println("Filters:")
	for _, f := range blocks.Filters() {
		fmt.Printf("  %s\n", f.Name)
	}
	fmt.Println("Sizers:")
	for _, s := range blocks.Sizers() {
		fmt.Printf("  %s\n", s.Name)
	}
	fmt.Printf("\nCompatible combinations: %d\n", blocks.Count(true))
}
