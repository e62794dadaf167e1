package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/overnight"
	"github.com/rustyeddy/quantlab/sweep"
	"github.com/rustyeddy/quantlab/validate"
)

var overnightCmd = &cobra.Command{
	Use:   "overnight",
	Short: "Run the unattended discovery chain",
	Long: `Overnight chains broad sweeps, candidate filtering, validation and
winner expansion into a single run bounded by a wall-clock budget.

Example:
  quantlab overnight --max-hours 10
  quantlab overnight --quick --skip-composable`,
	RunE: runOvernight,
}

var (
	ovMaxHours       float64
	ovQuick          bool
	ovScan           bool
	ovMedium         bool
	ovSkipComposable bool
	ovSkipSweep      bool
	ovSkipValidation bool
	ovSymbols        string
	ovTimeframes     string
)

func init() {
	rootCmd.AddCommand(overnightCmd)

	overnightCmd.Flags().Float64Var(&ovMaxHours, "max-hours", 10, "time limit in hours")
	overnightCmd.Flags().BoolVar(&ovQuick, "quick", false, "smoke test with reduced grids")
	overnightCmd.Flags().BoolVar(&ovScan, "scan", false, "coarse scan to detect edges fast")
	overnightCmd.Flags().BoolVar(&ovMedium, "medium", false, "medium grids, balanced coverage")
	overnightCmd.Flags().BoolVar(&ovSkipComposable, "skip-composable", false, "skip composable sweeps")
	overnightCmd.Flags().BoolVar(&ovSkipSweep, "skip-sweep", false, "skip the broad sweep pass")
	overnightCmd.Flags().BoolVar(&ovSkipValidation, "skip-validation", false, "skip the validation pass")
	overnightCmd.Flags().StringVar(&ovSymbols, "symbols", "", "comma-separated symbols to target")
	overnightCmd.Flags().StringVar(&ovTimeframes, "timeframes", "", "comma-separated timeframes to target")
}

func runOvernight(cmd *cobra.Command, args []string) error {
	_, log, cat, loader, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	mode := overnight.ModeFull
	switch {
	case ovScan:
		mode = overnight.ModeScan
	case ovQuick:
		mode = overnight.ModeQuick
	case ovMedium:
		mode = overnight.ModeMedium
	}
	if ovQuick && !cmd.Flags().Changed("max-hours") {
		ovMaxHours = 1
	}

	var symbols []string
	if ovSymbols != "" {
		for _, s := range strings.Split(ovSymbols, ",") {
			symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	}
	var timeframes []market.Timeframe
	if ovTimeframes != "" {
		for _, s := range strings.Split(ovTimeframes, ",") {
			tf, err := market.ParseTimeframe(strings.TrimSpace(s))
			if err != nil {
				return err
			}
			timeframes = append(timeframes, tf)
		}
	}

	engine := sweep.New(loader, cat, log)
	pipeline := validate.New(loader, cat, log)
	orch := overnight.New(engine, pipeline, cat, log)

	summary, err := orch.Run(overnight.Options{
		Budget:         time.Duration(ovMaxHours * float64(time.Hour)),
		Mode:           mode,
		SkipComposable: ovSkipComposable,
		SkipSweep:      ovSkipSweep,
		SkipValidation: ovSkipValidation,
		Symbols:        symbols,
		Timeframes:     timeframes,
	})
	if err != nil {
		return err
	}

	report, err := orch.Report(summary)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}
