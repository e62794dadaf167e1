package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise the experiment catalogue",
	Long: `Report prints per-strategy aggregates and the top experiments from
the catalogue, or the full text summary with --full.`,
	RunE: runReport,
}

var (
	rpTop       int
	rpMinTrades int
	rpStatus    string
	rpFull      bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().IntVarP(&rpTop, "top", "n", 10, "number of top experiments to show")
	reportCmd.Flags().IntVar(&rpMinTrades, "min-trades", 30, "minimum closed trades")
	reportCmd.Flags().StringVar(&rpStatus, "status", "", "filter by validation status")
	reportCmd.Flags().BoolVar(&rpFull, "full", false, "print the full text summary")
}

func runReport(cmd *cobra.Command, args []string) error {
	_, log, cat, _, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	if rpFull {
		text, err := cat.Summary(rpTop)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	}

	stats, err := cat.StrategyStats()
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No experiments recorded yet.")
		return nil
	}

	fmt.Println("Strategy overview:")
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Strategy", "Runs", "Avg Ann %", "Best Ann %", "Avg Score"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range stats {
		table.Append([]string{
			s.Strategy,
			strconv.Itoa(s.Runs),
			strconv.FormatFloat(s.AvgReturn, 'f', 2, 64),
			strconv.FormatFloat(s.BestReturn, 'f', 2, 64),
			strconv.FormatFloat(s.AvgScore, 'f', 4, 64),
		})
	}
	table.Render()

	top, err := cat.TopCandidates(rpTop, rpMinTrades, rpStatus)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return nil
	}

	fmt.Printf("\nTop %d experiments by score:\n", len(top))
	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Strategy", "Symbol", "TF", "Score", "Sharpe", "Ann %", "DD %", "Trades", "Status"})
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for i, exp := range top {
		table.Append([]string{
			strconv.Itoa(i + 1),
			exp.Strategy, exp.Symbol, exp.Timeframe,
			strconv.FormatFloat(exp.Score, 'f', 4, 64),
			strconv.FormatFloat(exp.Sharpe, 'f', 4, 64),
			strconv.FormatFloat(exp.AnnualisedReturn, 'f', 2, 64),
			strconv.FormatFloat(exp.MaxDrawdown, 'f', 1, 64),
			strconv.Itoa(exp.TotalTrades),
			exp.ValidationStatus,
		})
	}
	table.Render()
	return nil
}
