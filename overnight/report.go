package overnight

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/rustyeddy/quantlab/catalog"
)

// Report renders the final text report for a finished run: timing,
// experiment counts, the validation breakdown and the all-time top
// experiments from the catalogue.
func (o *Orchestrator) Report(s *Summary) (string, error) {
	var b bytes.Buffer

	fmt.Fprintln(&b, "OVERNIGHT DISCOVERY REPORT")
	fmt.Fprintf(&b, "Runtime: %s\n", fmtDuration(s.Budget.Elapsed()))
	for _, pass := range []string{"sweep", "validate", "expand"} {
		if d := s.Budget.PassTime(pass); d > 0 {
			fmt.Fprintf(&b, "  %s: %.1fm\n", pass, d.Minutes())
		}
	}
	fmt.Fprintf(&b, "Experiments: %d -> %d (+%d new)\n",
		s.ExperimentsBefore, s.ExperimentsAfter, s.ExperimentsAfter-s.ExperimentsBefore)
	fmt.Fprintf(&b, "Validation: %d passed, %d marginal, %d rejected\n\n",
		len(s.Passed), len(s.Marginal), len(s.Rejected))

	if winners := s.Winners(); len(winners) > 0 {
		table := tablewriter.NewWriter(&b)
		table.SetHeader([]string{"Status", "Strategy", "Symbol", "TF", "Sharpe", "Test %", "WF Pass"})
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, w := range winners {
			testRet, wfRate := "-", "-"
			status := catalog.StatusMarginal
			if w.Verdict != nil {
				status = w.Verdict.Status
				if w.Verdict.Holdout != nil {
					testRet = strconv.FormatFloat(w.Verdict.Holdout.TestReturn, 'f', 1, 64) + "%"
				}
				if w.Verdict.WalkForward != nil {
					wfRate = strconv.FormatFloat(w.Verdict.WalkForward.PassRate*100, 'f', 0, 64) + "%"
				}
			} else {
				status = catalog.StatusPassed
			}
			table.Append([]string{
				status, w.Label, w.Symbol, w.Timeframe.String(),
				strconv.FormatFloat(w.Sharpe, 'f', 3, 64), testRet, wfRate,
			})
		}
		table.Render()
		fmt.Fprintln(&b)
	}

	top, err := o.cat.TopCandidates(10, filterMinTrades, "")
	if err != nil {
		return "", err
	}
	if len(top) > 0 {
		fmt.Fprintln(&b, "Top 10 all-time by score:")
		table := tablewriter.NewWriter(&b)
		table.SetHeader([]string{"#", "Strategy", "Symbol", "TF", "Sharpe", "Return %", "Trades", "Status"})
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for i, exp := range top {
			table.Append([]string{
				strconv.Itoa(i + 1),
				exp.Strategy, exp.Symbol, exp.Timeframe,
				strconv.FormatFloat(exp.Sharpe, 'f', 3, 64),
				strconv.FormatFloat(exp.ReturnPct, 'f', 1, 64),
				strconv.Itoa(exp.TotalTrades),
				exp.ValidationStatus,
			})
		}
		table.Render()
	}
	return b.String(), nil
}
