package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/catalog"
	"github.com/rustyeddy/quantlab/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate top experiments for overfitting",
	Long: `Validate pulls the best unvalidated experiments from the catalogue
and runs each through disqualification filters, a train/test holdout,
rolling walk-forward windows and a multi-asset consistency check.
Verdicts are written back to the catalogue.`,
	RunE: runValidate,
}

var vaTop int

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().IntVarP(&vaTop, "top", "n", 20, "number of top candidates to validate")
}

func runValidate(cmd *cobra.Command, args []string) error {
	_, log, cat, loader, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	pipeline := validate.New(loader, cat, log)
	verdicts, err := pipeline.TopCandidates(vaTop)
	if err != nil {
		return err
	}

	var passed, marginal, rejected int
	for _, v := range verdicts {
		switch v.Status {
		case catalog.StatusPassed:
			passed++
		case catalog.StatusMarginal:
			marginal++
		default:
			rejected++
		}
	}
	fmt.Printf("\nValidation summary: %d passed, %d marginal, %d rejected\n",
		passed, marginal, rejected)
	return nil
}
