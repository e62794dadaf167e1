package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/quantlab/marketdata"
)

var importCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Import a HistData minute-bar archive",
	Long: `Import extracts a HistData zip archive, stitches its minute bars
and writes them into the data directory under the standard
SYMBOL_START_END_1m.csv naming.

Example:
  quantlab import --symbol EURUSD DAT_ASCII_EURUSD_M1_2021.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var imSymbol string

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&imSymbol, "symbol", "", "symbol the archive covers (required)")
	importCmd.MarkFlagRequired("symbol")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, cat, _, err := setup()
	if err != nil {
		return err
	}
	defer cat.Close()
	defer log.Sync()

	out, err := marketdata.ImportHistDataZip(args[0], cfg.Data.Dir, strings.ToUpper(imSymbol))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %s -> %s\n", args[0], out)
	return nil
}
