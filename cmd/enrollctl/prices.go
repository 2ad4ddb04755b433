package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var pricesCmd = &cobra.Command{
	Use:   "prices [file]",
	Short: "Validate a price table and print it normalized",
	Long: `Loads the price table from the given file, --prices, PRICE_TABLE_PATH or the
built-in default, validates it, and prints it with normalized keys.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrices,
}

func runPrices(cmd *cobra.Command, args []string) error {
	path := cfg.PriceTablePath
	if len(args) == 1 {
		path = args[0]
	}

	prices, err := loadPrices(path)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(prices)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %d locations OK\n%s", len(prices.Locations), out)
	return nil
}
