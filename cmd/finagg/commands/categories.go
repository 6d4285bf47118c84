package commands

import (
	"finagg/lib/scraper"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Lists the product categories that can be requested.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(tableRow("Category"))
		for _, c := range scraper.AllCategories() {
			t.AppendRow(tableRow(c))
		}
		t.Render()
	},
}
