package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks the config file (endpoints, field mappings, categories) without making any request.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(*configPath)
		if err != nil {
			return err
		}
		categories, err := cfg.categories(nil)
		if err != nil {
			return err
		}
		scrapers, err := cfg.scrapers()
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(tableRow("Platform", "Category", "Status"))
		for _, s := range scrapers {
			for _, c := range categories {
				status := "ok"
				if !s.Supports(c) {
					status = "unsupported"
				}
				t.AppendRow(tableRow(s.Platform(), c, status))
			}
		}
		t.Render()
		fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
		return nil
	},
}

