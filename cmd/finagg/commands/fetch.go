package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"finagg/lib/restyutil"
	"finagg/lib/scraper"

	"github.com/spf13/cobra"
)

var (
	fetchCategories *[]string
	fetchJson       *bool
	fetchDumpHttp   *string
)

func init() {
	fetchCategories = fetchCmd.Flags().StringSlice("categories", nil, fmt.Sprintf("Categories to fetch (%s).", categoryNames()))
	fetchJson = fetchCmd.Flags().Bool("json", false, "Print the results as json instead of tables.")
	fetchDumpHttp = fetchCmd.Flags().String("dump-http", "", "Write every http exchange into this directory, credentials are redacted.")
	rootCmd.AddCommand(fetchCmd)
}

func categoryNames() string {
	var names []string
	for _, c := range scraper.AllCategories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ",")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--categories cash,funds] [--json] [--dump-http <dir>]",
	Short: "Logs into every configured platform and fetches the requested categories.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := readConfig(*configPath)
		if err != nil {
			return err
		}
		categories, err := cfg.categories(*fetchCategories)
		if err != nil {
			return err
		}

		if *fetchDumpHttp != "" && cfg.MyInvestor != nil {
			output, err := restyutil.NewFilesystemOutput(*fetchDumpHttp)
			if err != nil {
				return err
			}
			cfg.MyInvestor.Session.Instrument = output
		}

		scrapers, err := cfg.scrapers()
		if err != nil {
			return err
		}

		orchestrator := cfg.orchestrator()
		results := make([]scraper.FetchResult, len(scrapers))
		wg := sync.WaitGroup{}
		for i, s := range scrapers {
			wg.Add(1)
			go func(i int, s scraper.Scraper) {
				defer wg.Done()
				slog.InfoContext(ctx, "fetching", "platform", s.Platform(), "categories", categories)
				results[i] = orchestrator.FetchAll(ctx, s, categories)
			}(i, s)
		}
		wg.Wait()

		if *fetchJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			err = encoder.Encode(results)
			if err != nil {
				return err
			}
		} else {
			renderResults(os.Stdout, results)
		}

		return exitStatus(results)
	},
}

// 1 when any platform failed entirely, 2 when some categories failed
func exitStatus(results []scraper.FetchResult) error {
	degraded := false
	for _, r := range results {
		switch r.Outcome() {
		case scraper.OutcomeFatal:
			return errExit{code: 1}
		case scraper.OutcomeDegraded:
			degraded = true
		}
	}
	if degraded {
		return errExit{code: 2}
	}
	return nil
}
