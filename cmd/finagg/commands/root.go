package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"finagg/lib/configutil"
	"finagg/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	debug      *bool
)

var rootCmd = &cobra.Command{
	Use:   "finagg",
	Short: "finagg aggregates financial holdings from investment platforms into one report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(*debug)
		return configutil.LoadEnv()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Path to the config file (default: finagg.yaml or finagg.json5 found upwards from cwd).")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
}

// errExit carries a process exit code without printing anything more.
type errExit struct {
	code int
}

func (e errExit) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var exit errExit
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
