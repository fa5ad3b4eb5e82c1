package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/baely/bezos/internal/transaction"
)

var fetchRaw bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the feed once and print the filtered transactions",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "Print the unfiltered feed")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	if fetchRaw {
		client := transaction.NewFeedClient(cfg.Feed.URL, cfg.Feed.RequestTimeout).WithLogger(log)
		records, err := client.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(records)
	}

	monitor := transaction.NewMonitorFromConfig(cfg.Feed, log)
	if err := monitor.RunCycle(cmd.Context()); err != nil {
		return err
	}
	return printJSON(monitor.Snapshot())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
