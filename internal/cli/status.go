package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/datafeed/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored datafeed positions",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	controlCfg := control.FromAppConfig(cfg)
	controlCfg.Port = 0

	app, err := control.NewDatafeed(ctx, controlCfg)
	if err != nil {
		slog.Error("Failed to initialize datafeed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	cursors, err := app.StoredCursors(ctx)
	if err != nil {
		slog.Error("Failed to read cursors", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "KEY\tFEED\tACK\tUPDATED")

	for _, c := range cursors {
		updated := "-"
		if c.UpdatedAt > 0 {
			updated = time.Unix(c.UpdatedAt, 0).Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Key, c.FeedID, c.AckID, updated)
	}
	_ = w.Flush()
}
