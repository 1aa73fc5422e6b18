package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/datafeed/internal/control"
)

var deleteFeed bool

var resetCursorCmd = &cobra.Command{
	Use:   "reset-cursor [cursor_key]",
	Short: "Forget the stored datafeed position so the next run starts on a new feed",
	Args:  cobra.MaximumNArgs(1),
	Run:   runResetCursor,
}

func init() {
	resetCursorCmd.Flags().BoolVar(&deleteFeed, "delete-feed", false, "also delete the feed on the agent")
	rootCmd.AddCommand(resetCursorCmd)
}

func runResetCursor(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	controlCfg := control.FromAppConfig(cfg)
	controlCfg.Port = 0
	if len(args) == 1 {
		controlCfg.Datafeed.CursorKey = args[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := control.NewDatafeed(ctx, controlCfg)
	if err != nil {
		slog.Error("Failed to initialize datafeed", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	prev, err := app.ResetCursor(ctx, deleteFeed)
	if err != nil {
		slog.Error("Failed to reset cursor", "error", err)
		os.Exit(1)
	}
	if prev.IsZero() {
		fmt.Printf("No cursor stored under %s\n", controlCfg.Datafeed.CursorKey)
		return
	}

	fmt.Printf("Successfully reset cursor %s (feed %s)\n", controlCfg.Datafeed.CursorKey, prev.FeedID)
}
