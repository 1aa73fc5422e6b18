package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/datafeed/internal/control"
	"github.com/vietddude/datafeed/internal/core/config"
	"github.com/vietddude/datafeed/internal/feed/listener"
)

var (
	cfgPath   string
	isDebug   bool
	logEvents bool
)

var rootCmd = &cobra.Command{
	Use:   "datafeed",
	Short: "Datafeed consumer",
	Long:  `Datafeed reads the real-time event feed of a bot and dispatches every event to the registered listeners.`,
	Run:   runDatafeed,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVar(&logEvents, "log-events", true, "log every received event")
}

// loadConfig loads the configuration and sets up logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg
}

func runDatafeed(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := control.NewDatafeed(ctx, control.FromAppConfig(cfg))
	if err != nil {
		slog.Error("Failed to initialize datafeed", "error", err)
		os.Exit(1)
	}
	if logEvents {
		app.Subscribe(listener.NewLogging(slog.Default()))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		slog.Error("Failed to start datafeed", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	slog.Info("Datafeed started", "config", cfgPath, "bot", cfg.Bot.Username)

	exitCode := 0
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
	case <-app.Done():
		if err := app.Err(); err != nil {
			slog.Error("Datafeed loop terminated", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		exitCode = 1
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	slog.Info("Datafeed stopped gracefully")
}
