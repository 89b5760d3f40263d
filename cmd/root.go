package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Rorical/farmchat/internal/app"
	"github.com/Rorical/farmchat/internal/config"
	"github.com/Rorical/farmchat/internal/logging"
	"github.com/Rorical/farmchat/internal/metrics"
)

var (
	logFile     string
	logLevel    string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "farmchat",
	Short: "Terminal client for the farming assistant",
	Long: `farmchat is a terminal chat client for a farming assistant. It shows suggested
follow-up questions in the language of your choice and translates them as they arrive.`,
	Run: func(cmd *cobra.Command, args []string) {
		runChat(mustLoadConfig())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", `log file path, or "-" for stderr (default $FARMCHAT_HOME/.farmchat/farmchat.log)`)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	rootCmd.AddCommand(profileCmd)
}

func runChat(cfg *config.Config) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		log.Fatalf("farmchat needs an interactive terminal")
	}

	path, err := resolveLogPath(logFile)
	if err != nil {
		log.Fatalf("Failed to resolve log path: %v", err)
	}
	level := cfg.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level, Path: path})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr, logger); err != nil {
				logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	application, err := app.NewApplication(app.Options{Config: cfg, Logger: logger})
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Stop()

	if err := application.Start(tea.WithAltScreen()); err != nil {
		logger.WithError(err).Error("Application error")
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
	}
}

func resolveLogPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "farmchat.log"), nil
}
