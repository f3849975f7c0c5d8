package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conorfennell/wordcards/internal/catalog"
	"github.com/conorfennell/wordcards/internal/config"
	"github.com/conorfennell/wordcards/internal/importer"
	"github.com/conorfennell/wordcards/internal/mastery"
	"github.com/conorfennell/wordcards/internal/queue"
	"github.com/conorfennell/wordcards/internal/review"
	"github.com/conorfennell/wordcards/internal/sheet"
	"github.com/conorfennell/wordcards/internal/storage"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "wordcards",
		Short:         "Vocabulary flashcards with mastery tracking and review queues",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("db", "wordcards.db", "path to the SQLite database file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(addSourceCmd())
	rootCmd.AddCommand(queueCmd())
	rootCmd.AddCommand(studyCmd())
	rootCmd.AddCommand(statsCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app holds everything a command needs, built from the loaded config.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *storage.DB
	review   *review.Service
	catalog  *catalog.Service
	importer *importer.Importer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("database opened", "path", cfg.DB.Path)

	composer := queue.NewComposer()
	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		review:  review.NewService(db, mastery.NewTracker(), composer, logger),
		catalog: catalog.NewService(db),
		importer: importer.New(db, cfg.Sync.ReposDir, sheet.Options{
			SheetName:  cfg.Sync.Sheet.Name,
			SkipHeader: cfg.Sync.Sheet.SkipHeader,
		}, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}

func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
