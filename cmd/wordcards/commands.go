package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conorfennell/wordcards/internal/domain"
	"github.com/conorfennell/wordcards/internal/importer"
	"github.com/conorfennell/wordcards/internal/jobs"
	"github.com/conorfennell/wordcards/internal/queue"
	"github.com/conorfennell/wordcards/internal/web"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if a.cfg.Sync.Interval > 0 {
				scheduler := jobs.New(a.importer, a.cfg.Sync.Interval, a.logger)
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
				defer scheduler.Stop()
			}

			server := web.NewServer(a.review, a.catalog, a.importer, web.Options{
				DefaultLimit: a.cfg.Review.DefaultLimit,
				CORSOrigins:  a.cfg.Server.CORSOrigins,
				Ping:         a.db.Ping,
				Logger:       a.logger,
			})
			httpServer := &http.Server{
				Addr:         a.cfg.Server.Addr,
				Handler:      server,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 5 * time.Minute, // POST /api/sync may clone repositories
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("HTTP server starting", "addr", httpServer.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down gracefully")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("HTTP server shutdown error", "error", err)
			}
			return nil
		}),
	}
	cmd.Flags().String("addr", "localhost:8080", "address to listen on")
	cmd.Flags().Int("default-limit", queue.DefaultLimit, "queue size when a request gives none")
	cmd.Flags().Duration("sync-interval", time.Hour, "interval between background re-imports (0 disables)")
	cmd.Flags().String("repos-dir", "repos", "directory for git source checkouts")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [dir|file]",
		Short: "Import a deck directory or file, or re-import all sources",
		Long: "With an argument, registers the path as a source if needed and imports it.\n" +
			"Without one, re-imports every registered source.",
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			var (
				report importer.Report
				err    error
			)
			if len(args) == 1 {
				report, err = a.importer.ImportPath(ctx, args[0])
			} else {
				report, err = a.importer.RunSync(ctx)
			}
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		}),
	}
	cmd.Flags().String("repos-dir", "repos", "directory for git source checkouts")
	return cmd
}

func printReport(r importer.Report) {
	fmt.Printf("Sources: %d, parsed: %d, inserted: %d, updated: %d, skipped: %d, orphaned: %d, errors: %d\n",
		r.Sources, r.Parsed, r.Inserted, r.Updated, r.Skipped, r.Orphaned, len(r.Errors))
	if len(r.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range r.Errors {
			fmt.Printf("- %s\n", e)
		}
	}
}

func addSourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-source <path|url.git>",
		Short: "Register a local deck directory or a git repository",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			source, err := a.importer.AddSource(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Added %s source %d: %s\n", source.Type, source.ID, source.Path)
			return nil
		}),
	}
}

func queueCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the next review queue",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Review.DefaultLimit
			}
			cards, err := a.review.ComposeQueue(ctx, limit)
			if err != nil {
				return err
			}
			if len(cards) == 0 {
				fmt.Println("Nothing to review.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWORD\tLEVEL\tSTUDIED\tMEANING")
			for _, c := range cards {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n", c.ID, c.Word, c.MasteryLevel, c.CorrectCount, c.StudyCount, truncate(c.Meaning, 50))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of cards (defaults to review.default_limit)")
	return cmd
}

func studyCmd() *cobra.Command {
	var correct, wrong bool
	cmd := &cobra.Command{
		Use:   "study <card-id>",
		Short: "Record one review answer for a card",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			card, err := a.review.RecordAttempt(ctx, args[0], correct && !wrong)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s (%d/%d correct)\n", card.Word, card.MasteryLevel, card.CorrectCount, card.StudyCount)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&correct, "correct", false, "the answer was right")
	cmd.Flags().BoolVar(&wrong, "wrong", false, "the answer was wrong")
	cmd.MarkFlagsMutuallyExclusive("correct", "wrong")
	cmd.MarkFlagsOneRequired("correct", "wrong")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			st, err := a.catalog.Statistics(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total\t%d\n", st.Total)
			fmt.Fprintf(w, "%s\t%d\n", domain.MasteryNew, st.New)
			fmt.Fprintf(w, "%s\t%d\n", domain.MasteryLearning, st.Learning)
			fmt.Fprintf(w, "%s\t%d\n", domain.MasteryMastered, st.Mastered)
			fmt.Fprintf(w, "Studied today\t%d\n", st.StudiedToday)
			fmt.Fprintf(w, "Accuracy\t%.0f%%\n", st.Accuracy*100)
			return w.Flush()
		}),
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
