package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tkilaker/newsio/internal/config"
	"github.com/tkilaker/newsio/internal/logger"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/pipeline"
	"github.com/tkilaker/newsio/internal/server"
	"github.com/tkilaker/newsio/internal/sources"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "newsio",
		Short:         "Country-filterable news aggregator",
		Long:          "newsio polls news feeds, stores each article once and serves a country-filterable feed with trending tags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			logger.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}

	load := func() *config.Config { return cfg }
	root.AddCommand(
		newServeCmd(load),
		newFetchCmd(load),
		newEnrichCmd(load),
		newSourcesCmd(load),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and the fetch scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := load()
			slog.Info("starting newsio", "version", version)

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.SchedulerEnabled {
				sched := pipeline.NewScheduler(a.cycle, cfg.ScheduleInterval)
				if err := sched.Start(ctx); err != nil {
					return fmt.Errorf("failed to start scheduler: %w", err)
				}
				defer sched.Stop()
				slog.Info("scheduler started", "interval", cfg.ScheduleInterval, "stale_after", pipeline.StaleAfter)
			}

			srv := server.New(a.store, a.cycle, a.news, a.registry, cfg)
			return srv.Start(ctx, fmt.Sprintf(":%d", cfg.Port))
		},
	}
}

func newFetchCmd(load func() *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one fetch cycle",
		Long: `Fetch every configured feed and store new articles.

The cycle is skipped when the last one finished less than an hour ago, unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, load())
			if err != nil {
				return err
			}
			defer a.Close()

			var report *pipeline.Report
			if force {
				report, err = a.cycle.Run(ctx)
			} else {
				var ran bool
				ran, report, err = a.cycle.RunIfStale(ctx)
				if err == nil && !ran {
					last, _, _ := a.cycle.Gate().LastFetch(ctx)
					fmt.Fprintf(cmd.OutOrStdout(), "Feeds are fresh (last fetch %s ago). Use --force to fetch anyway.\n",
						time.Since(last).Round(time.Second))
					return nil
				}
			}
			if err != nil {
				return fmt.Errorf("fetch failed: %w", err)
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "fetch even if the last cycle is recent")
	return cmd
}

func newEnrichCmd(load func() *config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich stored articles that have not been processed yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, load())
			if err != nil {
				return err
			}
			defer a.Close()

			done, err := a.cycle.EnrichPending(ctx, limit)
			if err != nil {
				return fmt.Errorf("enrichment failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enriched %d article(s).\n", done)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of articles to enrich")
	return cmd
}

func newSourcesCmd(load func() *config.Config) *cobra.Command {
	var country string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured feed sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := sources.LoadOrDefault(load().FeedsFile)
			if err != nil {
				return fmt.Errorf("failed to load feed sources: %w", err)
			}
			c := news.NormalizeCountry(country)
			if !registry.HasCountry(c) {
				return fmt.Errorf("unknown country %q", country)
			}
			printSources(cmd.OutOrStdout(), registry.ForCountry(c))
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "only list sources for this country")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsio %s (commit: %s)\n", version, commit)
		},
	}
}

func printSources(w io.Writer, list []sources.Source) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOUNTRY\tURL")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Country, s.URL)
	}
	tw.Flush()
}

func printReport(w io.Writer, r *pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCOUNTRY\tFETCHED\tNEW\tSTORED\tSTATUS")
	for _, s := range r.Sources {
		status := "ok"
		if s.Error != "" {
			status = "error: " + s.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", s.Name, s.Country, s.Fetched, s.Inserted, s.Skipped, status)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s (%s)\n", r.Message(), r.Duration.Round(time.Millisecond))
}
