package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"festsync/internal/config"
	"festsync/internal/fetch"
	"festsync/internal/ingest"
	"festsync/internal/services"
	"festsync/internal/services/feed"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var locale string
	var endpoint string
	var maxPages int
	var retries int
	var timeoutMS int

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the festival program into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("locale") {
				locale = cfg.Feed.Locale
			}
			if !flags.Changed("max-pages") {
				maxPages = cfg.Feed.MaxPages
			}
			if !flags.Changed("retries") {
				retries = cfg.Feed.Retries
			}
			if !flags.Changed("timeout-ms") {
				timeoutMS = cfg.Feed.TimeoutMS
			}
			locale = strings.TrimSpace(locale)
			if locale == "" {
				return services.Wrap(services.ErrValidation, "cli", "ingest", "--locale must not be empty", nil)
			}
			if retries < 0 || timeoutMS <= 0 {
				return services.Wrap(services.ErrValidation, "cli", "ingest", "--retries must be >= 0 and --timeout-ms > 0", nil)
			}
			target := strings.TrimSpace(endpoint)
			if target == "" {
				target = cfg.FeedEndpoint(locale)
			}
			timeout := time.Duration(timeoutMS) * time.Millisecond

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			client := feed.NewClient(feed.Config{
				Endpoint:  target,
				Origin:    cfg.Feed.Origin,
				UserAgent: cfg.Feed.UserAgent,
				Timeout:   timeout,
				Retries:   retries,
			}, fetch.NewClient(fetch.WithLogger(logger)))

			summary, err := ingest.NewPipeline(st, client, logger).Run(cmd.Context(), ingest.Options{
				Source:   cfg.Feed.Source,
				Locale:   locale,
				Endpoint: target,
				MaxPages: maxPages,
				Timeout:  timeout,
				Retries:  retries,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s finished: pages=%d items=%d\n",
				summary.RunID, summary.PagesFetched, summary.ItemsSeen)
			return nil
		},
	}

	defaults := config.Default().Feed
	cmd.Flags().StringVar(&locale, "locale", defaults.Locale, "Program locale")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Override the program endpoint URL")
	cmd.Flags().IntVar(&maxPages, "max-pages", defaults.MaxPages, "Maximum number of pages to fetch")
	cmd.Flags().IntVar(&retries, "retries", defaults.Retries, "Retries per page after the first attempt")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", defaults.TimeoutMS, "Per-attempt request timeout in milliseconds")
	return cmd
}
