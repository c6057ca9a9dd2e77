package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"festsync/internal/config"
	"festsync/internal/enrich"
	"festsync/internal/fetch"
	"festsync/internal/services"
	"festsync/internal/services/imdb"
)

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var force bool
	var minScore float64
	var delayMS int
	var retries int
	var timeoutMS int

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Link films to IMDb titles and record ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("min-score") {
				minScore = cfg.Catalog.MinScore
			}
			if !flags.Changed("delay-ms") {
				delayMS = cfg.Catalog.DelayMS
			}
			if !flags.Changed("retries") {
				retries = cfg.Catalog.Retries
			}
			if !flags.Changed("timeout-ms") {
				timeoutMS = cfg.Catalog.TimeoutMS
			}
			switch {
			case limit < 0:
				return services.Wrap(services.ErrValidation, "cli", "enrich", "--limit must be >= 0", nil)
			case minScore < 0 || minScore > 100:
				return services.Wrap(services.ErrValidation, "cli", "enrich", "--min-score must be between 0 and 100", nil)
			case delayMS < 0 || retries < 0 || timeoutMS <= 0:
				return services.Wrap(services.ErrValidation, "cli", "enrich", "--delay-ms and --retries must be >= 0, --timeout-ms > 0", nil)
			}

			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			st, err := ctx.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			fetchOpts := []fetch.Option{fetch.WithLogger(logger)}
			if cfg.Catalog.RespectRobots {
				fetchOpts = append(fetchOpts, fetch.WithRobots(cfg.Catalog.UserAgent))
			}
			client := imdb.NewClient(imdb.Config{
				SuggestBaseURL: cfg.Catalog.SuggestBaseURL,
				TitleBaseURL:   cfg.Catalog.TitleBaseURL,
				UserAgent:      cfg.Catalog.UserAgent,
				Timeout:        time.Duration(timeoutMS) * time.Millisecond,
				Retries:        retries,
			}, fetch.NewClient(fetchOpts...))

			summary, err := enrich.NewEnricher(st, client, minScore, logger).Run(cmd.Context(), enrich.Options{
				Force: force,
				Limit: limit,
				Delay: time.Duration(delayMS) * time.Millisecond,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Enriched %d/%d films: matched=%d rated=%d unmatched=%d collisions=%d errors=%d\n",
				summary.Processed, summary.Target, summary.Matched, summary.Rated,
				summary.Unmatched, summary.Collisions, summary.Errors)
			return nil
		},
	}

	defaults := config.Default().Catalog
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum films to process (0 = all)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-match films that already have a link")
	cmd.Flags().Float64Var(&minScore, "min-score", defaults.MinScore, "Minimum match score to accept")
	cmd.Flags().IntVar(&delayMS, "delay-ms", defaults.DelayMS, "Pause between films in milliseconds")
	cmd.Flags().IntVar(&retries, "retries", defaults.Retries, "Retries per catalog request after the first attempt")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", defaults.TimeoutMS, "Per-attempt request timeout in milliseconds")
	return cmd
}
