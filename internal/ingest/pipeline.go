package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"festsync/internal/logging"
	"festsync/internal/program"
	"festsync/internal/services"
	"festsync/internal/services/feed"
	"festsync/internal/store"
)

// EntityProgramItem is the raw entity type recorded for each feed item.
const EntityProgramItem = "program_item"

// PageFetcher retrieves one numbered feed page.
type PageFetcher interface {
	FetchPage(ctx context.Context, n int) (feed.Page, error)
}

// Options describe one ingest run.
type Options struct {
	Source   string
	Locale   string
	Endpoint string
	MaxPages int
	Timeout  time.Duration
	Retries  int
}

// Summary reports the outcome of a successful run.
type Summary struct {
	RunID        string    `json:"runId"`
	PagesFetched int       `json:"pagesFetched"`
	ItemsSeen    int       `json:"itemsSeen"`
	FinishedAt   time.Time `json:"finishedAt"`
}

type runParams struct {
	Endpoint  string `json:"endpoint"`
	MaxPages  int    `json:"maxPages"`
	TimeoutMS int64  `json:"timeoutMs"`
	Retries   int    `json:"retries"`
}

type runStats struct {
	PagesFetched int `json:"pagesFetched"`
	ItemsSeen    int `json:"itemsSeen"`
}

// Pipeline drives a paginated feed into the store.
type Pipeline struct {
	store   *store.Store
	fetcher PageFetcher
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for run and page timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) {
		if next != nil {
			p.newID = next
		}
	}
}

// NewPipeline constructs a pipeline writing to st and reading from fetcher.
func NewPipeline(st *store.Store, fetcher PageFetcher, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   st,
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests pages until the stop policy fires. Each page commits in its own
// transaction. On failure the run is recorded as failed and the error is
// returned; pages committed before the failure stay in place.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.MaxPages <= 0 {
		return Summary{}, services.Wrap(services.ErrValidation, "ingest", "run", "max pages must be positive", nil)
	}
	runID := p.newID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	params := runParams{
		Endpoint:  opts.Endpoint,
		MaxPages:  opts.MaxPages,
		TimeoutMS: opts.Timeout.Milliseconds(),
		Retries:   opts.Retries,
	}
	if err := p.store.StartRun(ctx, runID, opts.Source, opts.Locale, params); err != nil {
		return Summary{}, fmt.Errorf("start run: %w", err)
	}
	logger.Info("ingest run started",
		logging.String("endpoint", opts.Endpoint),
		logging.String("locale", opts.Locale),
		logging.Int("max_pages", opts.MaxPages),
	)

	stats, err := p.paginate(ctx, logger, runID, opts)
	if err == nil {
		err = p.finish(ctx, logger, runID, stats)
	}
	if err != nil {
		p.fail(ctx, logger, runID, err)
		return Summary{}, err
	}

	summary := Summary{
		RunID:        runID,
		PagesFetched: stats.PagesFetched,
		ItemsSeen:    stats.ItemsSeen,
		FinishedAt:   p.now().UTC(),
	}
	logger.Info("ingest run finished",
		logging.Int("pages_fetched", summary.PagesFetched),
		logging.Int("items_seen", summary.ItemsSeen),
	)
	return summary, nil
}

func (p *Pipeline) paginate(ctx context.Context, logger *slog.Logger, runID string, opts Options) (runStats, error) {
	var stats runStats
	for page := 1; ; page++ {
		fetched, err := p.fetcher.FetchPage(ctx, page)
		if err != nil {
			return stats, err
		}
		extracted := program.ExtractPage(fetched.Payload)

		if err := p.store.WithTx(ctx, func(tx *store.Tx) error {
			return p.storePage(ctx, tx, runID, opts, fetched, extracted.Items)
		}); err != nil {
			return stats, fmt.Errorf("store page %d: %w", page, err)
		}

		stats.PagesFetched++
		stats.ItemsSeen += len(extracted.Items)
		logger.Info("page stored", logging.Int("page", page), logging.Int("items", len(extracted.Items)))

		if ShouldStop(StopInput{
			CurrentPage: page,
			ItemsCount:  len(extracted.Items),
			HasNext:     extracted.HasNext,
			TotalPages:  extracted.TotalPages,
			MaxPages:    opts.MaxPages,
		}) {
			return stats, nil
		}
	}
}

func (p *Pipeline) storePage(ctx context.Context, tx *store.Tx, runID string, opts Options, fetched feed.Page, items []any) error {
	if err := tx.RecordRawPage(ctx, store.RawPage{
		RunID:         runID,
		PageNumber:    fetched.Number,
		Endpoint:      opts.Endpoint,
		RequestJSON:   fetched.Request,
		PayloadJSON:   fetched.Raw,
		PayloadSHA256: program.StableHash(fetched.Payload),
		HTTPStatus:    fetched.Status,
		FetchedAt:     p.now(),
	}); err != nil {
		return err
	}
	for _, item := range items {
		if err := p.storeItem(ctx, tx, runID, opts.Locale, item); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) storeItem(ctx context.Context, tx *store.Tx, runID, locale string, item any) error {
	payload, err := program.CanonicalJSON(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	if _, err := tx.RecordRawEntity(ctx, store.RawEntity{
		EntityType:    EntityProgramItem,
		SourceID:      program.ExtractSourceID(item),
		Locale:        locale,
		RunID:         runID,
		PayloadJSON:   payload,
		PayloadSHA256: program.StableHash(item),
	}); err != nil {
		return err
	}

	bundle := program.NormalizeItem(item)
	filmID, err := tx.UpsertFilm(ctx, runID, bundle.Film)
	if err != nil {
		return err
	}

	personIDs := make(map[string]int64, len(bundle.People))
	for _, person := range bundle.People {
		id, err := tx.UpsertPerson(ctx, runID, person)
		if err != nil {
			return err
		}
		personIDs[person.SourcePersonID] = id
	}
	for _, credit := range bundle.Credits {
		personID, ok := personIDs[credit.SourcePersonID]
		if !ok {
			continue
		}
		if err := tx.UpsertCredit(ctx, runID, filmID, personID, credit); err != nil {
			return err
		}
	}

	venueIDs := make(map[string]int64, len(bundle.Venues))
	for _, venue := range bundle.Venues {
		id, err := tx.UpsertVenue(ctx, runID, venue)
		if err != nil {
			return err
		}
		venueIDs[venue.SourceVenueID] = id
	}
	for _, screening := range bundle.Screenings {
		var venueID *int64
		if id, ok := venueIDs[screening.SourceVenueID]; ok {
			venueID = &id
		}
		if err := tx.UpsertScreening(ctx, runID, filmID, venueID, screening); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, runID string, stats runStats) error {
	swept, err := p.store.SweepInactive(ctx, runID)
	if err != nil {
		return fmt.Errorf("sweep inactive: %w", err)
	}
	if swept.Films > 0 || swept.Screenings > 0 {
		logger.Info("inactive rows swept",
			logging.Int64("films", swept.Films),
			logging.Int64("screenings", swept.Screenings),
		)
	}
	if err := p.store.FinishRun(ctx, runID, p.now(), stats); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// fail records the terminal state on a context detached from cancellation so
// an interrupted run still persists its failure.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, runID string, cause error) {
	if err := p.store.FailRun(context.WithoutCancel(ctx), runID, p.now(), cause.Error()); err != nil {
		logging.ErrorWithContext(logger, "record failed run", "ingest_run_record_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect ingest_runs manually"),
		)
	}
	logging.ErrorWithContext(logger, "ingest run failed", "ingest_run_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "rerun festsync ingest once the feed recovers"),
	)
}
