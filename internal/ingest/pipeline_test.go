package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"festsync/internal/fetch"
	"festsync/internal/ingest"
	"festsync/internal/logging"
	"festsync/internal/services/feed"
	"festsync/internal/store"
	"festsync/internal/testsupport"
)

type programServer struct {
	t      *testing.T
	pages  map[int][]byte
	status map[int]int
	hits   atomic.Int32
}

func newProgramServer(t *testing.T) *programServer {
	t.Helper()
	return &programServer{
		t: t,
		pages: map[int][]byte{
			1: testsupport.ReadFixture(t, "page_1.json"),
			2: testsupport.ReadFixture(t, "page_2.json"),
		},
		status: map[int]int{},
	}
}

func (s *programServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	var body struct {
		Page int `json:"Page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.t.Errorf("decode request body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if code, ok := s.status[body.Page]; ok {
		w.WriteHeader(code)
		return
	}
	payload, ok := s.pages[body.Page]
	if !ok {
		payload = []byte(`{"items":[]}`)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

func newPipeline(t *testing.T, st *store.Store, endpoint string, runIDs ...string) *ingest.Pipeline {
	t.Helper()
	fetcher := fetch.NewClient(fetch.WithSleeper(func(time.Duration) {}))
	client := feed.NewClient(feed.Config{Endpoint: endpoint, Timeout: 2 * time.Second}, fetcher)
	var opts []ingest.Option
	if len(runIDs) > 0 {
		var next int
		opts = append(opts, ingest.WithRunIDs(func() string {
			id := runIDs[next%len(runIDs)]
			next++
			return id
		}))
	}
	return ingest.NewPipeline(st, client, logging.NewNop(), opts...)
}

func runOptions(endpoint string, maxPages int) ingest.Options {
	return ingest.Options{
		Source:   "berlinale festival-program",
		Locale:   "de",
		Endpoint: endpoint,
		MaxPages: maxPages,
		Timeout:  2 * time.Second,
	}
}

func mustCount(t *testing.T, st *store.Store, table string) int64 {
	t.Helper()
	n, err := st.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("CountRows %s: %v", table, err)
	}
	return n
}

func TestPipelineEndToEnd(t *testing.T) {
	server := newProgramServer(t)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	pipeline := newPipeline(t, st, httpServer.URL)

	summary, err := pipeline.Run(context.Background(), runOptions(httpServer.URL, 500))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PagesFetched != 2 || summary.ItemsSeen != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" || summary.FinishedAt.IsZero() {
		t.Fatalf("summary missing run id or finish time: %+v", summary)
	}
	for table, want := range map[string]int64{
		"films":                 2,
		"screenings":            2,
		"raw_pages":             2,
		"raw_entities_current":  2,
		"raw_entities_versions": 2,
		"people":                3,
	} {
		if got := mustCount(t, st, table); got != want {
			t.Fatalf("%s: expected %d rows, got %d", table, want, got)
		}
	}

	run, err := st.GetRun(context.Background(), summary.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.Status != store.RunSuccess || run.StatsJSON != `{"pagesFetched":2,"itemsSeen":2}` {
		t.Fatalf("unexpected run row %+v", run)
	}
	if !strings.Contains(run.ParamsJSON, `"maxPages":500`) || !strings.Contains(run.ParamsJSON, `"timeoutMs":2000`) {
		t.Fatalf("unexpected params %s", run.ParamsJSON)
	}

	film, err := st.FilmBySourceID(context.Background(), "film-2")
	if err != nil || film == nil {
		t.Fatalf("FilmBySourceID: %v %v", film, err)
	}
	if film.Title != "Bonne chance" || film.RuntimeMinutes == nil || *film.RuntimeMinutes != 87 || film.Section != "Panorama" {
		t.Fatalf("unexpected normalized film %+v", film)
	}
	screening, _ := st.ScreeningBySourceID(context.Background(), "601-20260214-2130")
	if screening == nil || screening.StartsAtUTC != "2026-02-14T20:30:00Z" || screening.LocalTZ != "Europe/Berlin" {
		t.Fatalf("unexpected screening %+v", screening)
	}
}

func TestPipelineIsIdempotent(t *testing.T) {
	server := newProgramServer(t)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	pipeline := newPipeline(t, st, httpServer.URL)

	for i := 0; i < 2; i++ {
		if _, err := pipeline.Run(context.Background(), runOptions(httpServer.URL, 500)); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if got := server.hits.Load(); got != 4 {
		t.Fatalf("expected 4 page fetches, got %d", got)
	}
	if got := mustCount(t, st, "films"); got != 2 {
		t.Fatalf("expected 2 films, got %d", got)
	}
	if got := mustCount(t, st, "raw_entities_versions"); got != 2 {
		t.Fatalf("expected unchanged payloads to keep 2 versions, got %d", got)
	}
	if got := mustCount(t, st, "screenings"); got != 2 {
		t.Fatalf("expected 2 screenings, got %d", got)
	}
	if got := mustCount(t, st, "raw_pages"); got != 4 {
		t.Fatalf("expected raw pages per run, got %d", got)
	}
	film, _ := st.FilmBySourceID(context.Background(), "film-1")
	if film == nil || !film.Active {
		t.Fatalf("expected film-1 active after rerun, got %+v", film)
	}
}

func TestPipelineSoftDeletesVanishedFilms(t *testing.T) {
	server := newProgramServer(t)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	pipeline := newPipeline(t, st, httpServer.URL, "run-a", "run-b")

	if _, err := pipeline.Run(context.Background(), runOptions(httpServer.URL, 500)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	delete(server.pages, 2)
	server.pages[1] = []byte(strings.Replace(string(server.pages[1]), `"hasNext": true`, `"hasNext": false`, 1))

	summary, err := pipeline.Run(context.Background(), runOptions(httpServer.URL, 500))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.PagesFetched != 1 {
		t.Fatalf("expected single page in second run, got %d", summary.PagesFetched)
	}

	ctx := context.Background()
	gone, _ := st.FilmBySourceID(ctx, "film-2")
	if gone == nil || gone.Active || gone.LastSeenRunID != "run-a" {
		t.Fatalf("expected film-2 kept but inactive, got %+v", gone)
	}
	kept, _ := st.FilmBySourceID(ctx, "film-1")
	if kept == nil || !kept.Active || kept.LastSeenRunID != "run-b" {
		t.Fatalf("expected film-1 active in run-b, got %+v", kept)
	}
	screening, _ := st.ScreeningBySourceID(ctx, "601-20260214-2130")
	if screening == nil || screening.Active {
		t.Fatalf("expected screening of vanished film inactive, got %+v", screening)
	}
	if got := mustCount(t, st, "film_credits"); got != 3 {
		t.Fatalf("expected credits preserved, got %d", got)
	}
	if got := mustCount(t, st, "raw_entities_versions"); got != 2 {
		t.Fatalf("expected versions preserved, got %d", got)
	}
}

func TestPipelineRecordsFailedRun(t *testing.T) {
	server := newProgramServer(t)
	server.status[2] = http.StatusInternalServerError
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	pipeline := newPipeline(t, st, httpServer.URL, "run-fail")

	_, err := pipeline.Run(context.Background(), runOptions(httpServer.URL, 500))
	if err == nil {
		t.Fatal("expected run to fail")
	}
	var reqErr *fetch.RequestFailedError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected request failure, got %v", err)
	}

	run, _ := st.GetRun(context.Background(), "run-fail")
	if run == nil || run.Status != store.RunFailed || run.EndedAt == nil {
		t.Fatalf("expected failed run row, got %+v", run)
	}
	if !strings.Contains(run.ErrorText, "request failed with status 500") {
		t.Fatalf("unexpected error text %q", run.ErrorText)
	}
	if got := mustCount(t, st, "films"); got != 1 {
		t.Fatalf("expected page 1 to stay committed, got %d films", got)
	}
	film, _ := st.FilmBySourceID(context.Background(), "film-1")
	if film == nil || !film.Active {
		t.Fatalf("failed run must not sweep, got %+v", film)
	}
}

// cancellingFetcher serves pages from a feed client and cancels the run
// context right after returning the given page.
type cancellingFetcher struct {
	inner    ingest.PageFetcher
	cancelOn int
	cancel   context.CancelFunc
}

func (f *cancellingFetcher) FetchPage(ctx context.Context, n int) (feed.Page, error) {
	page, err := f.inner.FetchPage(ctx, n)
	if n == f.cancelOn {
		f.cancel()
	}
	return page, err
}

func TestPipelineCancelledPageLeavesNoPartialWrites(t *testing.T) {
	server := newProgramServer(t)
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := feed.NewClient(feed.Config{Endpoint: httpServer.URL, Timeout: 2 * time.Second}, fetch.NewClient())
	fetcher := &cancellingFetcher{inner: client, cancelOn: 2, cancel: cancel}
	pipeline := ingest.NewPipeline(st, fetcher, logging.NewNop(), ingest.WithRunIDs(func() string { return "run-cancel" }))

	if _, err := pipeline.Run(ctx, runOptions(httpServer.URL, 500)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	bg := context.Background()
	if film, _ := st.FilmBySourceID(bg, "film-2"); film != nil {
		t.Fatalf("expected page 2 uncommitted, found %+v", film)
	}
	if got := mustCount(t, st, "raw_pages"); got != 1 {
		t.Fatalf("expected one committed page, got %d", got)
	}
	run, _ := st.GetRun(bg, "run-cancel")
	if run == nil || run.Status != store.RunFailed {
		t.Fatalf("expected failed run recorded after cancel, got %+v", run)
	}
}

func TestPipelineStopsAtMaxPages(t *testing.T) {
	server := newProgramServer(t)
	for i := 1; i <= 5; i++ {
		server.pages[i] = []byte(fmt.Sprintf(`{"items":[{"id":"film-%d","title":"Film %d"}]}`, i, i))
	}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	summary, err := newPipeline(t, st, httpServer.URL).Run(context.Background(), runOptions(httpServer.URL, 3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PagesFetched != 3 || server.hits.Load() != 3 {
		t.Fatalf("expected 3 pages, got summary %+v hits %d", summary, server.hits.Load())
	}
}
