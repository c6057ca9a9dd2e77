package fetch_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"festsync/internal/fetch"
	"festsync/internal/services"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.delays = append(r.delays, d)
}

func noJitter(time.Duration) time.Duration { return 0 }

func newTestClient(rec *sleepRecorder, opts ...fetch.Option) *fetch.Client {
	base := []fetch.Option{
		fetch.WithSleeper(rec.sleep),
		fetch.WithJitterSource(noJitter),
	}
	return fetch.NewClient(append(base, opts...)...)
}

func TestDoRetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(rec)
	resp, err := client.Do(context.Background(), fetch.Request{URL: server.URL}, fetch.Policy{Timeout: time.Second, Retries: 4})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if string(resp.Body) != `{"ok":true}` || resp.Attempts != 3 {
		t.Fatalf("unexpected response: body=%q attempts=%d", resp.Body, resp.Attempts)
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(rec.delays) != len(want) {
		t.Fatalf("unexpected sleeps: %v", rec.delays)
	}
	for i := range want {
		if rec.delays[i] != want[i] {
			t.Fatalf("sleep %d: got %s want %s", i, rec.delays[i], want[i])
		}
	}
}

func TestDoHonoursRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"integer seconds", "2", 2 * time.Second},
		{"fractional seconds", "1.5", 1500 * time.Millisecond},
		{"negative clamps to zero", "-3", 0},
		{"past date clamps to zero", "Mon, 02 Jan 2006 15:04:05 GMT", 0},
		{"garbage falls back to backoff", "soon", 500 * time.Millisecond},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&hits, 1) == 1 {
					w.Header().Set("Retry-After", tc.header)
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			rec := &sleepRecorder{}
			client := newTestClient(rec)
			if _, err := client.Do(context.Background(), fetch.Request{URL: server.URL}, fetch.Policy{Timeout: time.Second, Retries: 1}); err != nil {
				t.Fatalf("Do returned error: %v", err)
			}
			if len(rec.delays) != 1 || rec.delays[0] != tc.want {
				t.Fatalf("unexpected sleeps: %v want [%s]", rec.delays, tc.want)
			}
		})
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(rec)
	_, err := client.Do(context.Background(), fetch.Request{URL: server.URL}, fetch.Policy{Timeout: time.Second, Retries: 4})
	if err == nil {
		t.Fatal("expected error")
	}
	var failed *fetch.RequestFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected RequestFailedError, got %T", err)
	}
	if failed.Status != http.StatusNotFound || failed.Attempts != 1 {
		t.Fatalf("unexpected failure: %+v", failed)
	}
	if err.Error() != "request failed with status 404" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, services.ErrRequestFailed) {
		t.Fatal("expected ErrRequestFailed classification")
	}
	if atomic.LoadInt32(&hits) != 1 || len(rec.delays) != 0 {
		t.Fatalf("expected a single attempt, hits=%d sleeps=%v", hits, rec.delays)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(rec)
	_, err := client.Do(context.Background(), fetch.Request{URL: server.URL}, fetch.Policy{Timeout: time.Second, Retries: 2})
	var failed *fetch.RequestFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected RequestFailedError, got %v", err)
	}
	if failed.Status != http.StatusBadGateway || failed.Attempts != 3 {
		t.Fatalf("unexpected failure: %+v", failed)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

func TestDoRetriesAttemptTimeout(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(rec)
	resp, err := client.Do(context.Background(), fetch.Request{URL: server.URL}, fetch.Policy{Timeout: 50 * time.Millisecond, Retries: 1})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if resp.Attempts != 2 {
		t.Fatalf("expected second attempt to succeed, got %d", resp.Attempts)
	}
}

func TestDoTerminalNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	rec := &sleepRecorder{}
	client := newTestClient(rec)
	_, err := client.Do(context.Background(), fetch.Request{URL: url}, fetch.Policy{Timeout: time.Second, Retries: 1})
	if !errors.Is(err, services.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
	var failed *fetch.RequestFailedError
	if errors.As(err, &failed) {
		t.Fatalf("transport failure should not carry a status: %+v", failed)
	}
	if len(rec.delays) != 1 {
		t.Fatalf("expected one retry sleep, got %v", rec.delays)
	}
}

func TestDoStopsOnParentCancellation(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &sleepRecorder{}
	client := newTestClient(rec)
	_, err := client.Do(ctx, fetch.Request{URL: server.URL}, fetch.Policy{Timeout: time.Second, Retries: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("cancelled request must not retry, sleeps=%v", rec.delays)
	}
}

func TestDoSendsBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	client := newTestClient(&sleepRecorder{})
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	resp, err := client.Do(context.Background(), fetch.Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Header: header,
		Body:   []byte(`{"Page":1}`),
	}, fetch.Policy{Timeout: time.Second})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if string(resp.Body) != `{"Page":1}` {
		t.Fatalf("unexpected echo: %q", resp.Body)
	}
}

func TestRobotsGate(t *testing.T) {
	var robotsHits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			atomic.AddInt32(&robotsHits, 1)
			_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
		default:
			_, _ = io.WriteString(w, "ok")
		}
	}))
	defer server.Close()

	client := newTestClient(&sleepRecorder{}, fetch.WithRobots("festsync-test"))
	policy := fetch.Policy{Timeout: time.Second}
	if _, err := client.Do(context.Background(), fetch.Request{URL: server.URL + "/private/page"}, policy); !errors.Is(err, fetch.ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}
	if _, err := client.Do(context.Background(), fetch.Request{URL: server.URL + "/public/page"}, policy); err != nil {
		t.Fatalf("public path should be allowed: %v", err)
	}
	if atomic.LoadInt32(&robotsHits) != 1 {
		t.Fatalf("expected robots.txt to be fetched once, got %d", robotsHits)
	}
}

func TestDoRetriesBodiesRejectedByValidate(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			_, _ = io.WriteString(w, "partial")
			return
		}
		_, _ = io.WriteString(w, "complete")
	}))
	defer server.Close()

	errPartial := errors.New("partial body")
	validate := func(body []byte) error {
		if string(body) != "complete" {
			return errPartial
		}
		return nil
	}

	rec := &sleepRecorder{}
	resp, err := newTestClient(rec).Do(context.Background(),
		fetch.Request{URL: server.URL, Validate: validate},
		fetch.Policy{Timeout: time.Second, Retries: 3})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if resp.Attempts != 3 || len(rec.delays) != 2 {
		t.Fatalf("unexpected attempts=%d sleeps=%v", resp.Attempts, rec.delays)
	}

	atomic.StoreInt32(&hits, -10)
	_, err = newTestClient(&sleepRecorder{}).Do(context.Background(),
		fetch.Request{URL: server.URL, Validate: validate},
		fetch.Policy{Timeout: time.Second, Retries: 1})
	if !errors.Is(err, services.ErrValidation) || !errors.Is(err, errPartial) {
		t.Fatalf("expected wrapped validation error, got %v", err)
	}
}
