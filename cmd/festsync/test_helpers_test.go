package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"festsync/internal/config"
	"festsync/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	feed       *httptest.Server
	catalog    *httptest.Server
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	pages := map[int][]byte{
		1: testsupport.ReadFixture(t, "page_1.json"),
		2: testsupport.ReadFixture(t, "page_2.json"),
	}
	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Page int `json:"Page"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payload, ok := pages[body.Page]
		if !ok {
			payload = []byte(`{"items":[]}`)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	t.Cleanup(feedServer.Close)

	titlePage := testsupport.ReadFixture(t, "title.html")
	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/suggestion/"):
			_, _ = w.Write([]byte(`{"d":[{"id":"tt1000001","l":"Opening Night","q":"feature","y":2026}]}`))
		case strings.HasPrefix(r.URL.Path, "/title/"):
			_, _ = w.Write(titlePage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(catalogServer.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithFeedEndpoint(feedServer.URL),
		testsupport.WithCatalog(catalogServer.URL),
	)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		feed:       feedServer,
		catalog:    catalogServer,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
