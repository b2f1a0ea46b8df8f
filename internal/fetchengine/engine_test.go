package fetchengine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/containerman17/dashfetch/internal/config"
)

func newTestConfig() config.Config {
	return config.Config{
		Timeout:           2 * time.Second,
		PoolSize:          50,
		MaxRequestsPerSec: config.DefaultMaxRequestsPerSec,
	}
}

func TestRunReturnsFalseWhenNoURLsLoaded(t *testing.T) {
	e := New(newTestConfig())
	if e.Run(context.Background()) {
		t.Error("expected Run to return false with no URLs loaded")
	}
}

func TestLoadURLsRejectsAllInvalid(t *testing.T) {
	e := New(newTestConfig())
	if e.LoadURLs([]string{"", "not-a-url"}) {
		t.Error("expected LoadURLs to return false when every URL is rejected")
	}
}

func TestRunFillsOutputDisjointlyForEveryURL(t *testing.T) {
	const n = 12
	servers := make([]*httptest.Server, n)
	urls := make([]string, n)
	for i := range servers {
		servers[i] = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"indicatorId":1,"primary":{"cdsCode":"X"}}]`))
		}))
		urls[i] = servers[i].URL
	}
	defer func() {
		for _, s := range servers {
			s.Close()
		}
	}()

	e := New(newTestConfig())
	if !e.LoadURLs(urls) {
		t.Fatal("expected LoadURLs to accept every httptest URL")
	}

	if !e.Run(context.Background()) {
		t.Fatal("expected Run to return true")
	}

	out := e.Output()
	if len(out) != n {
		t.Fatalf("output length = %d, want %d", len(out), n)
	}
	for i, card := range out {
		if card == nil {
			t.Errorf("slot %d was never written", i)
			continue
		}
		if len(card.Indicators) != 1 {
			t.Errorf("slot %d: got %d indicators, want 1", i, len(card.Indicators))
		}
	}
}

func TestRunSurvivesIndividualFetchFailures(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	e := New(newTestConfig())
	e.LoadURLs([]string{good.URL, bad.URL})

	if !e.Run(context.Background()) {
		t.Fatal("expected Run to return true even though one fetch fails")
	}

	out := e.Output()
	if len(out) != 2 {
		t.Fatalf("output length = %d, want 2", len(out))
	}
	for i, card := range out {
		if card == nil {
			t.Errorf("slot %d was never written despite the failure", i)
		}
	}
}

func TestRunPreservesExistingOutputOnReload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	e := New(newTestConfig())
	e.LoadURLs([]string{server.URL})
	e.Run(context.Background())
	firstLen := len(e.Output())
	firstSlot := e.Output()[0]

	// LoadURLs extends the coordinator's own URL list; a second Run
	// re-sizes output by the full accumulated list length, starting at a
	// base offset, and never touches slots already written by a prior run.
	e.LoadURLs([]string{server.URL, server.URL})
	e.Run(context.Background())

	want := firstLen + len(e.urls)
	if len(e.Output()) != want {
		t.Errorf("output length after second run = %d, want %d", len(e.Output()), want)
	}
	if e.Output()[0] != firstSlot {
		t.Error("second run must not overwrite the first run's already-written slot")
	}
}
