package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type fakeRoundTripper struct {
	calls   int32
	perform func(call int32) (*http.Response, error)
}

func (f *fakeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	call := atomic.AddInt32(&f.calls, 1)
	return f.perform(call)
}

func TestFetchIntoRetriesThenSucceeds(t *testing.T) {
	rt := &fakeRoundTripper{
		perform: func(call int32) (*http.Response, error) {
			if call <= 2 {
				return nil, &timeoutErr{}
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("[]")),
			}, nil
		},
	}
	w := newWithClient(&http.Client{Transport: rt})

	card, err := w.FetchInto(context.Background(), "https://example.com/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if card == nil {
		t.Fatal("expected a non-nil card")
	}
	if got := atomic.LoadInt32(&rt.calls); got != 3 {
		t.Errorf("perform called %d times, want 3", got)
	}
}

func TestFetchIntoPermanentErrorDoesNotRetry(t *testing.T) {
	rt := &fakeRoundTripper{
		perform: func(call int32) (*http.Response, error) {
			return nil, errors.New("some permanent failure")
		},
	}
	w := newWithClient(&http.Client{Transport: rt})

	_, err := w.FetchInto(context.Background(), "https://example.com/x")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := atomic.LoadInt32(&rt.calls); got != 1 {
		t.Errorf("perform called %d times, want 1 (no retry on permanent error)", got)
	}
}

func TestFetchIntoInvalidJSONBodyNotDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	w := newWithClient(server.Client())
	card, err := w.FetchInto(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected invalid JSON error")
	}
	if len(card.Indicators) != 0 {
		t.Errorf("expected empty indicators, got %d", len(card.Indicators))
	}
	if len(card.RawBody) == 0 {
		t.Error("expected the raw body to still be retained even though decode was never entered")
	}
}

func TestFetchIntoHTTPStatusErrorNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := newWithClient(server.Client())
	_, err := w.FetchInto(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected http status error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hit %d times, want 1 (status errors are not retried)", got)
	}
}

func TestFetchIntoHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"indicatorId":4,"primary":{"cdsCode":"X","status":1.0}}]`))
	}))
	defer server.Close()

	w := newWithClient(server.Client())
	card, err := w.FetchInto(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(card.Indicators) != 1 {
		t.Fatalf("got %d indicators, want 1", len(card.Indicators))
	}
	if card.Indicators[0].CDSCode != "X" {
		t.Errorf("cdsCode = %q, want X", card.Indicators[0].CDSCode)
	}
}

// timeoutErr implements net.Error with Timeout()==true to exercise the
// retryable classification path.
type timeoutErr struct{}

func (e *timeoutErr) Error() string   { return "i/o timeout" }
func (e *timeoutErr) Timeout() bool   { return true }
func (e *timeoutErr) Temporary() bool { return true }
