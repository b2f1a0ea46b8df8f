package replay

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s := openTestStore(t)

	body := []byte(`[{"indicatorId":1}]`)
	if err := s.Put("https://example.com/x", body); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := s.Get("https://example.com/x")
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if string(got) != string(body) {
		t.Errorf("got %q, want %q", got, body)
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	s := openTestStore(t)

	if _, ok := s.Get("https://example.com/never-stored"); ok {
		t.Error("expected a miss for a URL never stored")
	}
}

func TestHasReflectsPresence(t *testing.T) {
	s := openTestStore(t)

	if s.Has("https://example.com/x") {
		t.Error("expected Has to be false before Put")
	}
	s.Put("https://example.com/x", []byte("[]"))
	if !s.Has("https://example.com/x") {
		t.Error("expected Has to be true after Put")
	}
}
