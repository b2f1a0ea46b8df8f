package urlintake

import "testing"

func TestFilterAcceptsKnownSchemes(t *testing.T) {
	in := []string{
		"https://api.caschooldashboard.org/Reports/X/3/SummaryCards",
		"http://example.com/x",
		"ftp://mirror.example.com/x",
	}
	accepted, ok := Filter(in)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(accepted) != 3 {
		t.Fatalf("got %d accepted, want 3", len(accepted))
	}
}

func TestFilterRejectsEmptyAndBadScheme(t *testing.T) {
	in := []string{"", "not-a-url", "gopher://old.example.com/x", "https://ok.example.com/x"}
	accepted, ok := Filter(in)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(accepted) != 1 || accepted[0] != "https://ok.example.com/x" {
		t.Fatalf("got %v, want only the https URL", accepted)
	}
}

func TestFilterAllRejectedReturnsFalse(t *testing.T) {
	_, ok := Filter([]string{"", "bad-scheme://x"})
	if ok {
		t.Error("expected ok=false when nothing is accepted")
	}
}

func TestFilterEmptyInput(t *testing.T) {
	accepted, ok := Filter(nil)
	if ok || accepted != nil {
		t.Errorf("expected ok=false and nil accepted for empty input, got %v %v", accepted, ok)
	}
}
