package enrich

import (
	"testing"

	"github.com/containerman17/dashfetch/internal/indicator"
)

func cardFor(cds string, yearID uint64) *indicator.SummaryCard {
	return &indicator.SummaryCard{
		Indicators: []indicator.Indicator{
			{CDSCode: cds, SchoolYearID: yearID},
			{CDSCode: cds, SchoolYearID: yearID},
		},
	}
}

func TestApplyStampsOnHit(t *testing.T) {
	cards := []*indicator.SummaryCard{cardFor("001", 9)}
	meta := map[Key]Meta{
		{CDSCode: "001", SchoolYearID: 9}: {SchoolName: "Lincoln High", Year: 2023},
	}

	Apply(cards, meta)

	if cards[0].SchoolName != "Lincoln High" || cards[0].Year != 2023 {
		t.Errorf("card not stamped: %+v", cards[0])
	}
}

func TestApplyLeavesMissOnNoMatch(t *testing.T) {
	cards := []*indicator.SummaryCard{cardFor("999", 9)}
	meta := map[Key]Meta{
		{CDSCode: "001", SchoolYearID: 9}: {SchoolName: "Lincoln High", Year: 2023},
	}

	Apply(cards, meta)

	if cards[0].SchoolName != "" || cards[0].Year != 0 {
		t.Errorf("expected unstamped card on miss, got %+v", cards[0])
	}
}

func TestApplySkipsEmptyIndicatorCards(t *testing.T) {
	cards := []*indicator.SummaryCard{
		{Indicators: nil},
		nil,
	}
	// Should not panic despite nil slots and empty-indicator cards.
	Apply(cards, map[Key]Meta{})
}

func TestApplyHandlesManyCardsAcrossPartitions(t *testing.T) {
	const n = 500
	cards := make([]*indicator.SummaryCard, n)
	meta := make(map[Key]Meta, n)
	for i := 0; i < n; i++ {
		cds := string(rune('A' + i%26))
		cards[i] = cardFor(cds, uint64(i))
		meta[Key{CDSCode: cds, SchoolYearID: uint64(i)}] = Meta{SchoolName: "School", Year: 2020}
	}

	Apply(cards, meta)

	for i, c := range cards {
		if c.SchoolName != "School" {
			t.Fatalf("card %d not stamped", i)
		}
	}
}
