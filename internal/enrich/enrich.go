// Package enrich implements the parallel metadata-stamping pass that runs
// after a fetch completes: each card gets its school name and calendar
// year filled in from an external (cdsCode, schoolYearId) -> metadata map.
package enrich

import (
	"runtime"
	"sync"

	"github.com/containerman17/dashfetch/internal/indicator"
	"github.com/containerman17/dashfetch/internal/metrics"
)

// Key identifies one (school, year) pair the way the upstream payload
// exposes it: a CDS code and the API's own schoolYearId, not calendar year.
type Key struct {
	CDSCode      string
	SchoolYearID uint64
}

// Meta is what the caller's roster/year table knows about a Key.
type Meta struct {
	SchoolName string
	Year       int
}

// Apply partitions output into runtime.GOMAXPROCS(0) contiguous ranges and
// stamps each card in place. Ranges are disjoint and meta is read-only, so
// no locks are needed beyond the metrics counters.
func Apply(output []*indicator.SummaryCard, meta map[Key]Meta) {
	if len(output) == 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(output) {
		workers = len(output)
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(output) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(output); start += chunk {
		end := start + chunk
		if end > len(output) {
			end = len(output)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			stampRange(output[start:end], meta)
		}(start, end)
	}
	wg.Wait()
}

func stampRange(cards []*indicator.SummaryCard, meta map[Key]Meta) {
	for _, card := range cards {
		if card == nil || len(card.Indicators) == 0 {
			continue
		}

		first := card.Indicators[0]
		key := Key{CDSCode: first.CDSCode, SchoolYearID: first.SchoolYearID}

		m, ok := meta[key]
		if !ok {
			metrics.EnrichmentMisses.Inc()
			continue
		}

		card.SchoolName = m.SchoolName
		card.Year = m.Year
		metrics.EnrichmentHits.Inc()
	}
}
