// Command dashfetch bulk-fetches school performance SummaryCards for a set
// of (school name, year) pairs and prints a summary to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/containerman17/dashfetch/internal/config"
	"github.com/containerman17/dashfetch/internal/endpoint"
	"github.com/containerman17/dashfetch/internal/enrich"
	"github.com/containerman17/dashfetch/internal/fetchengine"
	"github.com/containerman17/dashfetch/internal/indicator"
	"github.com/containerman17/dashfetch/internal/metrics"
	"github.com/containerman17/dashfetch/internal/replay"
	"github.com/containerman17/dashfetch/internal/roster"
)

func main() {
	_ = godotenv.Load() // Load .env if present

	rosterPath := flag.String("roster", "", "optional path to a name=cdsCode roster file, one mapping per line")
	replayPath := flag.String("replay", "", "optional path to a pebble replay store for raw response bodies")
	flag.Parse()

	pairs, err := parsePairs(flag.Args())
	if err != nil {
		log.Fatalf("dashfetch: %v", err)
	}
	if len(pairs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: dashfetch [-roster path] [-replay path] 'School Name@2023' ['Other School@2024' ...]")
		os.Exit(2)
	}

	rr, err := loadRoster(*rosterPath)
	if err != nil {
		log.Fatalf("dashfetch: loading roster: %v", err)
	}

	cfg := config.FromEnv()
	metrics.StartServer(config.MetricsListenAddr)

	urls := make([]string, 0, len(pairs))
	meta := make(map[enrich.Key]enrich.Meta, len(pairs))
	for _, p := range pairs {
		cdsCode, ok := rr.Resolve(p.school)
		if !ok {
			log.Printf("[dashfetch] no roster entry for %q, skipping", p.school)
			continue
		}
		url, err := endpoint.Build(cdsCode, p.year)
		if err != nil {
			log.Printf("[dashfetch] %v, skipping %q", err, p.school)
			continue
		}
		urls = append(urls, url)
		meta[enrich.Key{CDSCode: cdsCode, SchoolYearID: uint64(config.YearToID[p.year])}] = enrich.Meta{
			SchoolName: p.school,
			Year:       p.year,
		}
	}

	engine := fetchengine.New(cfg)

	if *replayPath != "" {
		store, err := replay.Open(*replayPath)
		if err != nil {
			log.Fatalf("dashfetch: opening replay store: %v", err)
		}
		defer store.Close()
		engine.SetReplayStore(store)
	}

	if !engine.LoadURLs(urls) {
		log.Fatal("dashfetch: no valid URLs to fetch")
	}

	ctx := context.Background()
	if !engine.Run(ctx) {
		log.Fatal("dashfetch: fetch run failed to start")
	}

	output := engine.Output()
	enrich.Apply(output, meta)

	printSummary(output)
}

type schoolYear struct {
	school string
	year   int
}

// parsePairs parses "School Name@YEAR" positional arguments.
func parsePairs(args []string) ([]schoolYear, error) {
	pairs := make([]schoolYear, 0, len(args))
	for _, arg := range args {
		idx := strings.LastIndex(arg, "@")
		if idx < 0 {
			return nil, fmt.Errorf("malformed argument %q, expected 'School Name@YEAR'", arg)
		}
		school := strings.TrimSpace(arg[:idx])
		year, err := strconv.Atoi(strings.TrimSpace(arg[idx+1:]))
		if err != nil {
			return nil, fmt.Errorf("malformed year in %q: %w", arg, err)
		}
		pairs = append(pairs, schoolYear{school: school, year: year})
	}
	return pairs, nil
}

// loadRoster reads a minimal "name=cdsCode" mapping file, one entry per
// line. An empty path yields an empty roster (every lookup misses). This
// is deliberately not a CSV parser: roster ingestion proper is out of
// scope.
func loadRoster(path string) (*roster.Roster, error) {
	entries := make(map[string]string)
	if path == "" {
		return roster.New(entries), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			log.Printf("[dashfetch] skipping malformed roster line: %q", line)
			continue
		}
		entries[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return roster.New(entries), nil
}

// printSummary prints one line per fetched card plus an aggregate count,
// matching the teacher's plain log.Printf-style reporting rather than a
// structured report format (out of scope per spec.md).
func printSummary(output []*indicator.SummaryCard) {
	var totalIndicators, withSchool int
	for _, card := range output {
		if card == nil {
			continue
		}
		totalIndicators += len(card.Indicators)
		if card.SchoolName != "" {
			withSchool++
		}
		label := card.SchoolName
		if label == "" {
			label = "(unmatched)"
		}
		fmt.Printf("%-40s year=%-6d indicators=%d\n", label, card.Year, len(card.Indicators))
	}
	fmt.Printf("\nfetched %d cards, %d indicators, %d enriched\n", len(output), totalIndicators, withSchool)
}
