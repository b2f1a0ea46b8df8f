// Package fetchengine is the coordinator: it owns the worker pool's
// lifecycle, the shared host state, and the pre-sized output array that
// workers fill through disjoint, lock-free slot assignment.
package fetchengine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/containerman17/dashfetch/internal/config"
	"github.com/containerman17/dashfetch/internal/hoststate"
	"github.com/containerman17/dashfetch/internal/indicator"
	"github.com/containerman17/dashfetch/internal/metrics"
	"github.com/containerman17/dashfetch/internal/queue"
	"github.com/containerman17/dashfetch/internal/ratelimit"
	"github.com/containerman17/dashfetch/internal/replay"
	"github.com/containerman17/dashfetch/internal/urlintake"
	"github.com/containerman17/dashfetch/internal/worker"
)

// Engine is the fetch coordinator. One Engine drives one fetch run; it is
// not meant to be reused concurrently across two overlapping Run calls.
type Engine struct {
	cfg     config.Config
	limiter *ratelimit.Limiter

	urls   []string
	output []*indicator.SummaryCard

	total     int
	completed atomic.Int64
	nextSlot  atomic.Int64

	progressMu  sync.Mutex
	replayStore *replay.Store
}

// SetReplayStore attaches an optional raw-body replay store. When set,
// every successfully fetched card's raw body is persisted keyed by its
// source URL as workers complete. A nil store (the default) disables
// replay persistence entirely; Run behaves identically either way.
func (e *Engine) SetReplayStore(s *replay.Store) {
	e.replayStore = s
}

// New creates an Engine with the given tuning config. Call LoadURLs to
// populate the URL list, then Run to execute the fetch.
func New(cfg config.Config) *Engine {
	return &Engine{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.MaxRequestsPerSec),
	}
}

// LoadURLs filters candidate URLs through urlintake and appends survivors
// to the engine's URL list. Existing output entries, if any from a prior
// Run, are preserved -- new URLs extend rather than replace the list.
// Returns true iff at least one URL was accepted.
func (e *Engine) LoadURLs(urls []string) bool {
	accepted, ok := urlintake.Filter(urls)
	e.urls = append(e.urls, accepted...)
	return ok
}

// Output returns the result array. Only safe to read after Run returns.
func (e *Engine) Output() []*indicator.SummaryCard {
	return e.output
}

// Run executes the startup sequence and the worker pool, then waits for
// every worker to exit. It returns false only when no URLs were loaded or
// the worker pool could not be spawned; individual fetch failures never
// make Run return false.
func (e *Engine) Run(ctx context.Context) bool {
	if len(e.urls) == 0 {
		log.Printf("[fetchengine] run: no URLs loaded")
		return false
	}

	host := hoststate.New()
	host.LoadCABundle(config.CABundlePaths)

	seen := make(map[string]struct{})
	for _, u := range e.urls {
		h, err := hoststate.HostFromURL(u)
		if err != nil {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		host.ResolveHost(ctx, h)
	}

	base := len(e.output)
	e.total = len(e.urls)
	e.output = append(e.output, make([]*indicator.SummaryCard, e.total)...)
	e.nextSlot.Store(int64(base))
	e.completed.Store(0)

	q := queue.New()
	for _, u := range e.urls {
		q.Push(u)
	}
	q.Close()
	metrics.QueueDepth.Set(float64(q.Len()))

	poolSize := e.cfg.PoolSize
	if poolSize > e.total {
		poolSize = e.total
	}
	if poolSize < 1 {
		poolSize = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := make([]*worker.Worker, poolSize)
	for i := 0; i < poolSize; i++ {
		w := worker.New(host, e.cfg)
		workers[i] = w
		g.Go(func() error {
			e.drain(gctx, w, q)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[fetchengine] worker pool exited with error: %v", err)
	}

	for _, w := range workers {
		w.Close()
	}

	return true
}

// drain is one worker's loop: pop a URL, wait on the limiter, claim a
// slot, fetch, write the result in place.
func (e *Engine) drain(ctx context.Context, w *worker.Worker, q *queue.Queue) {
	for {
		url, ok := q.PopOrClose()
		metrics.QueueDepth.Set(float64(q.Len()))
		if !ok {
			return
		}

		waitStart := time.Now()
		e.limiter.Acquire()
		metrics.LimiterWaitSeconds.Observe(time.Since(waitStart).Seconds())

		slot := e.nextSlot.Add(1) - 1
		card, err := w.FetchInto(ctx, url)
		e.output[slot] = card
		if err == nil {
			metrics.CardsFetched.Inc()
			metrics.IndicatorsDecoded.Add(float64(len(card.Indicators)))
			if e.replayStore != nil {
				if putErr := e.replayStore.Put(url, card.RawBody); putErr != nil {
					log.Printf("[fetchengine] replay: failed to persist %s: %v", url, putErr)
				}
			}
		}

		completed := e.completed.Add(1)
		e.maybePrintProgress(completed)
	}
}

// maybePrintProgress logs to stderr only when completed is a multiple of
// max(1, total/400) or equals total, serialized through a dedicated mutex
// so workers never contend on the hot path.
func (e *Engine) maybePrintProgress(completed int64) {
	interval := int64(e.total / 400)
	if interval < 1 {
		interval = 1
	}
	if completed%interval != 0 && completed != int64(e.total) {
		return
	}

	e.progressMu.Lock()
	fmt.Fprintf(os.Stderr, "[fetchengine] %d/%d fetched\n", completed, e.total)
	e.progressMu.Unlock()
}
