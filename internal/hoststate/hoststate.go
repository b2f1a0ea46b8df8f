// Package hoststate implements the fetch coordinator's shared, read-mostly
// host state: a once-resolved DNS override map, the CA bundle every
// worker's TLS config trusts, and diagnostics-only protocol observations. It intentionally does NOT share TLS session
// state across workers -- see the package doc on HostState.
package hoststate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/containerman17/dashfetch/internal/config"
)

// HostState is the shared, mostly-immutable object every worker's
// transport attaches to. Per spec.md §4.E/§9 it deliberately does NOT
// include a shared TLS session cache: enabling session resumption sharing
// was observed upstream to corrupt certificate state under high
// concurrency, so each worker gets its own tls.Config derived from the
// same RootCAs pool instead.
//
// Two independent mutexes guard the two kinds of shared mutable data this
// struct holds (the DNS override map and the negotiated-protocol
// observations used only for diagnostics) -- matching spec.md's "array of
// mutexes, one per shared data kind."
type HostState struct {
	RootCAs *x509.CertPool

	overrideMu sync.RWMutex
	override   map[string]overrideEntry // "host:port" -> resolved ip + resolution time

	protoMu    sync.Mutex
	negotiated map[string]string // host -> negotiated ALPN proto, diagnostics only
}

// overrideEntry is one pre-resolved DNS answer, timestamped so DialContext
// can fall back to live resolution once it's older than config.DNSCacheTimeout.
type overrideEntry struct {
	ip         string
	resolvedAt time.Time
}

// New creates an empty HostState with the process's default CA pool as a
// fallback; call LoadCABundle to override it with one of the candidate
// bundle paths.
func New() *HostState {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	return &HostState{
		RootCAs:    pool,
		override:   make(map[string]overrideEntry),
		negotiated: make(map[string]string),
	}
}

// LoadCABundle probes candidate paths in order and loads the first
// readable one into RootCAs. If none is readable it logs a diagnostic and
// leaves the library default pool in place.
func (h *HostState) LoadCABundle(candidates []string) {
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM(data) {
			h.RootCAs = pool
			return
		}
	}
	log.Printf("[hoststate] no readable CA bundle found in %v, using library default", candidates)
}

// ResolveHost performs a single synchronous DNS resolution for host and
// records host:443 and host:80 overrides pointing at the first resolved
// IP. On failure it logs and leaves the override map untouched -- workers
// fall back to per-worker DNS resolution in that case.
func (h *HostState) ResolveHost(ctx context.Context, host string) {
	resolver := net.DefaultResolver
	ips, err := resolver.LookupHost(ctx, host)
	if err != nil || len(ips) == 0 {
		log.Printf("[hoststate] pre-resolve of %s failed, workers will fall back to per-request DNS: %v", host, err)
		return
	}

	ip := ips[0]
	entry := overrideEntry{ip: ip, resolvedAt: time.Now()}
	h.overrideMu.Lock()
	h.override[net.JoinHostPort(host, "443")] = entry
	h.override[net.JoinHostPort(host, "80")] = entry
	h.overrideMu.Unlock()
}

// DialContext returns a dial function that consults the override map
// before delegating to the given dialer, bypassing DNS entirely on the hot
// path when an override exists and hasn't exceeded config.DNSCacheTimeout.
// A stale entry is treated the same as a miss: the dialer falls back to a
// live per-request resolution rather than dialing a possibly-rotated IP.
func (h *HostState) DialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		h.overrideMu.RLock()
		entry, ok := h.override[addr]
		h.overrideMu.RUnlock()

		if !ok || time.Since(entry.resolvedAt) > config.DNSCacheTimeout {
			return dialer.DialContext(ctx, network, addr)
		}

		_, port, err := net.SplitHostPort(addr)
		if err != nil {
			return dialer.DialContext(ctx, network, addr)
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(entry.ip, port))
	}
}

// TLSConfigFor returns a fresh, non-shared tls.Config for one worker. Each
// worker gets its own ClientSessionCache-less config: session resumption
// is never shared across workers.
func (h *HostState) TLSConfigFor(serverName string) *tls.Config {
	return &tls.Config{
		RootCAs:    h.RootCAs,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}
}

// RecordNegotiated stores the ALPN protocol a worker observed for a host,
// for diagnostics only.
func (h *HostState) RecordNegotiated(host, proto string) {
	h.protoMu.Lock()
	h.negotiated[host] = proto
	h.protoMu.Unlock()
}

// HostFromURL extracts the hostname component from a URL string without
// pulling in the full net/url parsing cost on the hot path.
func HostFromURL(rawURL string) (string, error) {
	rest := rawURL
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.LastIndex(rest, "@"); idx >= 0 {
		rest = rest[idx+1:]
	}
	host := rest
	if idx := strings.LastIndex(rest, ":"); idx >= 0 && !strings.Contains(rest[idx:], "]") {
		host = rest[:idx]
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	if host == "" {
		return "", fmt.Errorf("hoststate: could not extract host from %q", rawURL)
	}
	return host, nil
}
