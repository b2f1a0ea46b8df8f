// Package config holds tunable defaults and environment-driven overrides
// for the fetch engine, mirroring the teacher's one-file-per-concern
// constants layout plus simple env getters.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultPoolSize is the default worker pool size.
	DefaultPoolSize = 50

	// DefaultMaxRequestsPerSec is the default token-bucket rate. At or
	// above 1000 the limiter fast-paths and is effectively unlimited.
	DefaultMaxRequestsPerSec = 1000.0

	// MaxRetries is the maximum retry attempts per fetch.
	MaxRetries = 3

	// BaseRetryDelay is the base exponential-backoff delay.
	BaseRetryDelay = 250 * time.Millisecond

	// DialKeepAlive is the TCP keep-alive idle interval.
	DialKeepAlive = 30 * time.Second

	// DialKeepAliveProbe is the TCP keep-alive probe interval.
	DialKeepAliveProbe = 15 * time.Second

	// DNSCacheTimeout bounds how long a pre-resolved host override is
	// trusted before a worker falls back to per-request resolution.
	DNSCacheTimeout = 300 * time.Second

	// UserAgent is the fixed browser-identifying user agent required by
	// the upstream service.
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Referer is sent on every request.
	Referer = "https://www.caschooldashboard.org/"

	// APIBase is the base URL for SummaryCards requests.
	APIBase = "https://api.caschooldashboard.org/Reports/"

	// MetricsListenAddr is the default Prometheus metrics listen address.
	MetricsListenAddr = ":9091"
)

// CABundlePaths lists candidate CA bundle locations, in search order. The
// first readable one wins; if none is readable the library default is used.
var CABundlePaths = []string{
	"/etc/ssl/cert.pem",
	"/etc/ssl/certs/ca-certificates.crt",
	"/etc/pki/tls/certs/ca-bundle.crt",
	"/usr/local/etc/openssl/cert.pem",
}

// YearToID is the closed year -> upstream year-id table.
var YearToID = map[int]int{
	2017: 3,
	2018: 4,
	2019: 5,
	2020: 6,
	2021: 7,
	2022: 8,
	2023: 9,
	2024: 10,
	2025: 11,
}

// Config is the resolved tuning configuration for one fetch run.
type Config struct {
	Timeout           time.Duration
	PoolSize          int
	MaxRequestsPerSec float64
}

// FromEnv builds a Config from environment variables, falling back to the
// package defaults. Mirrors the teacher's getEnvOrDefault/getEnvIntOrDefault
// helper style (indexers/pcx/cchain/fetcher.go, evm-ingestion/main.go).
func FromEnv() Config {
	return Config{
		Timeout:           getEnvDurationMsOrDefault("TIMEOUT_MS", DefaultTimeout),
		PoolSize:          getEnvIntOrDefault("POOL_SIZE", DefaultPoolSize),
		MaxRequestsPerSec: getEnvFloatOrDefault("MAX_REQUESTS_PER_SEC", DefaultMaxRequestsPerSec),
	}
}

func getEnvIntOrDefault(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func getEnvDurationMsOrDefault(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
