// Package worker implements the per-worker persistent HTTP handle and the
// fetch-with-retry loop that fills one output slot.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/containerman17/dashfetch/internal/config"
	"github.com/containerman17/dashfetch/internal/hoststate"
	"github.com/containerman17/dashfetch/internal/indicator"
	"github.com/containerman17/dashfetch/internal/metrics"
)

// errRetryable wraps a transport fault classified as transient per
// spec.md §4.D/§7 (timeout, DNS failure, connect failure, recv/send error,
// empty response).
type errRetryable struct {
	reason string
	err    error
}

func (e *errRetryable) Error() string { return fmt.Sprintf("%s: %v", e.reason, e.err) }
func (e *errRetryable) Unwrap() error { return e.err }

// Worker owns one persistent HTTP client handle for the lifetime of one
// fetch run. It is not safe to share a Worker across goroutines; the
// coordinator creates one per pool slot.
type Worker struct {
	client     *http.Client
	transport  *http.Transport
	host       *hoststate.HostState
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
}

// New creates a Worker with a persistent transport attached to the shared
// host state. Redirects are followed (the default http.Client policy);
// HTTP/2 is negotiated over TLS with fallback to HTTP/1.1.
func New(host *hoststate.HostState, cfg config.Config) *Worker {
	dialer := &net.Dialer{
		Timeout: cfg.Timeout,
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     config.DialKeepAlive,
			Interval: config.DialKeepAliveProbe,
		},
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           noDelayDialContext(host.DialContext(dialer)),
		MaxIdleConns:          1,
		MaxIdleConnsPerHost:   1,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     false,
		ForceAttemptHTTP2:     true,
		// Empty ServerName: http.Transport fills it in per-connection from
		// the dial address, so one config serves every host the worker
		// talks to while still verifying against the coordinator's bundle.
		TLSClientConfig: host.TLSConfigFor(""),
	}

	// Negotiate HTTP/2 over TLS explicitly; falls back to HTTP/1.1
	// automatically if the peer doesn't support it.
	if err := http2.ConfigureTransport(transport); err != nil {
		// Not fatal: plain HTTP/1.1 over TLS still works.
		_ = err
	}

	return &Worker{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport:  transport,
		host:       host,
		timeout:    cfg.Timeout,
		maxRetries: config.MaxRetries,
		baseDelay:  config.BaseRetryDelay,
	}
}

// newWithClient builds a Worker around an already-constructed http.Client,
// bypassing transport setup. Used by tests to inject a fake RoundTripper.
func newWithClient(client *http.Client) *Worker {
	return &Worker{
		client:     client,
		maxRetries: config.MaxRetries,
		baseDelay:  1 * time.Millisecond, // keep retry tests fast
	}
}

// Close releases the worker's persistent connections.
func (w *Worker) Close() {
	if w.transport != nil {
		w.transport.CloseIdleConnections()
	}
}

// FetchInto performs the retry-with-backoff fetch of url and decodes the
// response into card. It is total: card always ends up populated (possibly
// with empty Indicators) and the returned error, if any, is purely for
// metrics/logging -- callers never need to unwind on it.
func (w *Worker) FetchInto(ctx context.Context, url string) (*indicator.SummaryCard, error) {
	card := indicator.NewCard()
	var lastErr error

	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			card.Reset()
			delay := w.baseDelay * time.Duration(1<<uint(attempt-1))
			metrics.RetriesTotal.WithLabelValues(classify(lastErr)).Inc()
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.RequestsTotal.WithLabelValues("error").Inc()
				return card, ctx.Err()
			}
		}

		err := w.doRequest(ctx, url, card)
		if err == nil {
			metrics.RequestsTotal.WithLabelValues("success").Inc()
			return card, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
	}

	metrics.RequestsTotal.WithLabelValues("error").Inc()
	return card, lastErr
}

// doRequest performs one HTTP attempt, streaming the response body into
// card.RawBody as it arrives. Protocol errors (non-2xx status, empty body,
// body not starting with '{'/'[') are detected only after the body is
// appended and are not retried, per spec.md §4.D steps 4-6; Decode runs
// only on the clean-success path.
func (w *Worker) doRequest(ctx context.Context, url string, card *indicator.SummaryCard) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err // permanent: malformed request is not a transport fault
	}
	req.Header.Set("User-Agent", config.UserAgent)
	req.Header.Set("Referer", config.Referer)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")

	resp, err := w.client.Do(req)
	if err != nil {
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if w.host != nil {
		if h, hostErr := hoststate.HostFromURL(url); hostErr == nil {
			w.host.RecordNegotiated(h, resp.Proto)
		}
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			card.AppendBody(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return &errRetryable{reason: "recv error", err: readErr}
		}
	}
	body := card.RawBody

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	if len(body) == 0 {
		return errors.New("empty response")
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return fmt.Errorf("invalid JSON: body does not start with '{' or '['")
	}

	card.Decode()
	return nil
}

// classifyTransportErr wraps a net/http transport error as retryable when
// it matches spec.md's retryable set (timeout, DNS failure, connect
// failure, send error, recv error), and leaves all other errors as
// permanent.
func classifyTransportErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &errRetryable{reason: "timeout", err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &errRetryable{reason: "dns failure", err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case opErr.Op == "dial":
			return &errRetryable{reason: "connect failure", err: err}
		case opErr.Op == "write":
			return &errRetryable{reason: "send error", err: err}
		case opErr.Op == "read":
			return &errRetryable{reason: "recv error", err: err}
		}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &errRetryable{reason: "recv error", err: err}
	}

	return err // permanent transport error: not retried
}

func isRetryable(err error) bool {
	var r *errRetryable
	return errors.As(err, &r)
}

func classify(err error) string {
	var r *errRetryable
	if errors.As(err, &r) {
		return r.reason
	}
	if err == nil {
		return "none"
	}
	return "permanent"
}

// noDelayDialContext wraps a dial function to explicitly enable
// TCP_NODELAY on every connection it opens, matching spec.md §4.D.
func noDelayDialContext(dial func(ctx context.Context, network, addr string) (net.Conn, error)) func(context.Context, string, string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			_ = tcpConn.SetNoDelay(true)
		}
		return conn, nil
	}
}
