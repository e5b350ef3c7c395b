package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/internal/metrics"
	"github.com/Checker-Finance/personio-adapter/internal/rate"
)

// DefaultRetries is the attempt budget applied when a RequestSpec does not
// declare its own.
const DefaultRetries = 3

// defaultRetryAfter is the wait applied on 429 responses that omit the
// Retry-After header.
const defaultRetryAfter = 5 * time.Second

// Backoff returns the retry sleep duration before attempt+1, growing
// exponentially (1s, 2s, 4s, ...).
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// TokenSource supplies a valid bearer token for each attempt. Tokens are
// re-resolved per attempt so a long Retry-After sleep cannot outlive the
// credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RequestSpec describes one API call. It is immutable per call; the Executor
// rebuilds the underlying *http.Request on every attempt so bodies are
// re-sent in full.
type RequestSpec struct {
	Method  string
	URL     string
	Query   url.Values
	Body    any    // marshalled to JSON when non-nil
	Accept  string // defaults to application/json
	Retries int    // attempt budget, defaults to DefaultRetries
}

func (s RequestSpec) retries() int {
	if s.Retries > 0 {
		return s.Retries
	}
	return DefaultRetries
}

// Executor issues rate-limited, retrying HTTP calls with JSON decoding.
// Retry policy: 429 waits the server-declared Retry-After, 5xx and network
// errors back off exponentially, any other 4xx fails immediately. All waits
// are bounded by the spec's attempt budget.
type Executor struct {
	logger  *zap.Logger
	http    *http.Client
	tokens  TokenSource
	rateMgr *rate.Manager
	sleep   func(time.Duration)
}

// New creates an Executor. httpClient may be nil, in which case a client with
// a 30 s timeout is used. tokens may be nil for unauthenticated endpoints.
func New(logger *zap.Logger, tokens TokenSource, rateMgr *rate.Manager, httpClient *http.Client) *Executor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{
		logger:  logger,
		http:    httpClient,
		tokens:  tokens,
		rateMgr: rateMgr,
		sleep:   time.Sleep,
	}
}

// DoJSON executes spec and JSON-decodes the response body into out (which may
// be nil). rateKey scopes the client-side limiter per endpoint family.
func (e *Executor) DoJSON(ctx context.Context, spec RequestSpec, rateKey string, out any) error {
	var bodyBytes []byte
	if spec.Body != nil {
		var err error
		bodyBytes, err = json.Marshal(spec.Body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	if e.rateMgr != nil {
		if err := e.rateMgr.Wait(ctx, rateKey); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	retries := spec.retries()
	endpoint := endpointLabel(spec.URL)

	var (
		lastKind   Kind
		lastStatus int
		lastErr    error
	)

	for attempt := 0; attempt < retries; attempt++ {
		req, err := e.buildRequest(ctx, spec, bodyBytes)
		if err != nil {
			return err
		}

		start := time.Now()
		resp, err := e.http.Do(req)
		metrics.ObserveRequestDuration(endpoint, spec.Method, start)

		if err != nil {
			lastKind, lastStatus, lastErr = KindNetwork, 0, err
			e.logger.Warn("personio.http_failed",
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt+1))
			metrics.IncRetry("network")
			if attempt < retries-1 {
				e.sleep(Backoff(attempt))
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		status := resp.StatusCode
		metrics.IncRequest(endpoint, spec.Method, strconv.Itoa(status))

		switch {
		case status == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header)
			lastKind, lastStatus = KindRateLimit, status
			lastErr = fmt.Errorf("rate limited, retry-after %s", wait)
			e.logger.Warn("personio.rate_limited",
				zap.String("url", req.URL.String()),
				zap.Duration("retry_after", wait),
				zap.Int("attempt", attempt+1))
			metrics.IncRetry("rate_limited")
			if attempt < retries-1 {
				e.sleep(wait)
			}
			continue

		case status >= 500:
			lastKind, lastStatus = KindServer, status
			lastErr = fmt.Errorf("server error %d", status)
			e.logger.Warn("personio.server_error",
				zap.Int("status", status),
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1))
			metrics.IncRetry("server_error")
			if attempt < retries-1 {
				e.sleep(Backoff(attempt))
			}
			continue

		case status >= 400:
			// Any non-429 4xx means the request itself is wrong; retrying
			// cannot fix it.
			e.logger.Warn("personio.client_error",
				zap.Int("status", status),
				zap.String("url", req.URL.String()),
				zap.String("body", truncate(body, 512)))
			return &Error{
				Kind:     KindClient,
				Status:   status,
				Attempts: attempt + 1,
				URL:      req.URL.String(),
				Err:      fmt.Errorf("%s", truncate(body, 512)),
			}
		}

		if readErr != nil {
			lastKind, lastStatus, lastErr = KindNetwork, status, readErr
			metrics.IncRetry("network")
			if attempt < retries-1 {
				e.sleep(Backoff(attempt))
			}
			continue
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				e.logger.Warn("personio.decode_failed",
					zap.Error(err),
					zap.String("url", req.URL.String()))
				return fmt.Errorf("decode response from %s: %w", req.URL.String(), err)
			}
		}

		e.logger.Debug("personio.http_success",
			zap.String("url", req.URL.String()),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)))

		return nil
	}

	return &Error{
		Kind:     lastKind,
		Status:   lastStatus,
		Attempts: retries,
		URL:      spec.URL,
		Err:      lastErr,
	}
}

// buildRequest assembles a fresh *http.Request for one attempt, resolving the
// bearer token so it is always current.
func (e *Executor) buildRequest(ctx context.Context, spec RequestSpec, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if len(spec.Query) > 0 {
		req.URL.RawQuery = spec.Query.Encode()
	}

	accept := spec.Accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if e.tokens != nil {
		token, err := e.tokens.Token(ctx)
		if err != nil {
			if _, ok := KindOf(err); ok {
				return nil, err
			}
			return nil, &Error{Kind: KindAuth, URL: spec.URL, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// retryAfter reads the Retry-After header as whole seconds, falling back to
// the default wait when absent or unparseable.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
