package github

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// BudgetSource identifies where a Governor's hourly budget figures came
// from: the server's own rate-limit headers, or a local fallback estimate
// used once the governor gives up probing the server.
type BudgetSource string

// BudgetSource values.
const (
	BudgetSourceServer    BudgetSource = "server"
	BudgetSourceLocal     BudgetSource = "local"
	BudgetSourceEstimated BudgetSource = "estimated"
)

// BudgetSnapshot is a point-in-time view of the governor's limits, exposed
// to operators and the control server's introspection methods.
type BudgetSnapshot struct {
	Limit     int
	Used      int
	Remaining int
	Reserve   float64
	ResetAt   time.Time
	Source    BudgetSource
}

// Governor is the stacked rate limiter: a local requests-per-minute token
// bucket plus an hourly server-reported budget with a reserve margin. It
// implements http.RoundTripper so it installs as the innermost leg of the
// transport chain NewClient builds. Acquire runs before the request is
// sent, noteResponse runs on the response.
type Governor struct {
	limiter *rate.Limiter // local per-minute bucket; nil when unlimited.

	queueMargin    time.Duration // extra spacing applied when the pool is backlogged.
	outstandingFn  func() int    // returns the work pool's outstanding job count; nil when unset.
	slackThreshold int

	margin          float64 // reserve fraction M in [0,1].
	refreshInterval time.Duration
	maxRetries      int

	mu        sync.RWMutex
	limit     int
	used      int
	remaining int
	resetAt   time.Time
	source    BudgetSource

	next http.RoundTripper // wrapped transport; defaults to http.DefaultTransport.
}

// NewGovernor constructs a Governor. maxRequestsPerMinute of 0 disables the
// local bucket. margin is the reserve fraction kept unused out of the
// hourly budget (callers default this to 0.7 when zero-valued).
// maxRetries (default 3) bounds RefreshFromEndpoint's retries.
// refreshInterval is stored on the Governor; no method reads it, so no
// periodic budget probe is scheduled.
func NewGovernor(maxRequestsPerMinute int, margin float64, refreshInterval time.Duration, maxRetries int) *Governor {
	var limiter *rate.Limiter
	if maxRequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(maxRequestsPerMinute)/60.0), 1)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Governor{
		limiter:         limiter,
		margin:          margin,
		refreshInterval: refreshInterval,
		maxRetries:      maxRetries,
		source:          BudgetSourceLocal,
		next:            http.DefaultTransport,
	}
}

// SetOutstandingFunc wires the work pool's outstanding-job counter so the
// governor can widen its minimum inter-request interval ("queue margin")
// once outstanding work exceeds slackThreshold, avoiding starvation of
// concurrent callers.
func (g *Governor) SetOutstandingFunc(fn func() int, slackThreshold int, margin time.Duration) {
	g.outstandingFn = fn
	g.slackThreshold = slackThreshold
	g.queueMargin = margin
}

// SetNext sets the wrapped transport used for the actual network round
// trip. Defaults to http.DefaultTransport.
func (g *Governor) SetNext(next http.RoundTripper) {
	if next == nil {
		next = http.DefaultTransport
	}
	g.next = next
}

// Acquire blocks the caller until one request may proceed, honoring both
// the local bucket and the hourly server budget's reserve margin.
func (g *Governor) Acquire(ctx context.Context) error {
	g.mu.RLock()
	blocked := g.limit > 0 && g.remaining <= int(float64(g.limit)*(1-g.margin))
	resetAt := g.resetAt
	g.mu.RUnlock()

	if blocked {
		wait := time.Until(resetAt)
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	if g.limiter == nil {
		return nil
	}

	if g.queueMargin > 0 && g.outstandingFn != nil && g.outstandingFn() > g.slackThreshold {
		// Add queueMargin on top of the limiter's reservation delay to widen
		// spacing between requests while the pool is backlogged.
		reservation := g.limiter.ReserveN(time.Now(), 1)
		if !reservation.OK() {
			return nil
		}
		delay := reservation.Delay() + g.queueMargin
		select {
		case <-time.After(delay):
			return nil
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
	}

	return g.limiter.Wait(ctx)
}

// noteResponse updates the tracked hourly budget from a response's
// X-RateLimit-* headers, and sleeps for Retry-After on 429/403 regardless of
// the computed budget.
func (g *Governor) noteResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				select {
				case <-time.After(time.Duration(secs) * time.Second):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}

	limit, limitErr := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	remaining, remErr := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	resetUnix, resetErr := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	if limitErr != nil || remErr != nil || resetErr != nil {
		return nil
	}

	g.mu.Lock()
	g.limit = limit
	g.remaining = remaining
	g.used = limit - remaining
	g.resetAt = time.Unix(resetUnix, 0)
	g.source = BudgetSourceServer
	g.mu.Unlock()

	return nil
}

// RefreshFromEndpoint probes url (typically the host's rate_limit endpoint)
// to seed the budget snapshot ahead of the first real call, retrying
// transient failures with exponential backoff up to maxRetries retries
// after the first attempt.
// After exhaustion the governor falls back to local-only throttling and
// records the degradation in the snapshot (source becomes "local").
func (g *Governor) RefreshFromEndpoint(ctx context.Context, client *http.Client, url string) {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return g.noteResponse(ctx, resp)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0.2
	bo.MaxInterval = 5 * time.Second

	retrying := backoff.WithMaxRetries(bo, uint64(g.maxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(retrying, ctx)); err != nil {
		slog.Warn("rate limit probe failed after retries; falling back to local throttling", "error", err)
		g.mu.Lock()
		g.source = BudgetSourceLocal
		g.mu.Unlock()
	}
}

// Snapshot returns the current budget view, safe for concurrent reads.
func (g *Governor) Snapshot() BudgetSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return BudgetSnapshot{
		Limit:     g.limit,
		Used:      g.used,
		Remaining: g.remaining,
		Reserve:   g.margin,
		ResetAt:   g.resetAt,
		Source:    g.source,
	}
}

// RoundTrip implements http.RoundTripper: it blocks on Acquire, delegates
// to the wrapped transport, then feeds the response headers back into the
// budget tracker.
func (g *Governor) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := g.Acquire(req.Context()); err != nil {
		return nil, err
	}

	resp, err := g.next.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	_ = g.noteResponse(req.Context(), resp)
	return resp, nil
}
