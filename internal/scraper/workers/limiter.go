// Package workers holds the request pacing shared by the scraping passes.
package workers

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"gigleads/internal/config"
)

// hostState pairs a token-bucket limiter with failure tracking for one host.
type hostState struct {
	limiter      *rate.Limiter
	failureCount int
	lastFailTime time.Time
	open         bool // circuit open: requests rejected until resetTimeout passes
	mu           sync.Mutex
}

const (
	maxFailures  = 5
	resetTimeout = 30 * time.Second
)

// Limiter paces marketplace requests per host. The marketplace throttles and
// fingerprints burst patterns, so every navigation waits here first.
type Limiter struct {
	config *config.Config
	hosts  map[string]*hostState
	mu     sync.Mutex
	logger *logrus.Logger
}

// NewLimiter creates a request limiter.
func NewLimiter(cfg *config.Config, logger *logrus.Logger) *Limiter {
	return &Limiter{
		config: cfg,
		hosts:  make(map[string]*hostState),
		logger: logger,
	}
}

// Wait blocks until a request to the URL's host is allowed, or the context is
// cancelled. Hosts with an open circuit reject immediately until the reset
// timeout has passed.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	state := l.hostState(host)

	state.mu.Lock()
	if state.open {
		if time.Since(state.lastFailTime) < resetTimeout {
			state.mu.Unlock()
			l.logger.WithField("host", host).Debug("Request delayed by open circuit")
			timer := time.NewTimer(resetTimeout - time.Since(state.lastFailTime))
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
			state.mu.Lock()
		}
		state.open = false
		state.failureCount = 0
	}
	state.mu.Unlock()

	return state.limiter.Wait(ctx)
}

// RecordSuccess resets the failure streak for the URL's host.
func (l *Limiter) RecordSuccess(rawURL string) {
	state := l.hostState(hostOf(rawURL))
	state.mu.Lock()
	state.failureCount = 0
	state.mu.Unlock()
}

// RecordFailure counts a failed request; enough consecutive failures open the
// circuit for the host.
func (l *Limiter) RecordFailure(rawURL string, err error) {
	host := hostOf(rawURL)
	state := l.hostState(host)

	state.mu.Lock()
	state.failureCount++
	state.lastFailTime = time.Now()
	if state.failureCount >= maxFailures && !state.open {
		state.open = true
		l.logger.WithFields(logrus.Fields{
			"host":     host,
			"failures": state.failureCount,
			"error":    err.Error(),
		}).Warn("Circuit opened for host after repeated failures")
	}
	state.mu.Unlock()
}

func (l *Limiter) hostState(host string) *hostState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state, ok := l.hosts[host]; ok {
		return state
	}

	rps := rate.Limit(float64(l.config.RateLimit.RequestsPerMinute) / 60.0)
	state := &hostState{
		limiter: rate.NewLimiter(rps, l.config.RateLimit.Burst),
	}
	l.hosts[host] = state

	l.logger.WithFields(logrus.Fields{
		"host":  host,
		"rate":  rps,
		"burst": l.config.RateLimit.Burst,
	}).Debug("Created host rate limiter")

	return state
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}
