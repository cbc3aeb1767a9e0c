package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gigleads/internal/config"
)

func limiterForTest() *Limiter {
	cfg := &config.Config{}
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.Burst = 100

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewLimiter(cfg, logger)
}

func TestLimiterWait(t *testing.T) {
	l := limiterForTest()
	for i := 0; i < 5; i++ {
		if err := l.Wait(context.Background(), "https://sfbay.craigslist.org/search/ggg"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestLimiterWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &config.Config{}
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.Burst = 1

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	l := NewLimiter(cfg, logger)

	// Drain the burst token, then a cancelled wait must return promptly.
	_ = l.Wait(context.Background(), "https://sfbay.craigslist.org/")
	if err := l.Wait(ctx, "https://sfbay.craigslist.org/"); err == nil {
		t.Fatal("Wait = nil, want context error")
	}
}

func TestLimiterCircuitOpensPerHost(t *testing.T) {
	l := limiterForTest()
	failErr := errors.New("navigation failed")

	for i := 0; i < maxFailures; i++ {
		l.RecordFailure("https://sfbay.craigslist.org/search/ggg", failErr)
	}

	state := l.hostState("sfbay.craigslist.org")
	state.mu.Lock()
	open := state.open
	state.mu.Unlock()
	if !open {
		t.Error("circuit not open after repeated failures")
	}

	// Other hosts are unaffected.
	other := l.hostState("newyork.craigslist.org")
	other.mu.Lock()
	otherOpen := other.open
	other.mu.Unlock()
	if otherOpen {
		t.Error("unrelated host circuit opened")
	}

	// An open circuit still honors cancellation instead of blocking out the
	// full reset timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "https://sfbay.craigslist.org/search/ggg"); err == nil {
		t.Error("Wait on open circuit = nil, want context error")
	}
}

func TestLimiterSuccessResetsFailures(t *testing.T) {
	l := limiterForTest()
	failErr := errors.New("navigation failed")

	for i := 0; i < maxFailures-1; i++ {
		l.RecordFailure("https://sfbay.craigslist.org/", failErr)
	}
	l.RecordSuccess("https://sfbay.craigslist.org/")
	l.RecordFailure("https://sfbay.craigslist.org/", failErr)

	state := l.hostState("sfbay.craigslist.org")
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.open {
		t.Error("circuit opened despite intervening success")
	}
	if state.failureCount != 1 {
		t.Errorf("failure count = %d, want 1", state.failureCount)
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://SFBay.craigslist.org/search/ggg", "sfbay.craigslist.org"},
		{"https://newyork.craigslist.org", "newyork.craigslist.org"},
		{"not a url", "unknown"},
	}

	for _, tt := range tests {
		if got := hostOf(tt.url); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
