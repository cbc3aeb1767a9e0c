package email

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gigleads/internal/config"
)

func extractorForTest() *Extractor {
	cfg := &config.Config{}
	cfg.Scraper.Email.MaxConcurrent = 2
	cfg.Scraper.Email.MaxRetries = 3
	cfg.Scraper.Email.RetryDelay = time.Millisecond

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return NewExtractor(cfg, nil, nil, logger)
}

func TestDirectScanRevealedElement(t *testing.T) {
	html := `<html><body>
	<div class="reply-email-address">poster@example.com</div>
	</body></html>`

	if got := DirectScan(html); got != "poster@example.com" {
		t.Errorf("DirectScan = %q, want poster@example.com", got)
	}
}

func TestDirectScanMailtoAnchor(t *testing.T) {
	html := `<html><body>
	<a href="mailto:hiring@company.io?subject=gig">reply by email</a>
	</body></html>`

	if got := DirectScan(html); got != "hiring@company.io" {
		t.Errorf("DirectScan = %q, want hiring@company.io", got)
	}
}

func TestDirectScanBodyText(t *testing.T) {
	html := `<html><body>
	<section id="postingbody">Contact me at gigs.poster@gmail.com for details.</section>
	</body></html>`

	if got := DirectScan(html); got != "gigs.poster@gmail.com" {
		t.Errorf("DirectScan = %q, want gigs.poster@gmail.com", got)
	}
}

func TestDirectScanFiltersRelayAddresses(t *testing.T) {
	html := `<html><body>
	<a href="mailto:a1b2c3d4e5@reply.craigslist.org">reply</a>
	<p>or reach me at real.person@example.com</p>
	</body></html>`

	if got := DirectScan(html); got != "real.person@example.com" {
		t.Errorf("DirectScan = %q, relay address must be skipped", got)
	}

	relayOnly := `<html><body>
	<a href="mailto:a1b2c3d4e5@reply.craigslist.org">reply</a>
	</body></html>`
	if got := DirectScan(relayOnly); got != "" {
		t.Errorf("DirectScan = %q, want empty when only relay addresses exist", got)
	}
}

func TestBatchExtractBoundsConcurrency(t *testing.T) {
	e := extractorForTest()

	var inFlight, peak atomic.Int64
	e.extractFn = func(ctx context.Context, listingURL string) string {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "found@" + listingURL
	}

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("example.com/%d", i)
	}

	results := e.BatchExtract(context.Background(), urls, 3)

	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for _, u := range urls {
		if results[u] != "found@"+u {
			t.Errorf("results[%q] = %q", u, results[u])
		}
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("peak in-flight = %d, want <= 3", got)
	}
}

func TestBatchExtractNotFoundEntries(t *testing.T) {
	e := extractorForTest()
	e.extractFn = func(ctx context.Context, listingURL string) string {
		if listingURL == "example.com/hit" {
			return "poster@example.com"
		}
		return ""
	}

	results := e.BatchExtract(context.Background(), []string{"example.com/hit", "example.com/miss"}, 2)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["example.com/hit"] != "poster@example.com" {
		t.Errorf("hit = %q", results["example.com/hit"])
	}
	if email, ok := results["example.com/miss"]; !ok || email != "" {
		t.Errorf("miss entry = %q, %v; want present and empty", email, ok)
	}
}

func TestBatchExtractCancelled(t *testing.T) {
	e := extractorForTest()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	e.extractFn = func(ctx context.Context, listingURL string) string {
		calls.Add(1)
		cancel()
		time.Sleep(5 * time.Millisecond)
		return "found@" + listingURL
	}

	urls := []string{"example.com/0", "example.com/1", "example.com/2", "example.com/3"}
	results := e.BatchExtract(ctx, urls, 1)

	// Every URL still has an entry; the ones never attempted stay empty.
	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	if calls.Load() == int64(len(urls)) {
		t.Error("all URLs were attempted despite cancellation")
	}
}
