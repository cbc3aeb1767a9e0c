// Package email recovers poster email addresses for listings, composing the
// browser session with captcha solving when the reply flow is gated.
package email

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"gigleads/internal/browser"
	"gigleads/internal/config"
	"gigleads/internal/scraper/captcha"
	"gigleads/pkg/utils"
)

// replySelectors locate the reply control on a listing page, tried in order.
var replySelectors = []string{
	"button.reply-button",
	"a.reply-button",
	"button[data-href*='reply']",
	"a[href*='/reply/']",
	"#replylink",
	".reply_button",
}

// revealedEmailSelectors locate the revealed address after the reply flow.
var revealedEmailSelectors = []string{
	".reply-email-address",
	".reply-email a",
	"div.reply-content a[href^='mailto:']",
	"a[href^='mailto:']",
}

// SessionProvider hands out browser pages; each concurrent task gets its own
// tab so page-level state is never shared.
type SessionProvider interface {
	Acquire(ctx context.Context) (browser.Page, error)
}

// Extractor recovers poster emails, cheapest strategy first: direct scan of
// the rendered page, then the captcha-gated reply flow.
type Extractor struct {
	config   *config.Config
	sessions SessionProvider
	solver   *captcha.Solver
	logger   *logrus.Logger

	// extractFn is the per-URL entry point; swapped out in tests.
	extractFn func(ctx context.Context, listingURL string) string
}

// NewExtractor creates an email extractor.
func NewExtractor(cfg *config.Config, sessions SessionProvider, solver *captcha.Solver, logger *logrus.Logger) *Extractor {
	e := &Extractor{
		config:   cfg,
		sessions: sessions,
		solver:   solver,
		logger:   logger,
	}
	e.extractFn = e.extractOne
	return e
}

// Extract recovers the poster email for one listing URL. An empty string
// means no email could be recovered; extraction failures are soft and never
// surface as errors.
func (e *Extractor) Extract(ctx context.Context, listingURL string) string {
	return e.extractFn(ctx, listingURL)
}

func (e *Extractor) extractOne(ctx context.Context, listingURL string) string {
	page, err := e.sessions.Acquire(ctx)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"url":   listingURL,
			"error": err.Error(),
		}).Warn("Failed to acquire page for email extraction")
		return ""
	}
	defer page.Close()

	timeout := e.config.Scraper.RequestTimeout

	if err := page.Navigate(ctx, listingURL, timeout); err != nil {
		e.logger.WithFields(logrus.Fields{
			"url":   listingURL,
			"error": err.Error(),
		}).Warn("Failed to load listing for email extraction")
		return ""
	}

	if html, err := page.HTML(); err == nil {
		if email := DirectScan(html); email != "" {
			e.logger.WithFields(logrus.Fields{
				"url":      listingURL,
				"strategy": "direct_scan",
			}).Info("Email found")
			return email
		}
	}

	// A failed captcha submission can leave the page unrecoverable, so every
	// reply-flow attempt re-navigates to the original listing first.
	for attempt := 1; attempt <= e.config.Scraper.Email.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ""
		}

		if attempt > 1 {
			if err := utils.SleepWithJitter(ctx, e.config.Scraper.Email.RetryDelay, e.config.Scraper.Email.RetryDelay); err != nil {
				return ""
			}
			if err := page.Navigate(ctx, listingURL, timeout); err != nil {
				continue
			}
		}

		email, err := e.replyFlow(ctx, page)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"url":     listingURL,
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Reply-flow email extraction attempt failed")
			continue
		}
		if email != "" {
			e.logger.WithFields(logrus.Fields{
				"url":      listingURL,
				"strategy": "reply_flow",
				"attempt":  attempt,
			}).Info("Email found")
			return email
		}
	}

	return ""
}

// replyFlow follows the reply control, resolves any challenge, and rescans
// the resulting page.
func (e *Extractor) replyFlow(ctx context.Context, page browser.Page) (string, error) {
	var clickErr error
	clicked := false
	for _, sel := range replySelectors {
		if err := page.Click(sel); err != nil {
			clickErr = err
			continue
		}
		clicked = true
		break
	}
	if !clicked {
		return "", clickErr
	}

	if err := utils.SleepWithJitter(ctx, time.Second, 2*time.Second); err != nil {
		return "", err
	}

	if _, err := e.solver.Resolve(ctx, page, page.CurrentURL()); err != nil {
		return "", err
	}

	if err := utils.SleepWithJitter(ctx, time.Second, 2*time.Second); err != nil {
		return "", err
	}

	html, err := page.HTML()
	if err != nil {
		return "", err
	}
	return DirectScan(html), nil
}

// DirectScan pulls the first acceptable email out of page HTML: revealed-email
// elements and mailto anchors first, then the rendered text. Marketplace
// relay and placeholder addresses are filtered out.
func DirectScan(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, sel := range revealedEmailSelectors {
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			candidate := strings.TrimPrefix(el.AttrOr("href", ""), "mailto:")
			if candidate == "" {
				candidate = el.Text()
			}
			if emails := utils.FindEmails(candidate); len(emails) > 0 {
				found = emails[0]
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	if emails := utils.FindEmails(doc.Text()); len(emails) > 0 {
		return emails[0]
	}
	return ""
}

// BatchExtract runs per-URL extraction for every input under a concurrency
// bound. All tasks run to completion; one listing's failure never cancels the
// others. The returned map has exactly one entry per input URL, with ""
// meaning no email was found.
func (e *Extractor) BatchExtract(ctx context.Context, urls []string, maxConcurrent int) map[string]string {
	if maxConcurrent <= 0 {
		maxConcurrent = e.config.Scraper.Email.MaxConcurrent
	}

	results := make(map[string]string, len(urls))
	for _, u := range urls {
		results[u] = ""
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, u := range urls {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled: remaining URLs keep their empty entries.
			break
		}
		wg.Add(1)
		go func(listingURL string) {
			defer wg.Done()
			defer sem.Release(1)

			email := e.extractFn(ctx, listingURL)

			mu.Lock()
			results[listingURL] = email
			mu.Unlock()
		}(u)
	}

	wg.Wait()
	return results
}
