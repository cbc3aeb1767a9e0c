// Package craigslist orchestrates listing discovery, pagination, and
// enrichment over a classifieds marketplace.
package craigslist

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gigleads/internal/browser"
	"gigleads/internal/config"
	"gigleads/internal/scraper/email"
	"gigleads/internal/scraper/listing"
	"gigleads/internal/scraper/workers"
	"gigleads/internal/sink"
	"gigleads/pkg/models"
	"gigleads/pkg/utils"
)

// categoryPaths maps logical category names to marketplace path codes.
// Unknown categories pass through verbatim.
var categoryPaths = map[string]string{
	"gigs":      "ggg",
	"jobs":      "jjj",
	"for-sale":  "sss",
	"services":  "bbb",
	"housing":   "hhh",
	"community": "ccc",
	"resumes":   "rrr",
}

// SessionProvider hands out browser pages for the sequential passes.
type SessionProvider interface {
	Acquire(ctx context.Context) (browser.Page, error)
}

// HTMLArchiver stores raw detail-page HTML for re-analysis.
type HTMLArchiver interface {
	ArchiveListing(ctx context.Context, listingID, html string) error
}

// EnrichmentOptions toggles the two enrichment passes independently; only
// email extraction can incur solver cost.
type EnrichmentOptions struct {
	ExtractContactDetails bool
	ExtractEmails         bool
}

// Scraper is the top-level orchestrator. Discovery and detail enrichment run
// sequentially on one page to preserve session state; only the email batch
// pass parallelizes.
type Scraper struct {
	config   *config.Config
	sessions SessionProvider
	emails   *email.Extractor
	limiter  *workers.Limiter
	logger   *logrus.Logger
	stats    *RunStats

	leadSink sink.LeadSink
	seen     *sink.SeenCache
	archiver HTMLArchiver
}

// New creates a scraper. Sink, seen-cache, and archiver are optional and
// attached with the With* methods.
func New(cfg *config.Config, sessions SessionProvider, emails *email.Extractor, logger *logrus.Logger) *Scraper {
	return &Scraper{
		config:   cfg,
		sessions: sessions,
		emails:   emails,
		limiter:  workers.NewLimiter(cfg, logger),
		logger:   logger,
		stats:    &RunStats{},
	}
}

// WithSink attaches a lead sink; every finished record is handed to it.
func (s *Scraper) WithSink(ls sink.LeadSink) *Scraper {
	s.leadSink = ls
	return s
}

// WithSeenCache attaches a dedupe cache; already-seen listing IDs are skipped
// before any enrichment cost is paid.
func (s *Scraper) WithSeenCache(c *sink.SeenCache) *Scraper {
	s.seen = c
	return s
}

// WithArchiver attaches a raw-HTML archiver for detail pages.
func (s *Scraper) WithArchiver(a HTMLArchiver) *Scraper {
	s.archiver = a
	return s
}

// Stats returns the run counters.
func (s *Scraper) Stats() *RunStats {
	return s.stats
}

// ScrapeLocation discovers listing summaries for each category, up to
// maxPages per category. Categories run sequentially with a random delay
// between them; a category's failure is logged and skipped without aborting
// the others. Cancellation returns everything collected so far.
func (s *Scraper) ScrapeLocation(ctx context.Context, locationURL string, categories, keywords []string, maxPages int) ([]*models.ListingSummary, error) {
	summaries, err := s.discover(ctx, locationURL, categories, keywords, maxPages)
	if err != nil {
		return summaries, err
	}

	if s.leadSink != nil {
		for _, summary := range summaries {
			if err := s.leadSink.SaveSummary(ctx, summary); err != nil {
				s.logger.WithFields(logrus.Fields{
					"listing_id": summary.ListingID,
					"error":      err.Error(),
				}).Warn("Failed to persist summary")
			}
		}
	}

	return summaries, nil
}

// discover runs the paginated category iteration on one reused page.
func (s *Scraper) discover(ctx context.Context, locationURL string, categories, keywords []string, maxPages int) ([]*models.ListingSummary, error) {
	page, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser page: %w", err)
	}
	defer page.Close()

	var summaries []*models.ListingSummary

	for i, category := range categories {
		if ctx.Err() != nil {
			s.logger.Info("Scrape cancelled; returning partial results")
			return summaries, nil
		}

		if i > 0 {
			if err := s.pause(ctx); err != nil {
				return summaries, nil
			}
		}

		categorySummaries, err := s.scrapeCategory(ctx, page, locationURL, category, keywords, maxPages)
		if err != nil {
			s.stats.CategoriesSkipped.Add(1)
			s.logger.WithFields(logrus.Fields{
				"category": category,
				"error":    err.Error(),
			}).Warn("Category scrape failed; skipping")
			continue
		}
		summaries = append(summaries, categorySummaries...)
	}

	s.logger.WithFields(logrus.Fields{
		"location":   locationURL,
		"categories": len(categories),
		"listings":   len(summaries),
	}).Info("Listing discovery completed")

	return summaries, nil
}

// scrapeCategory paginates one category until maxPages or an empty page,
// which marks the end of results rather than an error.
func (s *Scraper) scrapeCategory(ctx context.Context, page browser.Page, locationURL, category string, keywords []string, maxPages int) ([]*models.ListingSummary, error) {
	var summaries []*models.ListingSummary
	keyword := strings.Join(keywords, " ")

	for pageNum := 0; pageNum < maxPages; pageNum++ {
		if ctx.Err() != nil {
			return summaries, nil
		}

		searchURL := s.buildSearchURL(locationURL, category, keyword, pageNum)

		if err := s.limiter.Wait(ctx, searchURL); err != nil {
			return summaries, nil
		}
		if pageNum > 0 {
			if err := s.pause(ctx); err != nil {
				return summaries, nil
			}
		}

		if err := page.Navigate(ctx, searchURL, s.config.Scraper.RequestTimeout); err != nil {
			s.limiter.RecordFailure(searchURL, err)
			// One unloadable page is a soft failure for the category page,
			// not the category.
			s.logger.WithFields(logrus.Fields{
				"url":   searchURL,
				"error": err.Error(),
			}).Warn("Results page failed to load; skipping page")
			continue
		}
		s.limiter.RecordSuccess(searchURL)
		s.stats.PagesFetched.Add(1)

		html, err := page.HTML()
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"url":   searchURL,
				"error": err.Error(),
			}).Warn("Failed to read results page HTML; skipping page")
			continue
		}

		result, err := listing.ParsePage(html, searchURL, time.Now().UTC(), s.logger)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"url":   searchURL,
				"error": err.Error(),
			}).Warn("Failed to parse results page; skipping page")
			continue
		}

		s.stats.RowsParsed.Add(int64(len(result.Summaries)))
		s.stats.RowsSkipped.Add(int64(result.Skipped))

		if len(result.Summaries) == 0 {
			s.logger.WithFields(logrus.Fields{
				"category": category,
				"page":     pageNum,
			}).Debug("Empty results page; end of category")
			break
		}

		summaries = append(summaries, result.Summaries...)
	}

	return summaries, nil
}

// buildSearchURL composes the search URL for one category page. Page N is
// requested via an offset of N x results-per-page.
func (s *Scraper) buildSearchURL(locationURL, category, keyword string, pageNum int) string {
	base := strings.TrimRight(locationURL, "/")
	path := categoryPath(category)

	params := url.Values{}
	if keyword != "" {
		params.Set("query", keyword)
	}
	if pageNum > 0 {
		params.Set("s", strconv.Itoa(pageNum*s.config.Scraper.ResultsPerPage))
	}

	searchURL := fmt.Sprintf("%s/search/%s", base, path)
	if encoded := params.Encode(); encoded != "" {
		searchURL += "?" + encoded
	}
	return searchURL
}

// categoryPath resolves a logical category name to its marketplace path code.
func categoryPath(category string) string {
	if code, ok := categoryPaths[strings.ToLower(category)]; ok {
		return code
	}
	return category
}

// ScrapeLocationWithEmails runs discovery and then the optional enrichment
// passes. Detail extraction is cheap and captcha-free; email extraction is
// the only pass that can spend solver budget.
func (s *Scraper) ScrapeLocationWithEmails(ctx context.Context, locationURL string, categories, keywords []string, maxPages int, opts EnrichmentOptions) ([]*models.ListingDetail, error) {
	summaries, err := s.discover(ctx, locationURL, categories, keywords, maxPages)
	if err != nil {
		return nil, err
	}

	summaries = s.filterSeen(ctx, summaries)

	details := make([]*models.ListingDetail, 0, len(summaries))
	if opts.ExtractContactDetails {
		details = s.enrichDetails(ctx, summaries)
	} else {
		for _, summary := range summaries {
			details = append(details, &models.ListingDetail{ListingSummary: *summary})
		}
	}

	if opts.ExtractEmails && ctx.Err() == nil {
		s.enrichEmails(ctx, details)
	}

	for _, detail := range details {
		if s.leadSink != nil {
			if err := s.leadSink.SaveDetail(ctx, detail); err != nil {
				s.logger.WithFields(logrus.Fields{
					"listing_id": detail.ListingID,
					"error":      err.Error(),
				}).Warn("Failed to persist detail")
			}
		}
		if s.seen != nil {
			s.seen.Mark(ctx, detail.ListingID)
		}
	}

	return details, nil
}

// filterSeen drops listings already present in the dedupe cache.
func (s *Scraper) filterSeen(ctx context.Context, summaries []*models.ListingSummary) []*models.ListingSummary {
	if s.seen == nil {
		return summaries
	}
	kept := summaries[:0]
	for _, summary := range summaries {
		if s.seen.Seen(ctx, summary.ListingID) {
			continue
		}
		kept = append(kept, summary)
	}
	if dropped := len(summaries) - len(kept); dropped > 0 {
		s.logger.WithField("dropped", dropped).Info("Skipped already-seen listings")
	}
	return kept
}

// enrichDetails upgrades summaries to details sequentially on one page. A
// listing whose detail page fails to load is retained as a bare summary.
func (s *Scraper) enrichDetails(ctx context.Context, summaries []*models.ListingSummary) []*models.ListingDetail {
	details := make([]*models.ListingDetail, 0, len(summaries))

	page, err := s.sessions.Acquire(ctx)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Failed to acquire page for detail enrichment")
		for _, summary := range summaries {
			details = append(details, &models.ListingDetail{ListingSummary: *summary})
		}
		return details
	}
	defer page.Close()

	for _, summary := range summaries {
		if ctx.Err() != nil {
			details = append(details, &models.ListingDetail{ListingSummary: *summary})
			continue
		}

		detail := s.fetchDetail(ctx, page, summary)
		details = append(details, detail)
	}

	return details
}

func (s *Scraper) fetchDetail(ctx context.Context, page browser.Page, summary *models.ListingSummary) *models.ListingDetail {
	fallback := &models.ListingDetail{ListingSummary: *summary}

	if err := s.limiter.Wait(ctx, summary.URL); err != nil {
		return fallback
	}
	if err := s.pause(ctx); err != nil {
		return fallback
	}

	if err := page.Navigate(ctx, summary.URL, s.config.Scraper.RequestTimeout); err != nil {
		s.limiter.RecordFailure(summary.URL, err)
		s.stats.DetailFailures.Add(1)
		s.logger.WithFields(logrus.Fields{
			"listing_id": summary.ListingID,
			"error":      err.Error(),
		}).Warn("Detail page failed to load; keeping bare summary")
		return fallback
	}
	s.limiter.RecordSuccess(summary.URL)

	html, err := page.HTML()
	if err != nil {
		s.stats.DetailFailures.Add(1)
		return fallback
	}

	detail := listing.ExtractDetail(html, summary)
	detail.Contact = listing.ExtractContact(html)
	s.stats.DetailsExtracted.Add(1)

	if s.archiver != nil {
		if err := s.archiver.ArchiveListing(ctx, summary.ListingID, html); err != nil {
			s.logger.WithFields(logrus.Fields{
				"listing_id": summary.ListingID,
				"error":      err.Error(),
			}).Warn("Failed to archive detail HTML")
		}
	}

	return detail
}

// enrichEmails runs the concurrency-bounded email batch over listings that
// still lack a reply email.
func (s *Scraper) enrichEmails(ctx context.Context, details []*models.ListingDetail) {
	byURL := make(map[string]*models.ListingDetail, len(details))
	var urls []string
	for _, detail := range details {
		if detail.Contact != nil && detail.Contact.ReplyEmail != "" {
			continue
		}
		byURL[detail.URL] = detail
		urls = append(urls, detail.URL)
	}
	if len(urls) == 0 {
		return
	}

	results := s.emails.BatchExtract(ctx, urls, s.config.Scraper.Email.MaxConcurrent)
	for u, addr := range results {
		if addr == "" {
			continue
		}
		detail := byURL[u]
		if detail.Contact == nil {
			detail.Contact = &models.ContactInfo{}
		}
		detail.Contact.ReplyEmail = addr
		s.stats.EmailsFound.Add(1)
	}
}

// pause inserts the configured random inter-request delay, honoring
// cancellation.
func (s *Scraper) pause(ctx context.Context) error {
	return utils.SleepWithJitter(ctx, s.config.Scraper.MinDelay, s.config.Scraper.MaxDelay)
}
