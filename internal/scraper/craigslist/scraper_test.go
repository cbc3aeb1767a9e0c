package craigslist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"gigleads/internal/browser"
	"gigleads/internal/config"
	"gigleads/internal/scraper/email"
	"gigleads/pkg/models"
)

func configForTest() *config.Config {
	cfg := &config.Config{}
	cfg.Scraper.RequestTimeout = time.Second
	cfg.Scraper.ResultsPerPage = 120
	cfg.Scraper.MinDelay = 0
	cfg.Scraper.MaxDelay = 0
	cfg.Scraper.Email.MaxConcurrent = 2
	cfg.Scraper.Email.MaxRetries = 1
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.Burst = 100
	return cfg
}

func loggerForTest() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakePage serves canned HTML per URL. URLs with no entry load an empty page.
type fakePage struct {
	mu       sync.Mutex
	pages    map[string]string
	failures map[string]error
	current  string
	visited  []string
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visited = append(p.visited, url)
	if err := p.failures[url]; err != nil {
		return err
	}
	p.current = url
	return nil
}

func (p *fakePage) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if html, ok := p.pages[p.current]; ok {
		return html, nil
	}
	return "<html><body></body></html>", nil
}

func (p *fakePage) CurrentURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePage) Click(selector string) error              { return errors.New("no such element") }
func (p *fakePage) Fill(selector, value string) error        { return nil }
func (p *fakePage) Eval(js string) error                     { return nil }
func (p *fakePage) ElementScreenshot(string) ([]byte, error) { return nil, errors.New("no element") }
func (p *fakePage) Close()                                   {}

// fakeProvider hands out the same fake page for every acquire.
type fakeProvider struct {
	page *fakePage
	err  error
}

func (f *fakeProvider) Acquire(ctx context.Context) (browser.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

// recordingSink collects everything saved.
type recordingSink struct {
	mu        sync.Mutex
	summaries []*models.ListingSummary
	details   []*models.ListingDetail
}

func (s *recordingSink) SaveSummary(ctx context.Context, summary *models.ListingSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *recordingSink) SaveDetail(ctx context.Context, detail *models.ListingDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = append(s.details, detail)
	return nil
}

func (s *recordingSink) Close() error { return nil }

const resultsPageHTML = `<html><body>
<li class="cl-static-search-result">
  <a href="https://sfbay.craigslist.org/sfc/ggg/d/mover/7712000001.html">
    <div class="title">Mover needed</div>
  </a>
  <div class="price">$150</div>
</li>
<li class="cl-static-search-result">
  <a href="https://sfbay.craigslist.org/sfc/ggg/d/painter/7712000002.html">
    <div class="title">Painter wanted</div>
  </a>
</li>
<li class="cl-static-search-result">
  <div class="title">Row without a link</div>
</li>
</body></html>`

func TestCategoryPath(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"gigs", "ggg"},
		{"jobs", "jjj"},
		{"for-sale", "sss"},
		{"services", "bbb"},
		{"housing", "hhh"},
		{"community", "ccc"},
		{"resumes", "rrr"},
		{"GIGS", "ggg"},
		{"boats", "boats"}, // unknown categories pass through
	}

	for _, tt := range tests {
		if got := categoryPath(tt.category); got != tt.want {
			t.Errorf("categoryPath(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestBuildSearchURL(t *testing.T) {
	s := New(configForTest(), nil, nil, loggerForTest())

	got := s.buildSearchURL("https://sfbay.craigslist.org/", "gigs", "", 0)
	want := "https://sfbay.craigslist.org/search/ggg"
	if got != want {
		t.Errorf("page 0 URL = %q, want %q", got, want)
	}

	got = s.buildSearchURL("https://sfbay.craigslist.org", "gigs", "dog walker", 2)
	want = "https://sfbay.craigslist.org/search/ggg?query=dog+walker&s=240"
	if got != want {
		t.Errorf("page 2 URL = %q, want %q", got, want)
	}
}

func TestScrapeLocation(t *testing.T) {
	page := &fakePage{
		pages: map[string]string{
			"https://sfbay.craigslist.org/search/ggg": resultsPageHTML,
			// Page 1 has no entry and loads empty, ending the category.
		},
	}
	sink := &recordingSink{}

	s := New(configForTest(), &fakeProvider{page: page}, nil, loggerForTest()).WithSink(sink)

	summaries, err := s.ScrapeLocation(context.Background(), "https://sfbay.craigslist.org", []string{"gigs"}, nil, 3)
	if err != nil {
		t.Fatalf("ScrapeLocation: %v", err)
	}

	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2 (broken row dropped)", len(summaries))
	}
	if summaries[0].ListingID != "7712000001" || summaries[1].ListingID != "7712000002" {
		t.Errorf("listing IDs = %s, %s", summaries[0].ListingID, summaries[1].ListingID)
	}
	if len(sink.summaries) != 2 {
		t.Errorf("sink received %d summaries, want 2", len(sink.summaries))
	}

	// The empty second page ends pagination before maxPages.
	if len(page.visited) != 2 {
		t.Errorf("visited %d pages, want 2: %v", len(page.visited), page.visited)
	}

	stats := s.Stats()
	if got := stats.RowsParsed.Load(); got != 2 {
		t.Errorf("rows parsed = %d, want 2", got)
	}
	if got := stats.RowsSkipped.Load(); got != 1 {
		t.Errorf("rows skipped = %d, want 1", got)
	}
	if got := stats.PagesFetched.Load(); got != 2 {
		t.Errorf("pages fetched = %d, want 2", got)
	}
}

func TestScrapeLocationEmptyCategory(t *testing.T) {
	page := &fakePage{
		pages: map[string]string{
			"https://sfbay.craigslist.org/search/ggg": resultsPageHTML,
		},
	}
	provider := &fakeProvider{page: page}

	s := New(configForTest(), provider, nil, loggerForTest())

	// The jobs category serves only empty pages; it contributes nothing and
	// the run moves on to the next category.
	summaries, err := s.ScrapeLocation(context.Background(), "https://sfbay.craigslist.org", []string{"jobs", "gigs"}, nil, 1)
	if err != nil {
		t.Fatalf("ScrapeLocation: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("got %d summaries, want 2 from the surviving category", len(summaries))
	}
}

func TestScrapeLocationCancelledReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{pages: map[string]string{}}
	s := New(configForTest(), &fakeProvider{page: page}, nil, loggerForTest())

	summaries, err := s.ScrapeLocation(ctx, "https://sfbay.craigslist.org", []string{"gigs"}, nil, 3)
	if err != nil {
		t.Fatalf("err = %v, cancellation must not surface as an error", err)
	}
	if len(summaries) != 0 {
		t.Errorf("got %d summaries, want 0", len(summaries))
	}
}

const detailPageHTML = `<html><body>
<section id="postingbody">QR Code Link to This Post Help me move a couch. compensation: $150 flat</section>
<p class="attrgroup"><span>compensation: $150 flat</span></p>
</body></html>`

func TestScrapeLocationWithEmailsDetailPass(t *testing.T) {
	page := &fakePage{
		pages: map[string]string{
			"https://sfbay.craigslist.org/search/ggg":                  resultsPageHTML,
			"https://sfbay.craigslist.org/sfc/ggg/d/mover/7712000001.html": detailPageHTML,
			// The painter detail page fails to load.
		},
		failures: map[string]error{
			"https://sfbay.craigslist.org/sfc/ggg/d/painter/7712000002.html": errors.New("navigation failed"),
		},
	}
	sink := &recordingSink{}

	cfg := configForTest()
	extractor := email.NewExtractor(cfg, &fakeProvider{page: page}, nil, loggerForTest())
	s := New(cfg, &fakeProvider{page: page}, extractor, loggerForTest()).WithSink(sink)

	details, err := s.ScrapeLocationWithEmails(context.Background(), "https://sfbay.craigslist.org", []string{"gigs"}, nil, 1, EnrichmentOptions{
		ExtractContactDetails: true,
	})
	if err != nil {
		t.Fatalf("ScrapeLocationWithEmails: %v", err)
	}

	if len(details) != 2 {
		t.Fatalf("got %d details, want 2", len(details))
	}

	byID := map[string]*models.ListingDetail{}
	for _, d := range details {
		byID[d.ListingID] = d
	}

	mover := byID["7712000001"]
	if mover == nil || mover.Compensation != "$150 flat" {
		t.Errorf("mover detail = %+v, want compensation extracted", mover)
	}

	// The failed detail page degrades to a bare summary, never a dropped lead.
	painter := byID["7712000002"]
	if painter == nil {
		t.Fatal("painter lead dropped after detail failure")
	}
	if painter.Description != "" || painter.Compensation != "" {
		t.Errorf("painter detail = %+v, want bare summary", painter)
	}

	if len(sink.details) != 2 {
		t.Errorf("sink received %d details, want 2", len(sink.details))
	}

	stats := s.Stats()
	if got := stats.DetailsExtracted.Load(); got != 1 {
		t.Errorf("details extracted = %d, want 1", got)
	}
	if got := stats.DetailFailures.Load(); got != 1 {
		t.Errorf("detail failures = %d, want 1", got)
	}
}
