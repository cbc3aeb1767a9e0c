package listing

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"gigleads/internal/scraper/dates"
	"gigleads/pkg/models"
)

// listingIDRe extracts the external listing ID from the numeric suffix of a
// canonical posting URL, e.g. /gigs/d/title/7712345678.html.
var listingIDRe = regexp.MustCompile(`(\d+)(?:\.html)?/?$`)

// PageResult is the outcome of parsing one search results page.
type PageResult struct {
	Summaries []*models.ListingSummary
	Skipped   int // rows the winning strategy matched but that yielded no ID
}

// ParsePage extracts listing summaries from a search results page. Row
// strategies are tried in order; the first one that matches at least one row
// is used for the whole page. Rows without an extractable listing ID are
// dropped and counted as soft failures.
func ParsePage(html, pageURL string, now time.Time, logger *logrus.Logger) (*PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}

	var rows *goquery.Selection
	for _, sel := range rowSelectors {
		if matched := doc.Find(sel); matched.Length() > 0 {
			rows = matched
			logger.WithFields(logrus.Fields{
				"strategy": sel,
				"rows":     matched.Length(),
			}).Debug("Results page row strategy selected")
			break
		}
	}
	if rows == nil {
		return &PageResult{}, nil
	}

	result := &PageResult{}
	rows.Each(func(_ int, row *goquery.Selection) {
		summary := parseRow(row, base, now)
		if summary == nil {
			result.Skipped++
			return
		}
		result.Summaries = append(result.Summaries, summary)
	})

	if result.Skipped > 0 {
		logger.WithFields(logrus.Fields{
			"page":    pageURL,
			"skipped": result.Skipped,
		}).Warn("Some result rows yielded no listing ID")
	}

	return result, nil
}

// parseRow extracts one summary from a result row. Returns nil when no
// listing ID can be derived, which drops the row.
func parseRow(row *goquery.Selection, base *url.URL, now time.Time) *models.ListingSummary {
	title, href := extractAnchor(row)
	if href == "" {
		return nil
	}

	absURL := resolveURL(base, href)
	id := extractListingID(absURL)
	if id == "" {
		return nil
	}

	summary := &models.ListingSummary{
		ListingID:    id,
		Title:        title,
		URL:          absURL,
		Price:        extractPrice(row),
		PostedAt:     extractPostedAt(row, now),
		Neighborhood: extractHood(row),
		ScrapedAt:    now,
	}
	return summary
}

// extractAnchor returns the row's title and href using the anchor fallback
// list; the first anchor with a non-empty href wins.
func extractAnchor(row *goquery.Selection) (title, href string) {
	for _, sel := range anchorSelectors {
		a := row.Find(sel).First()
		if a.Length() == 0 {
			continue
		}
		h, ok := a.Attr("href")
		if !ok || strings.TrimSpace(h) == "" {
			continue
		}
		return strings.TrimSpace(a.Text()), strings.TrimSpace(h)
	}
	return "", ""
}

// extractPrice parses the row's price badge. Unparseable prices yield nil,
// never zero.
func extractPrice(row *goquery.Selection) *float64 {
	for _, sel := range priceSelectors {
		el := row.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if price, ok := NormalizePrice(el.Text()); ok {
			return &price
		}
	}
	return nil
}

// NormalizePrice strips currency symbols and separators and parses the
// remainder as a float.
func NormalizePrice(text string) (float64, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// extractPostedAt parses the row's posting date, preferring machine-readable
// datetime/title attributes over rendered text.
func extractPostedAt(row *goquery.Selection, now time.Time) *time.Time {
	for _, sel := range dateSelectors {
		el := row.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		candidates := []string{}
		if v, ok := el.Attr("datetime"); ok {
			candidates = append(candidates, v)
		}
		if v, ok := el.Attr("title"); ok {
			candidates = append(candidates, v)
		}
		candidates = append(candidates, el.Text())

		for _, c := range candidates {
			if ts, ok := dates.Parse(c, now); ok {
				return &ts
			}
		}
	}
	return nil
}

// extractHood returns the row's neighborhood with parentheses and surrounding
// whitespace trimmed.
func extractHood(row *goquery.Selection) string {
	for _, sel := range hoodSelectors {
		el := row.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if hood := TrimHood(el.Text()); hood != "" {
			return hood
		}
	}
	return ""
}

// TrimHood strips the "(neighborhood)" wrapping used on result rows.
func TrimHood(text string) string {
	hood := strings.TrimSpace(text)
	hood = strings.TrimPrefix(hood, "(")
	hood = strings.TrimSuffix(hood, ")")
	return strings.TrimSpace(hood)
}

// extractListingID pulls the numeric suffix out of a posting URL path.
func extractListingID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	m := listingIDRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[1]
}

// resolveURL makes href absolute against the results page URL.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
