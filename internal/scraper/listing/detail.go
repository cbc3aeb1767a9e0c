package listing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gigleads/pkg/models"
	"gigleads/pkg/utils"
)

// employmentKeywords maps substring matches to normalized employment tags.
// Matches are unioned across structured attributes and raw page text. Raw-text
// matching is kept for parity with the attribute matching even though it can
// false-positive (a body saying "not remote-friendly" still matches); this is
// a known precision limitation.
var employmentKeywords = []struct {
	keyword string
	tag     models.EmploymentType
}{
	{"full-time", models.EmploymentFullTime},
	{"full time", models.EmploymentFullTime},
	{"part-time", models.EmploymentPartTime},
	{"part time", models.EmploymentPartTime},
	{"contract", models.EmploymentContract},
	{"temporary", models.EmploymentTemporary},
	{"internship", models.EmploymentInternship},
	{"freelance", models.EmploymentFreelance},
	{"per diem", models.EmploymentPerDiem},
	{"per-diem", models.EmploymentPerDiem},
	{"commission", models.EmploymentCommission},
}

var remoteKeywords = []string{"remote", "telecommute", "work from home", "wfh"}
var internshipKeywords = []string{"internship", "intern position", "unpaid intern"}
var nonprofitKeywords = []string{"non-profit", "nonprofit", "501(c)", "501c3"}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var (
	compensationTextRe = regexp.MustCompile(`(?i)compensation:\s*([^\n<]+)`)
	latitudeRe         = regexp.MustCompile(`"latitude"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	longitudeRe        = regexp.MustCompile(`"longitude"\s*:\s*"?(-?\d+(?:\.\d+)?)`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// ExtractDetail upgrades a summary to a ListingDetail from the detail page
// HTML. Extraction is deterministic: the same HTML always yields the same
// detail. A failure on any single field leaves that field empty and never
// aborts the remaining fields.
func ExtractDetail(html string, summary *models.ListingSummary) *models.ListingDetail {
	detail := &models.ListingDetail{
		ListingSummary: *summary,
		RawHTML:        html,
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return detail
	}

	pageText := doc.Text()
	lowerText := strings.ToLower(pageText)

	detail.Description = extractDescription(doc)
	detail.Attributes = extractAttributes(doc)
	detail.Compensation = extractCompensation(doc, pageText)
	detail.EmploymentTypes = extractEmploymentTypes(detail.Attributes, lowerText)
	detail.IsRemote = containsAny(lowerText, remoteKeywords)
	detail.IsInternship = containsAny(lowerText, internshipKeywords)
	detail.IsNonprofit = containsAny(lowerText, nonprofitKeywords)
	detail.Location = extractLocation(doc, html)
	detail.ImageURLs = extractImages(doc)

	return detail
}

// extractDescription returns the first non-empty posting body, with the
// site's QR-code boilerplate stripped.
func extractDescription(doc *goquery.Document) string {
	for _, sel := range bodySelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := strings.ReplaceAll(el.Text(), postingBodyBoilerplate, "")
		text = strings.TrimSpace(text)
		if text != "" {
			return text
		}
	}
	return ""
}

// extractAttributes collects all attribute-group tokens. "key: value" tokens
// become text attributes; bare tokens become boolean flags. Keys are
// lower-cased with whitespace collapsed to underscores.
func extractAttributes(doc *goquery.Document) map[string]models.AttributeValue {
	attrs := make(map[string]models.AttributeValue)
	for _, sel := range attrGroupSelectors {
		doc.Find(sel).Each(func(_ int, group *goquery.Selection) {
			group.ChildrenFiltered("span").Each(func(_ int, span *goquery.Selection) {
				token := strings.TrimSpace(span.Text())
				if token == "" {
					return
				}
				if key, value, found := strings.Cut(token, ":"); found {
					attrs[normalizeAttrKey(key)] = models.TextAttribute(strings.TrimSpace(value))
				} else {
					attrs[normalizeAttrKey(token)] = models.FlagAttribute()
				}
			})
		})
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func normalizeAttrKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return whitespaceRe.ReplaceAllString(key, "_")
}

// extractCompensation returns the compensation string with its label prefix
// stripped, falling back to a raw-text scan when no selector matches.
func extractCompensation(doc *goquery.Document, pageText string) string {
	for _, sel := range compensationSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if comp := stripCompensationPrefix(el.Text()); comp != "" {
			return comp
		}
	}
	if m := compensationTextRe.FindStringSubmatch(pageText); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func stripCompensationPrefix(text string) string {
	text = strings.TrimSpace(text)
	if key, value, found := strings.Cut(text, ":"); found && strings.EqualFold(strings.TrimSpace(key), "compensation") {
		return strings.TrimSpace(value)
	}
	return text
}

// extractEmploymentTypes unions keyword matches from structured attributes
// and the full page text, deduplicated in keyword-table order.
func extractEmploymentTypes(attrs map[string]models.AttributeValue, lowerText string) []models.EmploymentType {
	attrText := ""
	for key, value := range attrs {
		attrText += key + " " + strings.ToLower(value.Text) + " "
	}

	var tags []models.EmploymentType
	seen := make(map[models.EmploymentType]bool)
	for _, kw := range employmentKeywords {
		if seen[kw.tag] {
			continue
		}
		if strings.Contains(attrText, kw.keyword) || strings.Contains(lowerText, kw.keyword) {
			seen[kw.tag] = true
			tags = append(tags, kw.tag)
		}
	}
	return tags
}

// extractLocation reads coordinates from the map widget's data attributes,
// falling back to JSON-like fields inside inline scripts.
func extractLocation(doc *goquery.Document, html string) *models.Location {
	loc := &models.Location{}

	for _, sel := range detailHoodSelectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if hood := TrimHood(el.Text()); hood != "" {
			loc.Neighborhood = hood
			break
		}
	}

	mapEl := doc.Find(mapSelector).First()
	if mapEl.Length() > 0 {
		if lat, ok := parseCoord(mapEl.AttrOr("data-latitude", "")); ok {
			loc.Latitude = lat
		}
		if lon, ok := parseCoord(mapEl.AttrOr("data-longitude", "")); ok {
			loc.Longitude = lon
		}
	}

	if loc.Latitude == nil || loc.Longitude == nil {
		if m := latitudeRe.FindStringSubmatch(html); m != nil {
			if lat, ok := parseCoord(m[1]); ok {
				loc.Latitude = lat
			}
		}
		if m := longitudeRe.FindStringSubmatch(html); m != nil {
			if lon, ok := parseCoord(m[1]); ok {
				loc.Longitude = lon
			}
		}
	}

	if loc.Latitude == nil && loc.Longitude == nil && loc.Neighborhood == "" {
		return nil
	}
	return loc
}

func parseCoord(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// extractImages unions gallery matches across all selectors, keeping only
// absolute URLs, deduplicated in document order.
func extractImages(doc *goquery.Document) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, sel := range gallerySelectors {
		doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			src := strings.TrimSpace(img.AttrOr("src", ""))
			if src == "" || seen[src] {
				return
			}
			if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
				return
			}
			seen[src] = true
			urls = append(urls, src)
		})
	}
	return urls
}

// ExtractContact performs the cheap contact scan over a detail page: rendered
// emails (filtered through the blocked-domain list) and phone numbers. The
// expensive reply-flow path lives in the email extractor.
func ExtractContact(html string) *models.ContactInfo {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	contact := &models.ContactInfo{}

	if emails := utils.FindEmails(doc.Text()); len(emails) > 0 {
		contact.ReplyEmail = emails[0]
	}

	doc.Find("a[href^='tel:']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if phone := strings.TrimPrefix(a.AttrOr("href", ""), "tel:"); phone != "" {
			contact.ReplyPhone = strings.TrimSpace(phone)
			return false
		}
		return true
	})
	if contact.ReplyPhone == "" {
		if m := phoneRe.FindString(doc.Text()); m != "" {
			contact.ReplyPhone = strings.TrimSpace(m)
		}
	}

	if contact.ReplyEmail == "" && contact.ReplyPhone == "" {
		return nil
	}
	return contact
}

var phoneRe = regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}`)
