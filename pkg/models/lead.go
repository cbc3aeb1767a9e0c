package models

import "time"

// EmploymentType is a normalized employment tag extracted from a listing.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full-time"
	EmploymentPartTime   EmploymentType = "part-time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentTemporary  EmploymentType = "temporary"
	EmploymentInternship EmploymentType = "internship"
	EmploymentFreelance  EmploymentType = "freelance"
	EmploymentPerDiem    EmploymentType = "per-diem"
	EmploymentCommission EmploymentType = "commission"
)

// AttributeValue holds one posting attribute. Marketplace attribute groups mix
// "key: value" tokens with bare flags, so a value is either text or a boolean.
type AttributeValue struct {
	Text string `json:"text,omitempty"`
	Flag bool   `json:"flag,omitempty"`
}

// TextAttribute returns an AttributeValue carrying text.
func TextAttribute(text string) AttributeValue {
	return AttributeValue{Text: text}
}

// FlagAttribute returns an AttributeValue carrying a bare boolean flag.
func FlagAttribute() AttributeValue {
	return AttributeValue{Flag: true}
}

// IsFlag reports whether the attribute was a bare flag rather than a key:value pair.
func (a AttributeValue) IsFlag() bool {
	return a.Flag && a.Text == ""
}

// Location is an optional geographic annotation on a listing.
type Location struct {
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
}

// ListingSummary is one row extracted from a search results page.
type ListingSummary struct {
	ListingID    string     `json:"listing_id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Price        *float64   `json:"price,omitempty"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	Neighborhood string     `json:"neighborhood,omitempty"`
	ScrapedAt    time.Time  `json:"scraped_at"`
}

// ListingDetail extends a ListingSummary with everything extracted from the
// listing's detail page. The record is immutable once handed to a sink.
type ListingDetail struct {
	ListingSummary

	RawHTML         string                    `json:"-"`
	Description     string                    `json:"description,omitempty"`
	Compensation    string                    `json:"compensation,omitempty"`
	EmploymentTypes []EmploymentType          `json:"employment_types,omitempty"`
	IsRemote        bool                      `json:"is_remote"`
	IsInternship    bool                      `json:"is_internship"`
	IsNonprofit     bool                      `json:"is_nonprofit"`
	Attributes      map[string]AttributeValue `json:"attributes,omitempty"`
	Location        *Location                 `json:"location,omitempty"`
	ImageURLs       []string                  `json:"image_urls,omitempty"`
	Contact         *ContactInfo              `json:"contact,omitempty"`
}

// ContactInfo is the optional contact enrichment for a listing. Email may
// require driving the reply flow and solving a challenge.
type ContactInfo struct {
	ReplyEmail string `json:"reply_email,omitempty"`
	ReplyPhone string `json:"reply_phone,omitempty"`
	ReplyName  string `json:"reply_name,omitempty"`
}
