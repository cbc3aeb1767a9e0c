// Package sink persists extracted lead records. The scraper treats a sink
// purely as a write-only collaborator; deduplication is keyed on the external
// listing ID.
package sink

import (
	"context"

	"gigleads/pkg/models"
)

// LeadSink accepts finished lead records. Implementations are responsible for
// persistence and dedup by listing ID; the scraper never reads back.
type LeadSink interface {
	SaveSummary(ctx context.Context, summary *models.ListingSummary) error
	SaveDetail(ctx context.Context, detail *models.ListingDetail) error
	Close() error
}
