package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gigleads/pkg/models"
)

// JSONLSink appends one JSON object per lead to a local file. It is the
// default sink when no database is configured, so a run always lands its
// partial results somewhere inspectable.
type JSONLSink struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONLSink opens (or creates) the output file in append mode.
func NewJSONLSink(path string) (*JSONLSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", path, err)
	}
	return &JSONLSink{file: file, enc: json.NewEncoder(file)}, nil
}

func (s *JSONLSink) SaveSummary(ctx context.Context, summary *models.ListingSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(summary)
}

func (s *JSONLSink) SaveDetail(ctx context.Context, detail *models.ListingDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(detail)
}

func (s *JSONLSink) Close() error {
	return s.file.Close()
}
