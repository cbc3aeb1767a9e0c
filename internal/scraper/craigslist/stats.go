package craigslist

import "sync/atomic"

// RunStats are the per-run counters surfaced via logs at end of run.
// Failures are observable only here and in the logs; a normal run never
// surfaces an error for them.
type RunStats struct {
	PagesFetched      atomic.Int64
	RowsParsed        atomic.Int64
	RowsSkipped       atomic.Int64
	DetailsExtracted  atomic.Int64
	DetailFailures    atomic.Int64
	EmailsFound       atomic.Int64
	CategoriesSkipped atomic.Int64
}

// Snapshot returns the counters as a plain map for logging.
func (r *RunStats) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"pages_fetched":      r.PagesFetched.Load(),
		"rows_parsed":        r.RowsParsed.Load(),
		"rows_skipped":       r.RowsSkipped.Load(),
		"details_extracted":  r.DetailsExtracted.Load(),
		"detail_failures":    r.DetailFailures.Load(),
		"emails_found":       r.EmailsFound.Load(),
		"categories_skipped": r.CategoriesSkipped.Load(),
	}
}
