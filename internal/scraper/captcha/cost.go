package captcha

import (
	"sync/atomic"

	"gigleads/pkg/models"
)

// solveCosts are the per-solve unit prices in microdollars, by challenge
// kind. Failed attempts are never charged.
var solveCosts = map[models.CaptchaKind]int64{
	models.CaptchaRecaptchaV2: 2990, // $2.99 / 1000
	models.CaptchaHCaptcha:    2990,
	models.CaptchaImage:       1000, // $1.00 / 1000
	models.CaptchaUnknown:     1000,
}

// CostTracker accumulates captcha spend and attempt counts for one scraper
// run. It is shared by the concurrent email-extraction tasks, so all mutation
// is atomic.
type CostTracker struct {
	microdollars atomic.Int64
	attempts     atomic.Int64
	solved       atomic.Int64
}

// RecordAttempt counts one submission to the solving service, charged or not.
func (c *CostTracker) RecordAttempt() {
	c.attempts.Add(1)
}

// Add charges one successful solve of the given kind and returns the amount
// charged in dollars.
func (c *CostTracker) Add(kind models.CaptchaKind) float64 {
	cost := solveCosts[kind]
	c.microdollars.Add(cost)
	c.solved.Add(1)
	return float64(cost) / 1e6
}

// Total returns the accumulated spend in dollars.
func (c *CostTracker) Total() float64 {
	return float64(c.microdollars.Load()) / 1e6
}

// Attempts returns the number of submissions to the solving service.
func (c *CostTracker) Attempts() int64 {
	return c.attempts.Load()
}

// Solved returns the number of successful solves.
func (c *CostTracker) Solved() int64 {
	return c.solved.Load()
}

// Reset zeroes the accumulated spend and counters.
func (c *CostTracker) Reset() {
	c.microdollars.Store(0)
	c.attempts.Store(0)
	c.solved.Store(0)
}
