package utils

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a unique run ID for log correlation.
func GenerateRunID() string {
	return uuid.New().String()
}

// Contains checks if a string slice contains a specific string.
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// SleepWithJitter sleeps for a random duration in [min, max], returning early
// with ctx.Err() if the context is cancelled. Fixed delays between requests
// are a detectable pattern, so every inter-request pause goes through here.
func SleepWithJitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
