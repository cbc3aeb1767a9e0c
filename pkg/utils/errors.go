package utils

import "fmt"

// ScrapeError is the typed error carried across the scraping pipeline. Kind
// distinguishes the hard browser-launch failure from per-scope soft failures.
type ScrapeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *ScrapeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

const (
	ErrKindBrowserLaunch     = "browser_launch"
	ErrKindNavigationTimeout = "navigation_timeout"
	ErrKindNavigation        = "navigation"
	ErrKindSolveFailed       = "solve_failed"
)

// NewBrowserLaunchError reports that the browser engine could not start.
// This is the only error treated as fatal for a whole run.
func NewBrowserLaunchError(detail string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrKindBrowserLaunch,
		Message: "browser failed to launch",
		Detail:  detail,
	}
}

func NewNavigationTimeoutError(url string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrKindNavigationTimeout,
		Message: "navigation timed out",
		Detail:  url,
	}
}

func NewNavigationError(url, detail string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrKindNavigation,
		Message: "navigation failed",
		Detail:  fmt.Sprintf("%s: %s", url, detail),
	}
}

func NewSolveFailedError(detail string) *ScrapeError {
	return &ScrapeError{
		Kind:    ErrKindSolveFailed,
		Message: "captcha solve unsuccessful",
		Detail:  detail,
	}
}
