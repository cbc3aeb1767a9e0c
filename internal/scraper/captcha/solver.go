package captcha

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	api2captcha "github.com/2captcha/2captcha-go"
	"github.com/sirupsen/logrus"

	"gigleads/internal/config"
	"gigleads/pkg/models"
	"gigleads/pkg/utils"
)

// State tracks a challenge through one solve-and-inject cycle.
type State int

const (
	StateNoChallenge State = iota
	StateDetected
	StateSubmitted
	StateSolved
	StateInjected
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNoChallenge:
		return "no_challenge"
	case StateDetected:
		return "detected"
	case StateSubmitted:
		return "submitted"
	case StateSolved:
		return "solved"
	case StateInjected:
		return "injected"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChallengePage is the page surface the solver needs. browser.Session
// satisfies it; tests use fakes.
type ChallengePage interface {
	HTML() (string, error)
	Eval(js string) error
	Fill(selector, value string) error
	ElementScreenshot(selector string) ([]byte, error)
}

// solveClient is the 2captcha surface used by the solver, kept narrow so the
// retry policy is testable with a stub.
type solveClient interface {
	Solve(req api2captcha.Request) (string, string, error)
	GetBalance() (float64, error)
}

// Solver drives the detect → submit → solve → inject → verify cycle against
// the external solving service.
type Solver struct {
	config *config.Config
	client solveClient
	costs  *CostTracker
	logger *logrus.Logger
}

// NewSolver creates a solver backed by the 2captcha service.
func NewSolver(cfg *config.Config, logger *logrus.Logger) *Solver {
	if cfg.Scraper.Captcha.APIKey == "" {
		logger.Warn("Captcha API key not configured - captcha solving will be disabled")
	}

	client := api2captcha.NewClient(cfg.Scraper.Captcha.APIKey)
	client.DefaultTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.RecaptchaTimeout = int(cfg.Scraper.Captcha.Timeout.Seconds())
	client.PollingInterval = 5 // check every 5 seconds

	return &Solver{
		config: cfg,
		client: client,
		costs:  &CostTracker{},
		logger: logger,
	}
}

// Costs returns the run's captcha spend tracker.
func (s *Solver) Costs() *CostTracker {
	return s.costs
}

// IsHealthy checks that the solving service accepts the configured API key.
func (s *Solver) IsHealthy() bool {
	if s.config.Scraper.Captcha.APIKey == "" {
		return false
	}
	balance, err := s.client.GetBalance()
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("Captcha service health check failed")
		return false
	}
	s.logger.WithField("balance", balance).Debug("Captcha service health check successful")
	return balance >= 0
}

// SolveWithRetry detects and solves the page's challenge, retrying up to the
// configured attempt count with a fixed delay. Each attempt re-detects the
// challenge because the page may have re-rendered it. A nil result with a nil
// error means no challenge was present. Exhausted retries surface as a solve
// failure, never as silent success.
func (s *Solver) SolveWithRetry(ctx context.Context, page ChallengePage, pageURL string) (*models.SolveResult, error) {
	var lastErr error

	for attempt := 1; attempt <= s.config.Scraper.Captcha.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := page.HTML()
		if err != nil {
			lastErr = err
		} else {
			challenge := Detect(html)
			if challenge == nil {
				if attempt == 1 {
					return nil, nil
				}
				// The challenge disappeared between attempts; nothing left to solve.
				s.logger.WithField("page_url", pageURL).Debug("Challenge no longer present")
				return nil, nil
			}

			s.logger.WithFields(logrus.Fields{
				"kind":     challenge.Kind,
				"attempt":  attempt,
				"page_url": pageURL,
				"state":    StateDetected.String(),
			}).Info("Captcha challenge detected")

			s.costs.RecordAttempt()
			result, err := s.submit(ctx, challenge, page, pageURL)
			if err == nil {
				cost := s.costs.Add(challenge.Kind)
				result.Cost = cost
				s.logger.WithFields(logrus.Fields{
					"kind":    challenge.Kind,
					"attempt": attempt,
					"cost":    cost,
					"state":   StateSolved.String(),
				}).Info("Captcha solved")
				return result, nil
			}
			lastErr = err
			s.logger.WithFields(logrus.Fields{
				"kind":    challenge.Kind,
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Captcha solve attempt failed")
		}

		if attempt < s.config.Scraper.Captcha.MaxRetries {
			if err := utils.SleepWithJitter(ctx, s.config.Scraper.Captcha.RetryDelay, s.config.Scraper.Captcha.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	detail := "retries exhausted"
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return nil, utils.NewSolveFailedError(detail)
}

// submit dispatches one challenge to the solving service using the method
// appropriate to its kind. Blocks for up to the solver timeout.
func (s *Solver) submit(ctx context.Context, challenge *models.CaptchaChallenge, page ChallengePage, pageURL string) (*models.SolveResult, error) {
	if !s.config.Scraper.Captcha.EnableAutoSolve {
		return nil, fmt.Errorf("captcha auto-solve is disabled")
	}
	if s.config.Scraper.Captcha.APIKey == "" {
		return nil, fmt.Errorf("captcha API key not configured")
	}

	var req api2captcha.Request
	switch challenge.Kind {
	case models.CaptchaRecaptchaV2:
		c := api2captcha.ReCaptcha{
			SiteKey:   challenge.SiteKey,
			Url:       pageURL,
			Invisible: challenge.Invisible,
		}
		req = c.ToRequest()
	case models.CaptchaHCaptcha:
		c := api2captcha.HCaptcha{
			SiteKey: challenge.SiteKey,
			Url:     pageURL,
		}
		req = c.ToRequest()
	case models.CaptchaImage, models.CaptchaUnknown:
		img, err := page.ElementScreenshot(challenge.Selector)
		if err != nil {
			return nil, fmt.Errorf("failed to capture challenge image: %w", err)
		}
		c := api2captcha.Normal{
			Base64: base64.StdEncoding.EncodeToString(img),
		}
		req = c.ToRequest()
	default:
		return nil, fmt.Errorf("unsupported challenge kind: %s", challenge.Kind)
	}

	start := time.Now()
	code, _, err := s.client.Solve(req)
	if err != nil {
		return nil, fmt.Errorf("solving service error: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"kind":         challenge.Kind,
		"solving_time": time.Since(start),
		"state":        StateSubmitted.String(),
	}).Debug("Solving service returned a solution")

	return &models.SolveResult{Token: code, Kind: challenge.Kind}, nil
}

// Resolve runs the full cycle against a live page: solve, inject, submit the
// surrounding form, then verify the challenge is gone. A nil result with nil
// error means the page had no challenge.
func (s *Solver) Resolve(ctx context.Context, page ChallengePage, pageURL string) (*models.SolveResult, error) {
	result, err := s.SolveWithRetry(ctx, page, pageURL)
	if err != nil || result == nil {
		return result, err
	}

	if err := s.inject(page, result); err != nil {
		return nil, utils.NewSolveFailedError("injection failed: " + err.Error())
	}
	s.logger.WithField("state", StateInjected.String()).Debug("Captcha solution injected")

	// Give page-side validation a moment to run before re-checking.
	if err := utils.SleepWithJitter(ctx, 2*time.Second, 3*time.Second); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, err
	}
	if Detect(html) != nil {
		return nil, utils.NewSolveFailedError("challenge still present after injection")
	}

	s.logger.WithField("state", StateVerified.String()).Info("Captcha challenge resolved")
	return result, nil
}
