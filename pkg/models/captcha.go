package models

// CaptchaKind identifies the challenge variant detected on a page.
type CaptchaKind string

const (
	CaptchaRecaptchaV2 CaptchaKind = "recaptcha_v2"
	CaptchaHCaptcha    CaptchaKind = "hcaptcha"
	CaptchaImage       CaptchaKind = "image"
	CaptchaUnknown     CaptchaKind = "unknown"
)

// CaptchaChallenge describes a challenge found on a page. It lives only for
// the duration of one solve attempt and is never persisted.
type CaptchaChallenge struct {
	Kind      CaptchaKind
	SiteKey   string // required for token-based kinds
	Selector  string // page-relative locator for re-finding the element
	Invisible bool   // invisible reCAPTCHA variant
}

// SolveResult is the outcome of one successful solve.
type SolveResult struct {
	Token string
	Kind  CaptchaKind
	Cost  float64 // dollars charged for this solve
}
