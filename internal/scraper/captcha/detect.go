package captcha

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gigleads/pkg/models"
)

// imageCaptchaSelectors locate image challenges, tried in order.
var imageCaptchaSelectors = []string{
	"img#captcha",
	"img.captcha",
	"img[src*='captcha']",
	"img[alt*='captcha']",
	"img[class*='captcha']",
}

// genericCaptchaSelectors are the last-resort sweep for anything whose
// id/class/name mentions captcha.
var genericCaptchaSelectors = []string{
	"[id*='captcha']",
	"[class*='captcha']",
	"[name*='captcha']",
}

// Detect scans page HTML for a challenge in fixed priority order: token-based
// reCAPTCHA v2, hCaptcha, image captcha, then a generic sweep tagged unknown.
// First match wins; nil means no challenge is present.
func Detect(html string) *models.CaptchaChallenge {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	if ch := detectRecaptcha(doc); ch != nil {
		return ch
	}
	if ch := detectHCaptcha(doc); ch != nil {
		return ch
	}
	if ch := detectImageCaptcha(doc); ch != nil {
		return ch
	}
	return detectGeneric(doc)
}

func detectRecaptcha(doc *goquery.Document) *models.CaptchaChallenge {
	el := doc.Find(".g-recaptcha[data-sitekey]").First()
	if el.Length() == 0 {
		el = doc.Find("div[data-sitekey][class*='recaptcha']").First()
	}
	if el.Length() == 0 {
		return nil
	}
	siteKey := strings.TrimSpace(el.AttrOr("data-sitekey", ""))
	if siteKey == "" {
		return nil
	}
	return &models.CaptchaChallenge{
		Kind:      models.CaptchaRecaptchaV2,
		SiteKey:   siteKey,
		Selector:  ".g-recaptcha",
		Invisible: el.AttrOr("data-size", "") == "invisible",
	}
}

func detectHCaptcha(doc *goquery.Document) *models.CaptchaChallenge {
	el := doc.Find(".h-captcha[data-sitekey]").First()
	if el.Length() == 0 {
		return nil
	}
	siteKey := strings.TrimSpace(el.AttrOr("data-sitekey", ""))
	if siteKey == "" {
		return nil
	}
	return &models.CaptchaChallenge{
		Kind:     models.CaptchaHCaptcha,
		SiteKey:  siteKey,
		Selector: ".h-captcha",
	}
}

func detectImageCaptcha(doc *goquery.Document) *models.CaptchaChallenge {
	for _, sel := range imageCaptchaSelectors {
		if doc.Find(sel).Length() > 0 {
			return &models.CaptchaChallenge{
				Kind:     models.CaptchaImage,
				Selector: sel,
			}
		}
	}
	return nil
}

func detectGeneric(doc *goquery.Document) *models.CaptchaChallenge {
	for _, sel := range genericCaptchaSelectors {
		if doc.Find(sel).Length() > 0 {
			return &models.CaptchaChallenge{
				Kind:     models.CaptchaUnknown,
				Selector: sel,
			}
		}
	}
	return nil
}
