package captcha

import (
	"fmt"

	"gigleads/pkg/models"
)

// captchaInputSelectors locate the answer field for image/unknown challenges.
var captchaInputSelectors = []string{
	"input#captcha",
	"input[name='captcha']",
	"input[name*='captcha']",
	"input[id*='captcha']",
	"input[type='text']",
}

// inject writes the solution into the page using the strategy for its kind
// and submits the surrounding form.
func (s *Solver) inject(page ChallengePage, result *models.SolveResult) error {
	switch result.Kind {
	case models.CaptchaRecaptchaV2:
		return page.Eval(recaptchaInjectJS(result.Token))
	case models.CaptchaHCaptcha:
		return page.Eval(hcaptchaInjectJS(result.Token))
	default:
		return s.fillAnswerField(page, result.Token)
	}
}

// recaptchaInjectJS writes the token into every g-recaptcha-response field,
// monkeypatches getResponse so page-side validation reads the injected token,
// fires the widget callback, and submits the enclosing form.
func recaptchaInjectJS(token string) string {
	return fmt.Sprintf(`() => {
		const token = '%s';

		let responseElements = document.querySelectorAll('[name="g-recaptcha-response"]');
		for (let element of responseElements) {
			element.value = token;
			element.innerHTML = token;
		}

		if (window.grecaptcha) {
			window.grecaptcha.getResponse = () => token;
		}

		let widget = document.querySelector('.g-recaptcha');
		if (widget) {
			let callback = widget.getAttribute('data-callback');
			if (callback && typeof window[callback] === 'function') {
				window[callback](token);
			}
		}

		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.g-recaptcha') || form.querySelector('[name="g-recaptcha-response"]')) {
				form.submit();
				break;
			}
		}
	}`, token)
}

// hcaptchaInjectJS writes the token into the hCaptcha response fields, fires
// the widget callback, and submits the enclosing form.
func hcaptchaInjectJS(token string) string {
	return fmt.Sprintf(`() => {
		const token = '%s';

		let responseElements = document.querySelectorAll('[name="h-captcha-response"], [name="g-recaptcha-response"]');
		for (let element of responseElements) {
			element.value = token;
		}

		let widget = document.querySelector('.h-captcha');
		if (widget) {
			let callback = widget.getAttribute('data-callback');
			if (callback && typeof window[callback] === 'function') {
				window[callback](token);
			}
		}

		let forms = document.querySelectorAll('form');
		for (let form of forms) {
			if (form.querySelector('.h-captcha')) {
				form.submit();
				break;
			}
		}
	}`, token)
}

// fillAnswerField fills the first matching answer input with the solution
// text and submits its form.
func (s *Solver) fillAnswerField(page ChallengePage, solution string) error {
	var lastErr error
	for _, sel := range captchaInputSelectors {
		if err := page.Fill(sel, solution); err != nil {
			lastErr = err
			continue
		}
		return page.Eval(submitAnswerFormJS(sel))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no captcha answer field found")
	}
	return lastErr
}

func submitAnswerFormJS(inputSelector string) string {
	return fmt.Sprintf(`() => {
		let input = document.querySelector("%s");
		if (input && input.form) {
			input.form.submit();
			return;
		}
		let buttons = document.querySelectorAll('input[type="submit"], button[type="submit"], button');
		for (let button of buttons) {
			let label = (button.textContent || button.value || '').toLowerCase();
			if (label.includes('submit') || label.includes('continue') || label.includes('verify')) {
				button.click();
				break;
			}
		}
	}`, inputSelector)
}
