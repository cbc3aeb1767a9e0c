package utils

import (
	"regexp"
	"strings"
)

// Marketplace relay and placeholder domains that must never be reported as a
// poster's contact email. The relay addresses rotate per listing and bounce
// once the posting expires.
var blockedEmailDomains = map[string]bool{
	"craigslist.org":       true,
	"reply.craigslist.org": true,
	"sale.craigslist.org":  true,
	"hous.craigslist.org":  true,
	"job.craigslist.org":   true,
	"serv.craigslist.org":  true,
	"comm.craigslist.org":  true,
	"example.com":          true,
	"example.org":          true,
	"email.com":            true,
	"domain.com":           true,
	"test.com":             true,
	"yoursite.com":         true,
	"sentry.io":            true,
	"mailinator.com":       true,
	"guerrillamail.com":    true,
}

// IsBlockedEmailDomain reports whether an email address belongs to a
// marketplace system domain or a disposable/placeholder domain.
func IsBlockedEmailDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return true
	}
	domain := strings.ToLower(email[at+1:])
	if blockedEmailDomains[domain] {
		return true
	}
	// Relay subdomains vary by site section; block the whole tree.
	return strings.HasSuffix(domain, ".craigslist.org")
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// FindEmails returns the deduplicated, order-preserving list of email
// addresses found in text, with blocked domains filtered out.
func FindEmails(text string) []string {
	var emails []string
	seen := make(map[string]bool)
	for _, match := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(match)
		if seen[email] || IsBlockedEmailDomain(email) {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}
