package utils

import (
	"reflect"
	"testing"
)

func TestIsBlockedEmailDomain(t *testing.T) {
	tests := []struct {
		email   string
		blocked bool
	}{
		{"a1b2c3d4@reply.craigslist.org", true},
		{"x@hous.craigslist.org", true},
		{"anything@some-new-section.craigslist.org", true},
		{"test@example.com", true},
		{"throwaway@mailinator.com", true},
		{"poster@gmail.com", false},
		{"hiring@company.io", false},
		{"not-an-email", true},
		{"trailing@", true},
	}

	for _, tt := range tests {
		if got := IsBlockedEmailDomain(tt.email); got != tt.blocked {
			t.Errorf("IsBlockedEmailDomain(%q) = %v, want %v", tt.email, got, tt.blocked)
		}
	}
}

func TestFindEmails(t *testing.T) {
	text := `Reach me at Poster@Gmail.com or poster@gmail.com.
	Do not use a1b2c3d4@reply.craigslist.org.
	Backup: second.contact@company.io`

	got := FindEmails(text)
	want := []string{"poster@gmail.com", "second.contact@company.io"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindEmails = %v, want %v", got, want)
	}

	if got := FindEmails("no addresses here"); got != nil {
		t.Errorf("FindEmails on plain text = %v, want nil", got)
	}
}
