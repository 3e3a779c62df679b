package helpers

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy

	whitespace = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")
)

// StrictHTMLPolicy returns a singleton bluemonday policy that strips every
// HTML element and attribute, leaving plain text.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// StripHTML removes every HTML tag from s and collapses runs of whitespace
// to single spaces. Provider article bodies often arrive with markup and
// truncation markers; the admission filter measures the cleaned text.
func StripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	clean := StrictHTMLPolicy().Sanitize(s)
	clean = whitespace.Replace(clean)
	return strings.Join(strings.Fields(clean), " ")
}
