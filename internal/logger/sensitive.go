// sensitive.go
package logger

import (
	"net/url"
	"regexp"
)

// credentialPattern matches user:password@ segments in URL-like strings that url.Parse rejects,
// such as shoutrrr service URLs with tokens in the user info part.
var credentialPattern = regexp.MustCompile(`(?i)([a-z][a-z0-9+.-]*://)[^/@\s]+@`)

// RedactURL removes user info and query strings from a URL before it is logged.
func RedactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return credentialPattern.ReplaceAllString(raw, "${1}redacted@")
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.String()
}

// RedactText removes URL credentials embedded anywhere in free text, such as
// error messages returned by notification services.
func RedactText(s string) string {
	return credentialPattern.ReplaceAllString(s, "${1}redacted@")
}
