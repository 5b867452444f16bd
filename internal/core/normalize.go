package core

// normalize.go builds canonical Records from raw CSV rows.
//
// URLs get a scheme and lose their trailing slash, usernames that look like
// email addresses are lower-cased, and the registrable domain is derived so
// entries can be matched across exports that store different URLs for the
// same site. Passwords are carried through untouched.

import (
	"net/url"
	"strings"
	"unicode"
)

// secondLevelLabels are labels that, in second-to-last position, indicate a
// multi-part public suffix such as co.uk or com.au.
var secondLevelLabels = map[string]bool{
	"co":  true,
	"com": true,
	"gov": true,
	"ac":  true,
	"edu": true,
	"net": true,
	"org": true,
}

// NormalizeRow builds a Record from one data row.
// Returns false when every field present in the row is empty; short rows are
// not padded before that check.
func NormalizeRow(row []string, mapping HeaderMapping) (Record, bool) {
	if isEmptyRow(row) {
		return Record{}, false
	}

	var title, rawURL, username, password, notes, otpAuth string
	for col, field := range mapping {
		if col < 0 || col >= len(row) {
			continue
		}
		switch field {
		case FieldTitle:
			title = row[col]
		case FieldURL:
			rawURL = row[col]
		case FieldUsername:
			username = row[col]
		case FieldPassword:
			password = row[col]
		case FieldNotes:
			notes = row[col]
		case FieldOTPAuth:
			otpAuth = row[col]
		}
	}

	return NewRecord(title, rawURL, username, password, notes, otpAuth), true
}

// isEmptyRow reports whether every field in row is the empty string.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// NormaliseURL trims s, prefixes https:// when no http(s) scheme is present
// and strips the trailing slash. Empty input stays empty.
//
// Trailing slashes, and any whitespace they were hiding, are stripped until
// stable so that normalising twice gives the same result.
func NormaliseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	scheme := "https://"
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"):
		scheme, s = s[:len("http://")], s[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		scheme, s = s[:len("https://")], s[len("https://"):]
	}

	s = strings.TrimRightFunc(s, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})

	return scheme + s
}

// ExtractDomain returns the registrable domain of an absolute URL, or "" when
// the URL cannot be parsed or has no host.
//
// Hostnames with up to two labels are returned as-is. Longer hostnames keep
// three labels when the second-to-last is a known second-level label
// (www.example.co.uk gives example.co.uk) and two otherwise. Only the scheme
// and authority are parsed, so a malformed path, query or fragment does not
// hide the host.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(schemeAndAuthority(rawURL))
	if err != nil || !u.IsAbs() {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}

	n := len(labels)
	if secondLevelLabels[labels[n-2]] {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

// schemeAndAuthority cuts rawURL at the first '/', '?' or '#' after "://".
func schemeAndAuthority(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i < 0 {
		return rawURL
	}
	start := i + len("://")
	if end := strings.IndexAny(rawURL[start:], "/?#"); end >= 0 {
		return rawURL[:start+end]
	}
	return rawURL
}

// NormaliseUsername lower-cases usernames that contain '@'.
// Other usernames are returned unchanged.
func NormaliseUsername(s string) string {
	if strings.Contains(s, "@") {
		return strings.ToLower(s)
	}
	return s
}
