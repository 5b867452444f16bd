package core

import (
	"strings"
	"time"
)

// ExportHeader is the header line of the generated export.
var ExportHeader = exportHeader()

func exportHeader() string {
	names := make([]string, len(ExportFields))
	for i, f := range ExportFields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

// ExportContentType is the MIME type of the generated export.
const ExportContentType = "text/csv"

// GenerateCSV renders entries in the Apple Passwords import format.
//
// Lines are joined with \r\n and the last line has no terminator. otpAuth is
// always written empty.
func GenerateCSV(entries []Record) string {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, ExportHeader)

	for _, e := range entries {
		lines = append(lines, strings.Join([]string{
			escapeField(e.Title),
			escapeField(e.URL),
			escapeField(e.Username),
			escapeField(e.Password),
			escapeField(e.Notes),
			"",
		}, ","))
	}

	return strings.Join(lines, "\r\n")
}

// escapeField quotes s only when it holds a comma, quote or line break.
func escapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ExportFilename returns the download name for an export generated at now.
func ExportFilename(now time.Time) string {
	return "missing-passwords-" + now.Format("2006-01-02") + ".csv"
}
