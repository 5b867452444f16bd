// Package core provides the credential comparison pipeline.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"log/slog"
	"sort"
	"time"
)

// Field is a semantic credential field recognised in an export.
type Field string

const (
	FieldTitle    Field = "title"
	FieldURL      Field = "url"
	FieldUsername Field = "username"
	FieldPassword Field = "password"
	FieldNotes    Field = "notes"
	FieldOTPAuth  Field = "otpAuth"
)

// ExportFields is the column order of the export format.
var ExportFields = []Field{FieldTitle, FieldURL, FieldUsername, FieldPassword, FieldNotes, FieldOTPAuth}

// Record is one credential entry parsed from an export.
//
// Records are values: the normaliser builds them and everything downstream
// only reads them. The registrable domain is derived from URL once, at
// construction, and is not settable from outside the package.
type Record struct {
	Title    string
	URL      string
	Username string
	Password string
	Notes    string
	OTPAuth  string

	domain string
}

// NewRecord builds a Record from raw field values, applying URL and
// username normalisation and deriving the domain.
func NewRecord(title, rawURL, username, password, notes, otpAuth string) Record {
	u := NormaliseURL(rawURL)
	return Record{
		Title:    title,
		URL:      u,
		Username: NormaliseUsername(username),
		Password: password,
		Notes:    notes,
		OTPAuth:  otpAuth,
		domain:   ExtractDomain(u),
	}
}

// Domain returns the registrable domain derived from URL.
func (r Record) Domain() string {
	return r.domain
}

// LogValue implements slog.LogValuer. The password is never emitted.
func (r Record) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("title", r.Title),
		slog.String("url", r.URL),
		slog.String("domain", r.domain),
		slog.String("username", r.Username),
		slog.Bool("has_password", r.Password != ""),
	)
}

// HeaderMapping maps a CSV column index to the semantic field it carries.
// Each field appears at most once.
type HeaderMapping map[int]Field

// ColumnFor returns the column index mapped to f.
func (m HeaderMapping) ColumnFor(f Field) (int, bool) {
	for col, field := range m {
		if field == f {
			return col, true
		}
	}
	return 0, false
}

// Columns returns the mapped column indices in ascending order.
func (m HeaderMapping) Columns() []int {
	cols := make([]int, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}

// Fields returns the mapped fields in column order.
func (m HeaderMapping) Fields() []Field {
	cols := m.Columns()
	fields := make([]Field, len(cols))
	for i, col := range cols {
		fields[i] = m[col]
	}
	return fields
}

// Unmapped returns the headers whose column carries no field.
func (m HeaderMapping) Unmapped(headers []string) []string {
	var out []string
	for i, h := range headers {
		if _, ok := m[i]; !ok {
			out = append(out, h)
		}
	}
	return out
}

// Source is the result of running one export through the pipeline.
type Source struct {
	Headers []string
	Mapping HeaderMapping
	Records []Record
}

// Summary holds the counts shown next to a comparison.
type Summary struct {
	SourceA int  `json:"source_a"`
	SourceB int  `json:"source_b"`
	Missing int  `json:"missing"`
	Strict  bool `json:"strict"`
}

// Slot names one of the two sources being compared.
type Slot string

const (
	SlotA Slot = "a"
	SlotB Slot = "b"
)

// ParseSlot validates a slot name from user input.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotA, SlotB:
		return Slot(s), nil
	default:
		return "", ErrInvalidSlot
	}
}

// SlotSummary describes the export currently loaded into a slot.
type SlotSummary struct {
	Slot     Slot            `json:"slot"`
	FileName string          `json:"file_name"`
	Records  int             `json:"records"`
	Columns  []ColumnMapping `json:"columns"`
	Unmapped []string        `json:"unmapped"`
	LoadedAt time.Time       `json:"loaded_at"`
}

// ColumnMapping describes one recognised header.
type ColumnMapping struct {
	Index  int    `json:"index"`
	Header string `json:"header"`
	Field  Field  `json:"field"`
}

// ComparisonRun is the metadata of one comparison, kept by the history store.
// It never carries record contents.
type ComparisonRun struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Strict    bool      `json:"strict"`
	SourceA   int       `json:"source_a"`
	SourceB   int       `json:"source_b"`
	Missing   int       `json:"missing"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
