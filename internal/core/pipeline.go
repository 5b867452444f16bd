package core

import (
	"fmt"
	"io"
	"strings"
)

// ParseSource runs one export through the tokenizer, mapper and normaliser.
// Empty input, or input with only a header row, gives an empty list.
func ParseSource(text string) []Record {
	return ParseSourceDetailed(text).Records
}

// ParseSourceDetailed is ParseSource that also returns the header row and
// the detected mapping.
func ParseSourceDetailed(text string) Source {
	if text == "" {
		return Source{Mapping: HeaderMapping{}}
	}

	rows := Tokenize(text)
	if len(rows) == 0 {
		return Source{Mapping: HeaderMapping{}}
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	mapping := DetectMapping(headers)

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if rec, ok := NormalizeRow(row, mapping); ok {
			records = append(records, rec)
		}
	}

	return Source{
		Headers: headers,
		Mapping: mapping,
		Records: records,
	}
}

// ParseReader reads an export from r and runs it through the pipeline.
//
// The reader is wrapped to drop a UTF-8 byte order mark and replace invalid
// UTF-8. At most maxBytes are accepted; larger input fails with
// ErrFileTooLarge. A maxBytes of zero or less disables the cap.
func ParseReader(r io.Reader, maxBytes int64) (Source, error) {
	raw := NewCountingReader(r)

	var in io.Reader = raw
	if maxBytes > 0 {
		in = io.LimitReader(raw, maxBytes+1)
	}

	data, err := io.ReadAll(WrapForStreaming(in))
	if err != nil {
		return Source{}, fmt.Errorf("read export: %w", err)
	}
	if maxBytes > 0 && raw.BytesRead > maxBytes {
		return Source{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}

	return ParseSourceDetailed(string(data)), nil
}

// Describe summarises a parsed source for display.
func (s Source) Describe(slot Slot, fileName string) SlotSummary {
	cols := s.Mapping.Columns()
	mapped := make([]ColumnMapping, 0, len(cols))
	for _, col := range cols {
		header := ""
		if col < len(s.Headers) {
			header = s.Headers[col]
		}
		mapped = append(mapped, ColumnMapping{
			Index:  col,
			Header: header,
			Field:  s.Mapping[col],
		})
	}

	unmapped := s.Mapping.Unmapped(s.Headers)
	if unmapped == nil {
		unmapped = []string{}
	}

	return SlotSummary{
		Slot:     slot,
		FileName: fileName,
		Records:  len(s.Records),
		Columns:  mapped,
		Unmapped: unmapped,
	}
}
