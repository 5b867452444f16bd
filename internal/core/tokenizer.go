package core

import "strings"

// Tokenize splits CSV text into rows of fields.
//
// A double quote toggles quoting; inside quotes a doubled quote is a literal
// quote. Commas and line terminators (\n, \r, \r\n) separate fields and rows
// only outside quotes. Rows may have differing lengths. A trailing line
// terminator does not produce an extra empty row.
func Tokenize(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case c == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes

		case c == ',' && !inQuotes:
			endField()

		case c == '\r' && !inQuotes:
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRow()

		case c == '\n' && !inQuotes:
			endRow()

		default:
			field.WriteByte(c)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}
