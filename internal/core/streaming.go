package core

// streaming.go provides readers that clean up exports before tokenizing.
//
// Password managers on Windows often prepend a UTF-8 byte order mark, and
// exports edited in spreadsheet tools sometimes contain stray Latin-1 bytes.
// These readers fix both without requiring the caller to buffer first:
//
//   - BOMSkippingReader: removes a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - UTF8Sanitizer: replaces invalid UTF-8 sequences with U+FFFD
//   - CountingReader: tracks bytes read for logging
//
// Use WrapForStreaming to apply all three in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var replacementChar = []byte("\uFFFD")

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call drops the BOM if one is there.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := r.br.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// UTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 sequences with
// the Unicode replacement character. Multi-byte sequences split across reads
// are held back until the rest arrives.
type UTF8Sanitizer struct {
	reader  io.Reader
	buf     []byte
	pending []byte
	out     []byte
	err     error
}

// NewUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader: r,
		buf:    make([]byte, 32*1024),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		n, err := s.reader.Read(s.buf)
		data := append(s.pending, s.buf[:n]...)
		s.pending = nil

		if err == nil {
			cut := len(data) - incompleteTrailingBytes(data)
			s.pending = append([]byte(nil), data[cut:]...)
			data = data[:cut]
		}

		if isAllASCII(data) || utf8.Valid(data) {
			s.out = data
		} else {
			s.out = bytes.ToValidUTF8(data, replacementChar)
		}
		s.err = err
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// isAllASCII returns true if all bytes are ASCII (< 128).
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		// Anything other than a continuation byte ends the search.
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// WrapForStreaming wraps a reader with BOM skipping, UTF-8 sanitization and
// byte counting.
//
// The BOM must go first; the sanitizer would otherwise see it as text. The
// counter sits outside so it reports what the tokenizer receives.
func WrapForStreaming(r io.Reader) *CountingReader {
	return NewCountingReader(NewUTF8Sanitizer(NewBOMSkippingReader(r)))
}
