package core

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Pipeline Benchmarks
// ============================================================================

// BenchmarkTokenize measures the tokenizer on a mid-sized export.
func BenchmarkTokenize(b *testing.B) {
	data := string(generateTestCSV(1000))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Tokenize(data)
	}
}

// BenchmarkDetectMapping measures header mapping including accent folding.
func BenchmarkDetectMapping(b *testing.B) {
	headers := []string{"Intitulé", "Adresse du site", "Identifiant", "Mot de passe", "Commentaire", "Double facteur", "Dossier"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = DetectMapping(headers)
	}
}

func BenchmarkExtractDomain(b *testing.B) {
	urls := []string{
		"https://www.example.co.uk/login",
		"https://accounts.example.com",
		"https://localhost:8080",
		"not a url",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, u := range urls {
			_ = ExtractDomain(u)
		}
	}
}

// BenchmarkParseSource_Large measures the full text-to-records pipeline.
func BenchmarkParseSource_Large(b *testing.B) {
	data := string(generateTestCSV(10000))

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ParseSource(data)
	}
}

func BenchmarkParseReader(b *testing.B) {
	data := generateTestCSV(1000)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ParseReader(bytes.NewReader(data), 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkComputeMissing compares two 10k exports that share half their
// entries.
func BenchmarkComputeMissing(b *testing.B) {
	listA := ParseSource(string(generateTestCSV(10000)))
	listB := listA[len(listA)/2:]

	for _, strict := range []bool{false, true} {
		b.Run(fmt.Sprintf("strict=%v", strict), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = ComputeMissing(listA, listB, strict)
			}
		})
	}
}

func BenchmarkGenerateCSV(b *testing.B) {
	records := ParseSource(string(generateTestCSV(1000)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = GenerateCSV(records)
	}
}

// generateTestCSV builds an export with the given number of data rows.
func generateTestCSV(rows int) []byte {
	var sb strings.Builder
	sb.WriteString("Title,URL,Username,Password,Notes\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "Site %d,https://login.site%d.example.com/,User%d@Example.com,p@ss%d,\"note, %d\"\n", i, i, i, i, i)
	}
	return []byte(sb.String())
}
