package core

import "strings"

// Key identifies a credential for matching across exports.
// Left is the lower-cased URL in strict mode and the lower-cased domain
// otherwise. Being a struct, no field content can collide across the
// boundary between the two parts.
type Key struct {
	Left     string
	Username string
}

// MatchKey returns the key r is matched on.
func MatchKey(r Record, strict bool) Key {
	left := r.Domain()
	if strict {
		left = r.URL
	}
	return Key{
		Left:     strings.ToLower(left),
		Username: strings.ToLower(r.Username),
	}
}

// ComputeMissing returns the records of listA whose key does not occur in
// listB, in listA order. Duplicates in listA are evaluated independently and
// all kept.
func ComputeMissing(listA, listB []Record, strict bool) []Record {
	present := make(map[Key]struct{}, len(listB))
	for _, r := range listB {
		present[MatchKey(r, strict)] = struct{}{}
	}

	missing := make([]Record, 0)
	for _, r := range listA {
		if _, ok := present[MatchKey(r, strict)]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// Summarize returns the counts shown next to a comparison.
func Summarize(listA, listB, missing []Record, strict bool) Summary {
	return Summary{
		SourceA: len(listA),
		SourceB: len(listB),
		Missing: len(missing),
		Strict:  strict,
	}
}
