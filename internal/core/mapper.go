package core

// mapper.go infers which CSV column carries which credential field.
//
// Matching is deliberately fuzzy: a header is assigned to a field when its
// normalised form contains any of that field's synonyms. Exports from
// different password managers (and in different languages) label columns
// differently, and exact matching would reject most of them.
//
// Priority is fixed. For every header, fields are tried in fieldSynonyms
// order and, within a field, synonyms in listed order. The first field that
// matches and is still unclaimed wins the column.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fieldSynonyms lists the recognised header tokens per field, English first,
// then French. Tokens are written pre-normalised (lower-case, [a-z0-9] only).
var fieldSynonyms = []struct {
	field    Field
	synonyms []string
}{
	{FieldTitle, []string{"title", "name", "item", "account", "titre", "nom", "intitule", "compte", "libelle"}},
	{FieldURL, []string{"url", "uri", "website", "site", "address", "webaddress", "adresse", "lien"}},
	{FieldUsername, []string{"username", "login", "email", "user", "identifiant", "utilisateur", "courriel", "connexion"}},
	{FieldPassword, []string{"password", "passcode", "motdepasse", "mdp"}},
	{FieldNotes, []string{"notes", "note", "remarks", "comment", "commentaire", "remarque"}},
	{FieldOTPAuth, []string{"otp", "totp", "twofactor", "doublefacteur"}},
}

// DetectMapping assigns header columns to credential fields.
// Columns that match no unclaimed field are left out of the mapping.
func DetectMapping(headers []string) HeaderMapping {
	mapping := make(HeaderMapping)
	used := make(map[Field]bool, len(fieldSynonyms))

	for col, h := range headers {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}

	fields:
		for _, fs := range fieldSynonyms {
			if used[fs.field] {
				continue
			}
			for _, syn := range fs.synonyms {
				if strings.Contains(key, syn) {
					mapping[col] = fs.field
					used[fs.field] = true
					break fields
				}
			}
		}
	}

	return mapping
}

// NormalizeHeader lower-cases a header, folds accents and drops every
// character outside [a-z0-9]. "Mot de passe" becomes "motdepasse" and
// "Adresse électronique" becomes "adresseelectronique".
func NormalizeHeader(h string) string {
	folded, _, err := transform.String(accentFolder(), strings.ToLower(h))
	if err != nil {
		folded = strings.ToLower(h)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// accentFolder returns a transformer that decomposes characters and removes
// combining marks. Transformers carry state, so each call gets its own.
func accentFolder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
}

// Synonyms returns the recognised header tokens for f.
func Synonyms(f Field) []string {
	for _, fs := range fieldSynonyms {
		if fs.field == f {
			out := make([]string, len(fs.synonyms))
			copy(out, fs.synonyms)
			return out
		}
	}
	return nil
}
