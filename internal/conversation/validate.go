package conversation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unicode letter classes rather than ASCII so non-English names validate.
var (
	nameRe  = regexp.MustCompile(`^[\p{L}\p{M}]+(?:[ ][\p{L}\p{M}]+)*$`)
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]{2,}$`)
	otpRe   = regexp.MustCompile(`^[0-9]{4,8}$`)
)

// ValidName reports whether input is an acceptable display name: letters and
// combining marks separated by single spaces, at least two letters long.
func ValidName(input string) bool {
	trimmed := strings.TrimSpace(input)
	if !nameRe.MatchString(trimmed) {
		return false
	}

	letters := 0
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsMark(r) {
			letters++
		}
	}

	return letters >= 2
}

// ValidEmail applies the RFC-light local@domain.tld check.
func ValidEmail(input string) bool {
	return emailRe.MatchString(strings.TrimSpace(input))
}

// ValidOTP accepts the numeric one-time codes issued by the identity service.
func ValidOTP(input string) bool {
	return otpRe.MatchString(strings.TrimSpace(input))
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalEmail normalizes a validated email to its stored form: trimmed,
// lowercased, with diacritics transliterated away so lookups against the
// identity service are stable across input methods.
func CanonicalEmail(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))

	folded, _, err := transform.String(asciiFold, lowered)
	if err != nil {
		return lowered
	}

	return folded
}
