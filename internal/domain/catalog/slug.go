package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugSplitter = regexp.MustCompile(`[^a-z0-9]+`)

	// ł does not decompose under NFD
	polishReplacer = strings.NewReplacer("ł", "l", "Ł", "L")
)

// Slugify turns a display name into a URL slug: "Śmigła 5\" Gemfan" -> "smigla-5-gemfan".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, polishReplacer.Replace(s))
	if err != nil {
		ascii = s
	}
	ascii = strings.ToLower(ascii)
	ascii = slugSplitter.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-")
}

// IsValidSlug reports whether s is a normalized slug
func IsValidSlug(s string) bool {
	return len(s) <= 220 && slugPattern.MatchString(s)
}
