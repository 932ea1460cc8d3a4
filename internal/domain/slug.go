package domain

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	slugAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
	slugPrefixLength = 3

	// GeneratedSlugMarker sits between the random prefix and the name of a
	// generated category slug.
	GeneratedSlugMarker = "-pickBetter"

	// MaxSlugLength is the width of the slug columns.
	MaxSlugLength = 250
)

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[-\s]+`)

	// SlugPattern matches the slugs accepted in URL paths.
	SlugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Slugify folds s to ASCII, drops everything except letters, digits,
// underscores, hyphens and spaces, lowercases it and collapses runs of
// spaces and hyphens into a single hyphen.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)

	ascii = slugInvalidChars.ReplaceAllString(strings.ToLower(ascii), "")
	ascii = strings.TrimSpace(ascii)
	ascii = slugSeparators.ReplaceAllString(ascii, "-")
	return strings.Trim(ascii, "-_")
}

// RandomSlugPrefix returns three random lowercase alphanumeric characters.
func RandomSlugPrefix() string {
	b := make([]byte, slugPrefixLength)
	for i := range b {
		b[i] = slugAlphabet[rand.IntN(len(slugAlphabet))]
	}
	return string(b)
}

// GenerateCategorySlug derives a best-effort unique slug from a category name.
// The result never exceeds MaxSlugLength.
func GenerateCategorySlug(name string) string {
	slug := Slugify(RandomSlugPrefix() + GeneratedSlugMarker + name)
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "-_")
	}
	return slug
}

// EnsureSlug fills in a generated slug when none was supplied. An explicit
// slug is kept exactly as given.
func (c *Category) EnsureSlug() {
	if c.Slug == "" {
		c.Slug = GenerateCategorySlug(c.Name)
	}
}
