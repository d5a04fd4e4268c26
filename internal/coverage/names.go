package coverage

import (
	"fmt"
	"regexp"
	"strings"
)

// Segments merge into one logical street when their normalized name keys
// match: "Elm Grove" and "Elm Grove (B2154)" are one street, "Oak Avenue"
// is another. Unnamed ways fall back to a per-way key.

var (
	parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)
	punctuation   = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// abbreviations maps common street-type abbreviations to their expansions,
// applied per word after punctuation stripping.
var abbreviations = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"av":   "avenue",
	"rd":   "road",
	"dr":   "drive",
	"ln":   "lane",
	"ct":   "court",
	"cres": "crescent",
	"blvd": "boulevard",
	"pl":   "place",
	"sq":   "square",
	"ter":  "terrace",
	"gdns": "gardens",
	"hwy":  "highway",
	"pkwy": "parkway",
}

// NormalizeStreetKey reduces a raw way name to the grouping key for its
// logical street. Classification suffixes in parentheses, a leading
// definite article and punctuation are stripped, abbreviations expanded and
// the result case-folded. Empty names return an empty key; callers must use
// FallbackKey instead.
func NormalizeStreetKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = parenthetical.ReplaceAllString(key, "")
	key = punctuation.ReplaceAllString(key, "")
	key = whitespace.ReplaceAllString(strings.TrimSpace(key), " ")

	words := strings.Split(key, " ")
	if len(words) > 1 && words[0] == "the" {
		words = words[1:]
	}
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
		}
	}

	return strings.Join(words, " ")
}

// FallbackKey is the street key for a way without a usable name; the way
// becomes its own logical street.
func FallbackKey(wayID int64) string {
	return fmt.Sprintf("way:%d", wayID)
}

// StreetKeyFor resolves the street key for a named or unnamed way.
func StreetKeyFor(name string, wayID int64) string {
	if key := NormalizeStreetKey(name); key != "" {
		return key
	}
	return FallbackKey(wayID)
}
