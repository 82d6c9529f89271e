package sources

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// queryFold decomposes accented characters and strips the combining marks,
// so "São Paulo" and "Sao Paulo" normalize to the same key.
var queryFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeQuery canonicalizes a free-text query for use as a cache key:
// accent-folded, lowercased, whitespace collapsed. It never fails; an
// untransformable string falls back to the lowercased original.
func NormalizeQuery(query string) string {
	folded, _, err := transform.String(queryFold, query)
	if err != nil {
		folded = query
	}
	folded = strings.ToLower(folded)
	return strings.Join(strings.Fields(folded), " ")
}
