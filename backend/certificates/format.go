package certificates

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// DisplayName capitalizes the first letter of every whitespace-separated
// token, lowercases the rest and joins the tokens with single spaces.
func DisplayName(name string) string {
	tokens := strings.Fields(name)
	for i, tok := range tokens {
		_, size := utf8.DecodeRuneInString(tok)
		tokens[i] = upper.String(tok[:size]) + lower.String(tok[size:])
	}
	return strings.Join(tokens, " ")
}

// NewCertificateID returns "T-" followed by seven zero-padded digits.
func NewCertificateID(r *rand.Rand) string {
	return fmt.Sprintf("T-%07d", r.IntN(10_000_000))
}

func VerifyURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/verify/" + slug
}

// ISOTimestamp formats t in UTC with millisecond precision, e.g. 2025-03-01T09:30:00.000Z.
func ISOTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
