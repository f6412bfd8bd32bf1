package payment

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ASCII strips diacritics, drops anything left outside printable ASCII
// and cuts the result to max runes.
func ASCII(s string, max int) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	var b strings.Builder
	for _, r := range out {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}

	res := strings.TrimSpace(b.String())
	if max > 0 && len(res) > max {
		res = strings.TrimSpace(res[:max])
	}
	return res
}
