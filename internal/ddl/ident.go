package ddl

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxIdentLen is the identifier limit of Postgres, the strictest backend.
const MaxIdentLen = 63

// Ident normalizes a column header into a portable SQL identifier:
//
//  1. lowercase and trim
//  2. strip accents (NFD, remove Mn, NFC)
//  3. keep [a-z0-9_]; other runs become a single underscore
//  4. prefix "c_" when the result starts with a digit
//  5. fall back to "col" if empty
//
// "ns1:DataFatura" becomes "ns1_datafatura" and "Preço Unitário" becomes
// "preco_unitario".
func Ident(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	if len(name) > MaxIdentLen {
		name = name[:MaxIdentLen]
	}
	return name
}

// UniqueIdents applies Ident to each name and suffixes collisions with _2,
// _3 and so on, in order.
func UniqueIdents(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		id := Ident(n)
		base := id
		for k := 2; seen[id]; k++ {
			suffix := "_" + strconv.Itoa(k)
			if len(base)+len(suffix) > MaxIdentLen {
				base = base[:MaxIdentLen-len(suffix)]
			}
			id = base + suffix
		}
		seen[id] = true
		out[i] = id
	}
	return out
}

func splitFQN(fqn string) []string {
	var parts []string
	for _, p := range strings.Split(fqn, ".") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func joinFQN(parts []string) string { return strings.Join(parts, ".") }
