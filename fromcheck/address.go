package fromcheck

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParsedFrom is a From: value split into its display name and address.
type ParsedFrom struct {
	DisplayName string
	Address     string
}

// SplitFrom splits a decoded From: value into display name and address.
//
// If the value ends with an angle-bracket group, the group's contents are the
// address and everything before it is the display name. Angle brackets
// inside a quoted display name are ignored; if the quotes are unbalanced the
// value is scanned again as if there were none. When no group is found the
// whole value is the address.
func SplitFrom(value string) ParsedFrom {
	value = strings.TrimSpace(value)

	lt, balanced := findAddrSpec(value, true)
	if lt < 0 && !balanced {
		lt, _ = findAddrSpec(value, false)
	}
	if lt < 0 {
		return ParsedFrom{Address: value}
	}

	return ParsedFrom{
		DisplayName: trimDisplayName(value[:lt]),
		Address:     strings.TrimSpace(value[lt+1 : len(value)-1]),
	}
}

// findAddrSpec returns the index of the '<' that opens the angle-bracket
// group ending value, or -1. It also reports whether the double quotes in
// value were balanced. value must already be trimmed.
func findAddrSpec(value string, quotes bool) (lt int, balanced bool) {
	lt = -1
	inQuote := false
	escaped := false
	last := -1 // index of '>' closing the current group

	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inQuote:
			escaped = true
		case c == '"' && quotes:
			inQuote = !inQuote
		case inQuote:
		case c == '<':
			lt = i
			last = -1
		case c == '>' && lt >= 0 && last < 0:
			last = i
		}
	}

	if inQuote {
		return -1, false
	}
	if lt < 0 || last != len(value)-1 {
		return -1, true
	}
	return lt, true
}

// trimDisplayName strips surrounding whitespace and double quotes.
func trimDisplayName(s string) string {
	return strings.Trim(s, " \t\"")
}

func isDomainRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '.' || r == '-' || r == '_'
}

// nextDomain finds the first @domain in text at or after offset start. It
// returns the domain (case preserved, trailing dots removed) and the offset
// just past it, or ok false if there is none.
func nextDomain(text string, start int) (domain string, end int, ok bool) {
	for start < len(text) {
		at := strings.IndexByte(text[start:], '@')
		if at < 0 {
			return "", len(text), false
		}
		begin := start + at + 1

		end = begin
		for end < len(text) {
			r, size := utf8.DecodeRuneInString(text[end:])
			if !isDomainRune(r) {
				break
			}
			end += size
		}

		domain = strings.TrimRight(text[begin:end], ".")
		if domain != "" {
			return domain, end, true
		}
		start = begin
	}
	return "", len(text), false
}

// ExtractDomain returns the first domain following an '@' in text. The
// domain is a run of letters, numbers, '.', '-' and '_' without trailing
// dots, in its original case.
func ExtractDomain(text string) (string, bool) {
	domain, _, ok := nextDomain(text, 0)
	return domain, ok
}

// DomainSet is the set of distinct lower-cased domains found in a text
// fragment, together with how many @domain occurrences produced them.
type DomainSet struct {
	// Domains holds each distinct domain once, in order of first appearance.
	Domains []string

	// Occurrences is the number of @domain matches, duplicates included.
	Occurrences int
}

// Len returns the number of distinct domains.
func (s DomainSet) Len() int {
	return len(s.Domains)
}

// Contains reports whether domain is in the set, ignoring case.
func (s DomainSet) Contains(domain string) bool {
	domain = strings.ToLower(domain)
	for _, d := range s.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// ExtractAllDomains collects every @domain occurrence in text.
func ExtractAllDomains(text string) DomainSet {
	var set DomainSet
	for pos := 0; ; {
		domain, end, ok := nextDomain(text, pos)
		if !ok {
			return set
		}
		pos = end
		set.Occurrences++
		if d := strings.ToLower(domain); !set.Contains(d) {
			set.Domains = append(set.Domains, d)
		}
	}
}
