package moderation

import (
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Filter reports whether a text contains a listed word. It is built once and
// never mutated afterwards, so a single instance is shared by every
// connection.
type Filter struct {
	matcher *goahocorasick.Machine
}

// NewFilter builds the Aho-Corasick automaton for words. Matching is on whole
// words after case folding and leet-speak simplification, so "class" does not
// trip on "ass" while "A$$" does.
func NewFilter(words []string) (*Filter, error) {
	normalized := lo.Uniq(lo.FilterMap(words, func(word string, _ int) (string, bool) {
		n := normalizeText(word)
		return n, n != ""
	}))
	if len(normalized) == 0 {
		return &Filter{}, nil
	}
	sort.Strings(normalized)

	patterns := lo.Map(normalized, func(word string, _ int) []rune {
		return []rune(" " + word + " ")
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{matcher: m}, nil
}

// IsProfane reports whether text contains any listed word.
func (f *Filter) IsProfane(text string) bool {
	if f == nil || f.matcher == nil {
		return false
	}
	normalized := normalizeText(text)
	if normalized == "" {
		return false
	}
	hits := f.matcher.MultiPatternSearch([]rune(" "+normalized+" "), true)
	return len(hits) > 0
}

// normalizeText lower-cases, strips the punctuation around each word, maps
// leet characters inside words, and joins the words with single spaces.
func normalizeText(input string) string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_' || r == '/'
	})
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if w := normalizeWord(field); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// normalizeWord drops fields with no letter and no '$' or '@', so numbers
// such as "455" are never read as leet speak.
func normalizeWord(field string) string {
	field = strings.TrimFunc(field, isEdgeNoise)
	if !strings.ContainsFunc(field, unicode.IsLetter) && !strings.ContainsAny(field, "$@") {
		return ""
	}
	var b strings.Builder
	for _, r := range field {
		r = unicode.ToLower(simplifyRune(r))
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// simplifyRune maps common leet-speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}

// isEdgeNoise matches sentence punctuation around a word. '$' and '@' stand
// in for letters and are never trimmed.
func isEdgeNoise(r rune) bool {
	switch r {
	case '$', '@':
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
