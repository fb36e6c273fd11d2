// Package names validates and cleans player display names and makes up names for new
// players.
package names

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/unidecode"
	"github.com/jason-s-yu/automatch/internal/apperr"
	"golang.org/x/text/unicode/norm"
)

// Filter applies the display name policy. A zero min or max disables that bound.
type Filter struct {
	min    int
	max    int
	clean  bool
	banned map[string]struct{}
}

// DefaultBannedWords is used when cleaning is on but no banned words were configured.
var DefaultBannedWords = []string{"admin", "administrator", "moderator", "mod", "official", "staff", "support", "system"}

func NewFilter(min, max int, clean bool, banned []string) *Filter {
	if clean && len(banned) == 0 {
		banned = DefaultBannedWords
	}
	f := &Filter{min: min, max: max, clean: clean, banned: make(map[string]struct{}, len(banned))}
	for _, w := range banned {
		if key := fold(w); key != "" {
			f.banned[key] = struct{}{}
		}
	}
	return f
}

// Normalize trims and NFKC-normalizes name, enforces the length bounds on the result and,
// when cleaning is on, masks banned words.
func (f *Filter) Normalize(name string) (string, error) {
	name = norm.NFKC.String(strings.TrimSpace(name))
	n := utf8.RuneCountInString(name)
	if f.min > 0 && n < f.min {
		return "", apperr.ErrNameTooShort
	}
	if f.max > 0 && n > f.max {
		return "", apperr.ErrNameTooLong
	}
	if f.clean {
		name = f.Mask(name)
	}
	return name, nil
}

// Mask replaces every banned word of s with asterisks. Words are compared after
// transliteration to ASCII and lowercasing, so "Ádmin" matches "admin".
func (f *Filter) Mask(s string) string {
	if len(f.banned) == 0 {
		return s
	}
	var (
		out  strings.Builder
		word []rune
	)
	flush := func() {
		if len(word) == 0 {
			return
		}
		if _, bad := f.banned[fold(string(word))]; bad {
			out.WriteString(strings.Repeat("*", len(word)))
		} else {
			out.WriteString(string(word))
		}
		word = word[:0]
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word = append(word, r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()
	return out.String()
}

// Truncate cuts name to the maximum length, counted in runes.
func (f *Filter) Truncate(name string) string {
	if f.max <= 0 || utf8.RuneCountInString(name) <= f.max {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:f.max]))
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}
