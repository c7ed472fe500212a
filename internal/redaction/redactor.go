// Package redaction implements the pure text transformation applied once to
// every unique submission. A Redactor is immutable after construction and
// safe for concurrent use; equal input always yields byte-identical output.
package redaction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// leet maps common character substitutions back to letters before lookup.
var leet = map[rune]rune{
	'@': 'a',
	'4': 'a',
	'$': 's',
	'5': 's',
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'7': 't',
}

// Redactor masks policy words and patterns.
type Redactor struct {
	words    map[string]struct{}
	patterns []*regexp.Regexp
	mask     string
}

// New compiles a policy into a Redactor.
func New(p *Policy) (*Redactor, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	r := &Redactor{
		words: make(map[string]struct{}, len(p.Words)),
		mask:  strings.Repeat(p.MaskChar, p.MaskLength),
	}
	for _, w := range p.Words {
		r.words[w] = struct{}{}
	}
	for _, expr := range p.Patterns {
		r.patterns = append(r.patterns, regexp.MustCompile(expr))
	}
	return r, nil
}

// NewDefault builds a Redactor from the built-in policy.
func NewDefault() (*Redactor, error) {
	p, err := DefaultPolicy()
	if err != nil {
		return nil, err
	}
	return New(p)
}

// Redact returns text with every pattern match and every policy word
// replaced by the mask. Separators are preserved byte for byte.
func (r *Redactor) Redact(text string) string {
	for _, re := range r.patterns {
		text = re.ReplaceAllLiteralString(text, r.mask)
	}
	if len(r.words) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	start := -1
	flush := func(end int) {
		token := text[start:end]
		if _, bad := r.words[normalizeToken(token)]; bad {
			b.WriteString(r.mask)
		} else {
			b.WriteString(token)
		}
		start = -1
	}
	for i := 0; i < len(text); {
		c, size := utf8.DecodeRuneInString(text[i:])
		if isWordRune(c) {
			if start < 0 {
				start = i
			}
			i += size
			continue
		}
		if start >= 0 {
			flush(i)
		}
		// Invalid UTF-8 decodes as a one-byte separator and is copied as is.
		b.WriteString(text[i : i+size])
		i += size
	}
	if start >= 0 {
		flush(len(text))
	}
	return b.String()
}

func isWordRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '@' || c == '$'
}

// normalizeToken case-folds a token and undoes leet substitutions. A Caser
// is stateful, so each call builds its own.
func normalizeToken(token string) string {
	folded := cases.Fold().String(token)
	return strings.Map(func(c rune) rune {
		if l, ok := leet[c]; ok {
			return l
		}
		return c
	}, folded)
}
