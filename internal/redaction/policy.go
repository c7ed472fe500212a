package redaction

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	pstrings "blurifier/pkg/platform/strings"
)

//go:embed default_policy.yaml
var defaultPolicyYAML []byte

const (
	defaultMaskChar   = "*"
	defaultMaskLength = 4
	maxMaskLength     = 64
)

// Policy is the declarative input of a Redactor.
type Policy struct {
	MaskChar   string   `yaml:"mask_char"`
	MaskLength int      `yaml:"mask_length"`
	Words      []string `yaml:"words"`
	Patterns   []string `yaml:"patterns"`
}

// DefaultPolicy returns the built-in profanity policy.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
}

// LoadPolicy reads a policy file. An empty path yields the default policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read redaction policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode redaction policy: %w", err)
	}
	if err := p.normalize(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) normalize() error {
	if p.MaskChar == "" {
		p.MaskChar = defaultMaskChar
	}
	if utf8.RuneCountInString(p.MaskChar) != 1 {
		return fmt.Errorf("redaction policy: mask_char must be a single character")
	}
	if p.MaskLength == 0 {
		p.MaskLength = defaultMaskLength
	}
	if p.MaskLength < 1 || p.MaskLength > maxMaskLength {
		return fmt.Errorf("redaction policy: mask_length must be between 1 and %d", maxMaskLength)
	}
	for _, w := range p.Words {
		if strings.IndexFunc(strings.TrimSpace(w), unicode.IsSpace) >= 0 {
			return fmt.Errorf("redaction policy: word %q must be a single token", w)
		}
	}
	p.Words = pstrings.DedupeAndNormalize(p.Words, normalizeToken)
	p.Patterns = pstrings.DedupeAndTrim(p.Patterns)
	for _, expr := range p.Patterns {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("redaction policy: pattern %q: %w", expr, err)
		}
	}
	return nil
}
