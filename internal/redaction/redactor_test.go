package redaction

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RedactorSuite struct {
	suite.Suite
	redactor *Redactor
}

func TestRedactorSuite(t *testing.T) {
	suite.Run(t, new(RedactorSuite))
}

func (s *RedactorSuite) SetupTest() {
	r, err := NewDefault()
	s.Require().NoError(err)
	s.redactor = r
}

func (s *RedactorSuite) TestMasksProfaneWord() {
	s.Equal("this is a **** test", s.redactor.Redact("this is a damn test"))
}

func (s *RedactorSuite) TestPreservesSeparatorsAndPunctuation() {
	s.Equal("well, ****! what the ****?", s.redactor.Redact("well, damn! what the shit?"))
	s.Equal("  ****\t\n", s.redactor.Redact("  damn\t\n"))
}

func (s *RedactorSuite) TestKeepsInvalidUTF8BytesVerbatim() {
	s.Equal("ok \xff ****", s.redactor.Redact("ok \xff damn"))
	s.Equal("\xc3\x28****\xfe", s.redactor.Redact("\xc3\x28damn\xfe"))
}

func (s *RedactorSuite) TestIsCaseInsensitive() {
	s.Equal("****", s.redactor.Redact("DaMn"))
	s.Equal("**** ****", s.redactor.Redact("SHIT Shit"))
}

func (s *RedactorSuite) TestUndoesLeetSubstitutions() {
	s.Equal("****", s.redactor.Redact("d@mn"))
	s.Equal("****", s.redactor.Redact("$h1t"))
	s.Equal("****", s.redactor.Redact("5h17"))
}

func (s *RedactorSuite) TestDoesNotMaskSubstrings() {
	s.Equal("scrapbook classic assess", s.redactor.Redact("scrapbook classic assess"))
	s.Equal("hello", s.redactor.Redact("hello"))
}

func (s *RedactorSuite) TestCleanTextUnchanged() {
	in := "The quick brown fox jumps over the lazy dog. Ünïcödé ✓"
	s.Equal(in, s.redactor.Redact(in))
}

func (s *RedactorSuite) TestEmptyInput() {
	s.Equal("", s.redactor.Redact(""))
}

func (s *RedactorSuite) TestIsIdempotent() {
	in := "damn this shit, d@mn it"
	once := s.redactor.Redact(in)
	s.Equal(once, s.redactor.Redact(in))
	s.Equal(once, s.redactor.Redact(once))
}

func (s *RedactorSuite) TestConcurrentUseIsDeterministic() {
	in := strings.Repeat("damn fine coffee, shit weather. ", 50)
	want := s.redactor.Redact(in)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.redactor.Redact(in)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		s.Equal(want, got)
	}
}

func TestPatternsAreMasked(t *testing.T) {
	p, err := ParsePolicy([]byte(`
mask_char: "#"
mask_length: 3
words: [secret]
patterns:
  - '[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}'
`))
	require.NoError(t, err)
	r, err := New(p)
	require.NoError(t, err)

	assert.Equal(t, "mail ### about the ###", r.Redact("mail bob@example.com about the SECRET"))
}

func TestParsePolicyValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"multi rune mask", `mask_char: "**"`, "mask_char"},
		{"negative length", `mask_length: -1`, "mask_length"},
		{"phrase word", `words: ["two words"]`, "single token"},
		{"bad regex", `patterns: ["(unclosed"]`, "pattern"},
		{"bad yaml", `words: [`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParsePolicyNormalizesWords(t *testing.T) {
	p, err := ParsePolicy([]byte(`words: ["  Damn ", "damn", "D@MN", ""]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"damn"}, p.Words)
	assert.Equal(t, "*", p.MaskChar)
	assert.Equal(t, 4, p.MaskLength)
}

func TestLoadPolicyFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("words: [gosh]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	r, err := New(p)
	require.NoError(t, err)
	assert.Equal(t, "oh ****", r.Redact("oh gosh"))

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicyEmptyPathUsesDefault(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Contains(t, p.Words, "damn")
}
