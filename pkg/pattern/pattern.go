// Package pattern generates random strings that match a regular expression.
package pattern

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"regexp/syntax"
	"strings"
	"unicode/utf8"

	"github.com/TFMV/masquerade/pkg/core"
)

// DefaultMaxRepeat caps unbounded repetition. `*`, `+` and `{n,}` repeat at
// most max(n, DefaultMaxRepeat) times.
const DefaultMaxRepeat = 10

// maxAttempts bounds regeneration when a sample fails verification, which
// only happens with assertions such as \b that sampling does not model.
const maxAttempts = 8

const (
	printableLo = 0x20
	printableHi = 0x7e
)

// Generator samples strings from patterns.
type Generator struct {
	rng       *rand.Rand
	maxRepeat int
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxRepeat overrides DefaultMaxRepeat.
func WithMaxRepeat(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxRepeat = n
		}
	}
}

// New creates a Generator drawing from rng.
func New(rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{rng: rng, maxRepeat: DefaultMaxRepeat}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a string accepted by pattern.
func (g *Generator) Generate(pattern string) (string, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidPattern, pattern, err)
	}
	verify, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidPattern, pattern, err)
	}

	var b strings.Builder
	for attempt := 0; attempt < maxAttempts; attempt++ {
		b.Reset()
		if err := g.emit(&b, re); err != nil {
			return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidPattern, pattern, err)
		}
		if verify.MatchString(b.String()) {
			return b.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q: no matching sample after %d attempts", core.ErrInvalidPattern, pattern, maxAttempts)
}

func (g *Generator) emit(b *strings.Builder, re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpNoMatch:
		return fmt.Errorf("pattern can never match")
	case syntax.OpEmptyMatch,
		syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return nil
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			b.WriteRune(r)
		}
		return nil
	case syntax.OpCharClass:
		r, err := g.pickRune(re.Rune)
		if err != nil {
			return err
		}
		b.WriteRune(r)
		return nil
	case syntax.OpAnyCharNotNL, syntax.OpAnyChar:
		b.WriteRune(rune(printableLo + g.rng.IntN(printableHi-printableLo+1)))
		return nil
	case syntax.OpCapture:
		return g.emit(b, re.Sub[0])
	case syntax.OpStar:
		return g.repeat(b, re.Sub[0], 0, -1)
	case syntax.OpPlus:
		return g.repeat(b, re.Sub[0], 1, -1)
	case syntax.OpQuest:
		return g.repeat(b, re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		return g.repeat(b, re.Sub[0], re.Min, re.Max)
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if err := g.emit(b, sub); err != nil {
				return err
			}
		}
		return nil
	case syntax.OpAlternate:
		return g.emit(b, re.Sub[g.rng.IntN(len(re.Sub))])
	default:
		return fmt.Errorf("unsupported operator %v", re.Op)
	}
}

// repeat emits sub between lo and hi times; hi < 0 means unbounded.
func (g *Generator) repeat(b *strings.Builder, sub *syntax.Regexp, lo, hi int) error {
	if hi < 0 {
		hi = max(lo, g.maxRepeat)
	}
	n := lo
	if hi > lo {
		n += g.rng.IntN(hi - lo + 1)
	}
	for i := 0; i < n; i++ {
		if err := g.emit(b, sub); err != nil {
			return err
		}
	}
	return nil
}

// pickRune samples a member of a class given as [lo, hi] range pairs.
// Printable ASCII members are preferred so samples stay readable.
func (g *Generator) pickRune(ranges []rune) (rune, error) {
	if r, ok := g.pickFrom(ranges, printableLo, printableHi); ok {
		return r, nil
	}
	if r, ok := g.pickFrom(ranges, 0, utf8.MaxRune); ok {
		return r, nil
	}
	return 0, fmt.Errorf("empty character class")
}

// pickFrom samples uniformly from the class members within [floor, ceil],
// skipping surrogates.
func (g *Generator) pickFrom(ranges []rune, floor, ceil rune) (rune, bool) {
	type span struct{ lo, hi rune }
	var spans []span
	total := 0
	for i := 0; i+1 < len(ranges); i += 2 {
		for _, s := range splitSurrogates(max(ranges[i], floor), min(ranges[i+1], ceil)) {
			if s[0] > s[1] {
				continue
			}
			spans = append(spans, span{s[0], s[1]})
			total += int(s[1]-s[0]) + 1
		}
	}
	if total == 0 {
		return 0, false
	}
	n := g.rng.IntN(total)
	for _, s := range spans {
		size := int(s.hi-s.lo) + 1
		if n < size {
			return s.lo + rune(n), true
		}
		n -= size
	}
	return 0, false
}

func splitSurrogates(lo, hi rune) [][2]rune {
	const surrLo, surrHi = 0xd800, 0xdfff
	if hi < surrLo || lo > surrHi {
		return [][2]rune{{lo, hi}}
	}
	return [][2]rune{{lo, surrLo - 1}, {surrHi + 1, hi}}
}
