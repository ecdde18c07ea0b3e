// Package words samples space-joined words from a dictionary.
package words

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/TFMV/masquerade/pkg/core"
	"github.com/TFMV/masquerade/pkg/corpus"
)

// Dictionary is an immutable list of words.
type Dictionary struct {
	words []string
}

// Load reads whitespace-separated words from r.
func Load(r io.Reader) (*Dictionary, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var words []string
	for sc.Scan() {
		words = append(words, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading dictionary: %v", core.ErrIOFailure, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: dictionary is empty", core.ErrIOFailure)
	}
	return &Dictionary{words: words}, nil
}

// Bundled loads the dictionary shipped with the binary.
func Bundled() (*Dictionary, error) {
	rc, err := corpus.Open(corpus.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIOFailure, err)
	}
	defer rc.Close()
	return Load(rc)
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// RandomWords joins up to count words drawn with replacement, stopping once
// maxLength characters are reached. The result is cut to maxLength
// characters and trimmed.
func (d *Dictionary) RandomWords(rng *rand.Rand, count, maxLength int) (string, error) {
	if count < 0 || maxLength < 0 {
		return "", fmt.Errorf("%w: count %d and maxLength %d must not be negative", core.ErrInvalidRange, count, maxLength)
	}
	var b strings.Builder
	n := 0
	for i := 0; i < count && n < maxLength; i++ {
		w := d.words[rng.IntN(len(d.words))]
		b.WriteString(w)
		b.WriteByte(' ')
		n += utf8.RuneCountInString(w) + 1
	}
	s := b.String()
	if n > maxLength {
		s = string([]rune(s)[:maxLength])
	}
	return strings.TrimSpace(s), nil
}
