package words

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/pkg/core"
)

func TestBundledDictionary(t *testing.T) {
	d, err := Bundled()
	require.NoError(t, err)
	assert.Greater(t, d.Len(), 500)
}

func TestRandomWordsBounds(t *testing.T) {
	d, err := Bundled()
	require.NoError(t, err)
	rng := core.NewRand(21)

	for i := 0; i < 1000; i++ {
		s, err := d.RandomWords(rng, 5, 10)
		require.NoError(t, err)
		assert.LessOrEqual(t, utf8.RuneCountInString(s), 10)
		assert.Equal(t, strings.TrimSpace(s), s)
		assert.NotEmpty(t, s)
	}
}

func TestRandomWordsCount(t *testing.T) {
	d, err := Load(strings.NewReader("alpha beta\ngamma"))
	require.NoError(t, err)
	rng := core.NewRand(4)

	s, err := d.RandomWords(rng, 3, 1000)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(s), 3)

	s, err = d.RandomWords(rng, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = d.RandomWords(rng, 4, 0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestRandomWordsTruncatesRunes(t *testing.T) {
	d, err := Load(strings.NewReader("ééééé"))
	require.NoError(t, err)
	s, err := d.RandomWords(core.NewRand(1), 3, 7)
	require.NoError(t, err)
	assert.Equal(t, "ééééé é", s)
}

func TestRandomWordsRejectsNegative(t *testing.T) {
	d, err := Load(strings.NewReader("a"))
	require.NoError(t, err)
	_, err = d.RandomWords(core.NewRand(1), -1, 5)
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestLoadEmpty(t *testing.T) {
	_, err := Load(strings.NewReader(" \n\t"))
	assert.ErrorIs(t, err, core.ErrIOFailure)
}
