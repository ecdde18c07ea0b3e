package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/pkg/core"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"yyyy-MM-dd", "2006-01-02"},
		{"yyyy-MM-dd HH:mm:ss", "2006-01-02 15:04:05"},
		{"dd/MM/yy", "02/01/06"},
		{"yyyy-MM-dd'T'HH:mm:ss.SSS", "2006-01-02T15:04:05.000"},
		{"EEE, d MMM yyyy hh:mm a", "Mon, 2 Jan 2006 03:04 PM"},
		{"2006-01-02", "2006-01-02"},
		{time.RFC3339, time.RFC3339},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := Layout(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayoutRejectsUnsupported(t *testing.T) {
	for _, format := range []string{"", "yyyy-QQ", "'unterminated", "yyyy'1'"} {
		_, err := Layout(format)
		assert.ErrorIs(t, err, core.ErrInvalidFormat, "format %q", format)
	}
}

func TestRandomDateWithinRange(t *testing.T) {
	rng := core.NewRand(7)
	const format = "yyyy-MM-dd"
	start, _ := time.Parse("2006-01-02", "2020-01-01")
	end, _ := time.Parse("2006-01-02", "2020-03-01")

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s, err := RandomDate(rng, "2020-01-01", "2020-03-01", format)
		require.NoError(t, err)
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		assert.False(t, d.Before(start), "%s before start", s)
		assert.True(t, d.Before(end), "%s not before end", s)
		seen[s] = true
	}
	// 60 candidate days over 1000 draws
	assert.Greater(t, len(seen), 40)
}

func TestRandomDateSingleDay(t *testing.T) {
	rng := core.NewRand(1)
	for i := 0; i < 50; i++ {
		s, err := RandomDate(rng, "2021-06-15", "2021-06-16", "yyyy-MM-dd")
		require.NoError(t, err)
		assert.Equal(t, "2021-06-15", s)
	}
}

func TestRandomDateTimeWithinRange(t *testing.T) {
	rng := core.NewRand(11)
	const layout = "2006-01-02 15:04:05"
	start, _ := time.Parse(layout, "1999-12-31 23:00:00")
	end, _ := time.Parse(layout, "2000-01-01 01:00:00")
	for i := 0; i < 1000; i++ {
		s, err := RandomDateTime(rng, "1999-12-31 23:00:00", "2000-01-01 01:00:00", "yyyy-MM-dd HH:mm:ss")
		require.NoError(t, err)
		d, err := time.Parse(layout, s)
		require.NoError(t, err)
		assert.False(t, d.Before(start))
		assert.True(t, d.Before(end))
	}
}

func TestRandomDateBeforeEpoch(t *testing.T) {
	rng := core.NewRand(3)
	for i := 0; i < 200; i++ {
		s, err := RandomDate(rng, "1960-01-01", "1960-01-03", "yyyy-MM-dd")
		require.NoError(t, err)
		assert.Contains(t, []string{"1960-01-01", "1960-01-02"}, s)
	}
}

func TestInvalidRange(t *testing.T) {
	rng := core.NewRand(1)

	_, err := RandomDate(rng, "2020-03-01", "2020-01-01", "yyyy-MM-dd")
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	_, err = RandomDate(rng, "2020-01-01", "2020-01-01", "yyyy-MM-dd")
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	// same day at date granularity
	_, err = RandomDate(rng, "2020-01-01 01:00", "2020-01-01 05:00", "yyyy-MM-dd HH:mm")
	assert.ErrorIs(t, err, core.ErrInvalidRange)

	_, err = RandomDateTime(rng, "2020-01-01 05:00", "2020-01-01 01:00", "yyyy-MM-dd HH:mm")
	assert.ErrorIs(t, err, core.ErrInvalidRange)
}

func TestInvalidFormat(t *testing.T) {
	rng := core.NewRand(1)
	_, err := RandomDate(rng, "01/02/2020", "2020-03-01", "yyyy-MM-dd")
	assert.ErrorIs(t, err, core.ErrInvalidFormat)
	assert.NotErrorIs(t, err, core.ErrInvalidRange)

	_, err = RandomDateTime(rng, "2020-01-01", "not a date", "yyyy-MM-dd")
	assert.ErrorIs(t, err, core.ErrInvalidFormat)
}
