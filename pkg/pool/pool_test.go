package pool

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/masquerade/pkg/core"
)

func newTestCache() *Cache {
	return NewCache(core.NewRand(42))
}

func TestNextExhaustsBeforeRepeat(t *testing.T) {
	c := newTestCache()
	require.NoError(t, c.Load("names", strings.NewReader("ann\nbob\ncarl\ndora\neve\n")))
	require.Equal(t, 5, c.Len("names"))

	for epoch := 0; epoch < 20; epoch++ {
		seen := make(map[string]bool)
		for i := 0; i < 5; i++ {
			v, err := c.Next("names")
			require.NoError(t, err)
			assert.False(t, seen[v], "value %q repeated within epoch %d", v, epoch)
			seen[v] = true
		}
		assert.Len(t, seen, 5)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	c := newTestCache()
	require.NoError(t, c.Load("p", strings.NewReader("a\nb\n")))
	require.NoError(t, c.Load("p", strings.NewReader("x\ny\nz\n")))
	assert.Equal(t, 2, c.Len("p"))

	opened := 0
	err := c.LoadFunc("p", func() (io.ReadCloser, error) {
		opened++
		return io.NopCloser(strings.NewReader("q\n")), nil
	})
	require.NoError(t, err)
	assert.Zero(t, opened)
}

func TestSkipsBlankLinesAndCarriageReturns(t *testing.T) {
	c := newTestCache()
	require.NoError(t, c.Load("p", strings.NewReader("a\r\n\r\n\nb\n")))
	assert.Equal(t, 2, c.Len("p"))
	for i := 0; i < 4; i++ {
		v, err := c.Next("p")
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, v)
	}
}

func TestNextNotLoaded(t *testing.T) {
	c := newTestCache()
	_, err := c.Next("missing")
	assert.ErrorIs(t, err, core.ErrNotLoaded)
	assert.False(t, c.Loaded("missing"))
}

func TestLoadFailures(t *testing.T) {
	c := newTestCache()

	err := c.LoadFunc("broken", func() (io.ReadCloser, error) {
		return nil, errors.New("no such file")
	})
	assert.ErrorIs(t, err, core.ErrIOFailure)
	assert.False(t, c.Loaded("broken"))

	err = c.Load("empty", strings.NewReader("\n\n"))
	assert.ErrorIs(t, err, core.ErrIOFailure)

	// a failed load can be retried
	require.NoError(t, c.Load("broken", strings.NewReader("ok\n")))
	v, err := c.Next("broken")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestNextFromLoadsLazily(t *testing.T) {
	c := newTestCache()
	opened := 0
	open := func() (io.ReadCloser, error) {
		opened++
		return io.NopCloser(strings.NewReader("one\ntwo\n")), nil
	}
	for i := 0; i < 6; i++ {
		_, err := c.NextFrom("lazy", open)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, opened)
}

func TestConcurrentNextKeepsEpochs(t *testing.T) {
	c := newTestCache()
	const size = 50
	var b strings.Builder
	for i := 0; i < size; i++ {
		fmt.Fprintf(&b, "v%d\n", i)
	}
	require.NoError(t, c.Load("p", strings.NewReader(b.String())))

	const workers = 5
	results := make(chan string, size*workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < size; i++ {
				v, err := c.Next("p")
				if err == nil {
					results <- v
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := make(map[string]int)
	for v := range results {
		counts[v]++
	}
	// workers*size draws over exactly workers full epochs
	require.Len(t, counts, size)
	for v, n := range counts {
		assert.Equal(t, workers, n, "value %s", v)
	}
}
