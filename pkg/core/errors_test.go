package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, "", Classify(nil))
	assert.Equal(t, "InvalidRange", Classify(fmt.Errorf("%w: end before start", ErrInvalidRange)))
	assert.Equal(t, "StoreUnavailable", Classify(fmt.Errorf("fetch: %w", fmt.Errorf("%w: conn reset", ErrStoreUnavailable))))
	assert.Equal(t, "Other", Classify(errors.New("boom")))
}

func TestIsConfigError(t *testing.T) {
	assert.True(t, IsConfigError(fmt.Errorf("%w: nope", ErrUnknownFunction)))
	assert.True(t, IsConfigError(fmt.Errorf("%w: missing end", ErrParameterMismatch)))
	assert.False(t, IsConfigError(fmt.Errorf("%w: bad", ErrInvalidPattern)))
}

func TestRuleExcludes(t *testing.T) {
	r := Rule{SkipNull: true, Exclude: []string{"admin@corp", "42"}}
	assert.True(t, r.Excludes(nil))
	assert.True(t, r.Excludes("admin@corp"))
	assert.True(t, r.Excludes([]byte("admin@corp")))
	assert.True(t, r.Excludes(int64(42)))
	assert.False(t, r.Excludes("someone@corp"))

	assert.False(t, Rule{}.Excludes(nil))
}

func TestNewRandDeterministic(t *testing.T) {
	a, b := NewRand(7), NewRand(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}
