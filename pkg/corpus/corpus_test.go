package corpus

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundledCorpora(t *testing.T) {
	for _, name := range Names() {
		rc, err := Open(name)
		require.NoError(t, err, name)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Greater(t, len(lines), 50, name)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("klingon")
	assert.Error(t, err)
}
