package method

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRecognized(t *testing.T) {
	m, n, ok := Match([]byte("GET /\r\n"), true)
	require.True(t, ok)
	assert.Equal(t, GET, m)
	assert.Equal(t, 3, n)
}

func TestMatchRequiresBoundary(t *testing.T) {
	// PATCHFOO must not be misread as PATCH.
	m, _, ok := Match([]byte("PATCHFOO /\r\n"), true)
	require.True(t, ok, "buffer is long enough to decide conclusively")
	assert.Equal(t, Unknown, m)
}

func TestMatchNeedsMoreData(t *testing.T) {
	_, _, ok := Match([]byte("PA"), false)
	assert.False(t, ok, "PA is a prefix of PATCH and more bytes could still arrive")
}

func TestMatchAtEOFShortBuffer(t *testing.T) {
	m, n, ok := Match([]byte("GET"), true)
	require.True(t, ok)
	assert.Equal(t, GET, m)
	assert.Equal(t, 3, n)
}

func TestMatchUnrecognizedAtEOF(t *testing.T) {
	m, _, ok := Match([]byte("FROB /\r\n"), true)
	require.True(t, ok)
	assert.Equal(t, Unknown, m)
}

func TestParse(t *testing.T) {
	m, err := Parse("POST")
	require.NoError(t, err)
	assert.Equal(t, POST, m)

	_, err = Parse("bogus")
	require.Error(t, err)
}
