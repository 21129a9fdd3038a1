package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID("ws")
	assert.True(t, strings.HasPrefix(id, "ws_"))
	assert.Len(t, id, len("ws_")+26)
	assert.True(t, IsValidULID(id))
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID("rep")
		require.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestIsValidULID(t *testing.T) {
	assert.True(t, IsValidULID("ws_01ARZ3NDEKTSV4RRFFQ69G5FAV"))

	assert.False(t, IsValidULID(""))
	assert.False(t, IsValidULID("01ARZ3NDEKTSV4RRFFQ69G5FAV"))       // no prefix
	assert.False(t, IsValidULID("ws_"))                              // no ulid
	assert.False(t, IsValidULID("ws_01ARZ3NDEKTSV4RRFFQ69G5FA"))    // 25 chars
	assert.False(t, IsValidULID("WS_01ARZ3NDEKTSV4RRFFQ69G5FAV"))   // uppercase prefix
	assert.False(t, IsValidULID("ws_01ARZ3NDEKTSV4RRFFQ69G5FAI"))   // I not in alphabet
	assert.False(t, IsValidULID("ws_x_01ARZ3NDEKTSV4RRFFQ69G5FAV")) // extra separator
}

func TestNewReportToken(t *testing.T) {
	token, err := NewReportToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, IsValidReportToken(token))
}

func TestNewReportToken_Unique(t *testing.T) {
	first, err := NewReportToken()
	require.NoError(t, err)
	second, err := NewReportToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestIsValidReportToken(t *testing.T) {
	assert.False(t, IsValidReportToken(""))
	assert.False(t, IsValidReportToken("abc"))
	assert.False(t, IsValidReportToken(strings.Repeat("g", 64))) // not hex
	assert.True(t, IsValidReportToken(strings.Repeat("ab", 32)))
}
