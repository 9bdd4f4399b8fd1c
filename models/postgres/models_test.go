package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionIDIsOpaqueAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		assert.Len(t, id, 32)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestNewPlayerIDIsOpaqueAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewPlayerID()
		assert.Len(t, id, 32)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestJoinCodeAvoidsAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := generateJoinCode(4)
		assert.Len(t, code, 4)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(joinCodeCharset, r), "unexpected rune %q", r)
		}
	}
	// 0/O and 1/I are indistinguishable on a projected QR screen
	assert.NotContains(t, joinCodeCharset, "0")
	assert.NotContains(t, joinCodeCharset, "O")
	assert.NotContains(t, joinCodeCharset, "1")
	assert.NotContains(t, joinCodeCharset, "I")
}
