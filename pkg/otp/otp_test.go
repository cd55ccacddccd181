package otp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRandomFlags(t *testing.T) {
	_, err := NewRandom(RandomOpt{DigitsOnly: true, LettersOnly: true})
	assert.Error(t, err, "both alphabet flags should be rejected")
}

func TestGenerateDigitsOnly(t *testing.T) {
	g, err := NewRandom(RandomOpt{Length: 6, DigitsOnly: true})
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.Contains(t, digitChars, string(c), "non-digit in digits-only code")
	}
}

func TestGenerateLettersOnly(t *testing.T) {
	g, err := NewRandom(RandomOpt{Length: 8, LettersOnly: true})
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.False(t, strings.ContainsAny(code, digitChars), "digit in letters-only code")
}

func TestGenerateDefaultLength(t *testing.T) {
	g, err := NewRandom(RandomOpt{})
	require.NoError(t, err)

	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, DefaultLength)
}

func TestGenerateUnpredictable(t *testing.T) {
	g, err := NewRandom(RandomOpt{Length: 8})
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code generated: %s", code)
		seen[code] = true
	}
}

func TestNewRegistry(t *testing.T) {
	g, err := New("random", RandomOpt{Length: 4})
	require.NoError(t, err)
	assert.NotNil(t, g)

	g, err = New("", RandomOpt{})
	require.NoError(t, err)
	assert.NotNil(t, g)

	_, err = New("hsm", RandomOpt{})
	assert.Error(t, err, "unknown generator name should be rejected")
}
