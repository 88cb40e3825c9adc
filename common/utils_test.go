package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNil(t *testing.T) {
	var nilMap map[string]int
	var nilPtr *int
	require.True(t, IsNil(nil))
	require.True(t, IsNil(nilMap))
	require.True(t, IsNil(nilPtr))
	require.False(t, IsNil(1))
	require.False(t, IsNil("x"))
}

func TestLogOnPanicRepanics(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() {
		defer LogOnPanic()
		panic("boom")
	})
}

func TestNormalizeOrigin(t *testing.T) {
	require.Equal(t, "https://app.example", NormalizeOrigin(" HTTPS://App.Example/ "))
	require.Equal(t, "", NormalizeOrigin(""))
}

func TestIsExtensionOrigin(t *testing.T) {
	require.True(t, IsExtensionOrigin(""))
	require.True(t, IsExtensionOrigin("chrome-extension://abcdefghijklmnop"))
	require.True(t, IsExtensionOrigin("moz-extension://7c1a2b3c"))
	require.False(t, IsExtensionOrigin("https://evil.example"))
	require.False(t, IsExtensionOrigin("http://localhost:3000"))
	require.False(t, IsExtensionOrigin("null"))
}
