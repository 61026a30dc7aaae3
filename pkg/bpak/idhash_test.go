package bpak

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDHashDeterministic(t *testing.T) {
	a, err := IDHash("firmware.bin")
	require.NoError(t, err)
	b, err := IDHash("firmware.bin")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestIDHashDistinguishesNames(t *testing.T) {
	a, err := IDHash("firmware.bin")
	require.NoError(t, err)
	b, err := IDHash("firmware.bin-hash-tree")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestIDHashRejectsEmptyName(t *testing.T) {
	_, err := IDHash("")
	require.Error(t, err)
}

func TestMustIDHashPanicsOnEmpty(t *testing.T) {
	require.Panics(t, func() {
		MustIDHash("")
	})
}
