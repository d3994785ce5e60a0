package identifier

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestDerive_Deterministic(t *testing.T) {
	a, err := Derive("serial-0042", DefaultLength, "")
	require.NoError(t, err)
	b, err := Derive("serial-0042", DefaultLength, "")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDerive_Lengths(t *testing.T) {
	for _, length := range []int{1, 2, 3, 4, 7, 16, 22, 32, 33, 64, 100} {
		id, err := Derive("seed", length, "ns")
		require.NoError(t, err)
		assert.Len(t, id, length, "length %d", length)
		assert.Regexp(t, urlSafe, id)
	}
}

func TestDerive_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -1} {
		_, err := Derive("seed", length, "")
		assert.ErrorIs(t, err, ErrInvalidLength)
	}
}

func TestDerive_NamespaceChangesOutput(t *testing.T) {
	plain := MustDerive("temp", DefaultLength, "")
	namespaced := MustDerive("temp", DefaultLength, "device-a")
	other := MustDerive("temp", DefaultLength, "device-b")

	assert.NotEqual(t, plain, namespaced)
	assert.NotEqual(t, namespaced, other)
}

func TestDerive_SeparatorPreventsConcatenationCollision(t *testing.T) {
	a := MustDerive("bc", DefaultLength, "a")
	b := MustDerive("c", DefaultLength, "ab")

	assert.NotEqual(t, a, b)
}

func TestDerive_PrefixStable(t *testing.T) {
	short := MustDerive("seed", 8, "")
	long := MustDerive("seed", 40, "")

	// Both read from the same extendable output.
	assert.Equal(t, short, long[:8])
}

func TestDerive_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, MustDerive("seed", 16, ""), MustDerive("  seed\n", 16, ""))
}

func TestMustDerive_Panics(t *testing.T) {
	assert.Panics(t, func() { MustDerive("seed", 0, "") })
}
