package sha256

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasher_Hash(t *testing.T) {
	t.Parallel()

	h := New()

	a, err := h.Hash([]byte("great tacos, terrible parking"))
	require.NoError(t, err)
	require.Len(t, a, 64)

	b, err := h.Hash([]byte("great tacos, terrible parking"))
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := h.Hash([]byte("great tacos, great parking"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
