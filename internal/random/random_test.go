package random_test

import (
	"testing"

	"github.com/mkarsten/kaltvik/internal/random"
	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	letters, err := random.Letters(20)
	require.NoError(t, err)
	require.Len(t, letters, 20)
	for _, r := range letters {
		require.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'))
	}

	empty, err := random.Letters(0)
	require.NoError(t, err)
	require.Empty(t, empty)
}
