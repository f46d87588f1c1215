package sizing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

func TestToInt64(t *testing.T) {
	t.Parallel()

	v, err := ToInt64(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	_, err = ToInt64(math.MaxInt64 + 1)
	require.ErrorIs(t, err, paktype.ErrSizeOverflow)
}

func TestAddUint64(t *testing.T) {
	t.Parallel()

	sum, ok := AddUint64(40, 34)
	assert.True(t, ok)
	assert.Equal(t, uint64(74), sum)

	_, ok = AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)
}
