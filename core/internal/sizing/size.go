// Package sizing provides overflow-checked conversions for on-disk offsets and sizes.
package sizing

import (
	"fmt"
	"math"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

// ToInt converts a uint64 to int, returning ErrSizeOverflow if it doesn't fit.
func ToInt(size uint64) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit in int", paktype.ErrSizeOverflow, size)
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning ErrSizeOverflow if it doesn't fit.
func ToInt64(size uint64) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: %d does not fit in int64", paktype.ErrSizeOverflow, size)
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
