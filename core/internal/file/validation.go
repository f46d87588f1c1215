package file

import (
	"fmt"

	"github.com/Benborbar/gfp/core/internal/paktype"
	"github.com/Benborbar/gfp/core/internal/sizing"
)

// ValidateBlocks checks that every compression block of entry is well formed:
//   - End is not before Start
//   - End fits in an int64 file offset
//   - The stored size is within maxBlockSize (if limit > 0)
func ValidateBlocks(entry *Entry, maxBlockSize uint64) error {
	for i, b := range entry.Blocks {
		if b.End < b.Start {
			return paktype.InvalidDataf("block %d ends at %d before it starts at %d", i, b.End, b.Start)
		}
		if _, err := sizing.ToInt64(b.End); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if _, err := sizing.ToInt(b.Size()); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if maxBlockSize > 0 && b.Size() > maxBlockSize {
			return fmt.Errorf("%w: block %d is %d bytes, limit %d", paktype.ErrSizeOverflow, i, b.Size(), maxBlockSize)
		}
	}
	return nil
}
