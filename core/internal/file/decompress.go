package file

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/Benborbar/gfp/core/internal/paktype"
)

// DecompressPool manages reusable zlib readers to reduce allocation overhead.
// A pool may be shared by extractors of different archives.
type DecompressPool struct {
	pool sync.Pool
}

// NewDecompressPool creates an empty pool of zlib readers.
func NewDecompressPool() *DecompressPool {
	return &DecompressPool{}
}

// Get returns a zlib reader positioned at the start of r.
// The caller must call the returned release function when done.
// If an error is returned, no release function needs to be called.
func (p *DecompressPool) Get(r io.Reader) (io.ReadCloser, func(), error) {
	if zr, ok := p.pool.Get().(io.ReadCloser); ok {
		if resetter, ok := zr.(zlib.Resetter); ok {
			if err := resetter.Reset(r, nil); err != nil {
				// The header of r is bad; the reader itself is still reusable.
				p.pool.Put(zr)
				return nil, nil, err
			}
			return zr, func() { p.pool.Put(zr) }, nil
		}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return zr, func() { p.pool.Put(zr) }, nil
}

// Inflate decompresses the zlib stream in src and appends the result to dst.
func (p *DecompressPool) Inflate(dst *bytes.Buffer, src []byte) error {
	zr, release, err := p.Get(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: %v", paktype.ErrDecompression, err)
	}
	defer release()

	if _, err := dst.ReadFrom(zr); err != nil {
		return fmt.Errorf("%w: %v", paktype.ErrDecompression, err)
	}
	return nil
}
