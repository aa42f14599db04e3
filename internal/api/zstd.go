package api

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// newZstdWriter wraps w in a zstd encoder for the bulk export endpoints.
// Construction only fails on invalid encoder options, none of which are
// used here, so a failure is treated as a no-op passthrough writer.
func newZstdWriter(w io.Writer) io.WriteCloser {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nopWriteCloser{w}
	}
	return enc
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
