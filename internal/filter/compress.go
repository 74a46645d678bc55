package filter

import (
	"io"

	"github.com/aalhour/pgbackrest-go/internal/compression"
)

// NewCompressFilter returns a write-side ctor that compresses everything
// written to it with codec t before passing it downstream. Close flushes
// the codec's trailer.
func NewCompressFilter(t compression.Type) func(io.Writer) (Writer, error) {
	return func(dst io.Writer) (Writer, error) {
		w, err := compression.NewWriter(dst, t)
		if err != nil {
			return nil, err
		}
		return &compressWriter{w: w}, nil
	}
}

// NewDecompressFilter returns a read-side ctor that decompresses data read
// from src using codec t.
func NewDecompressFilter(t compression.Type) func(io.Reader) (Reader, error) {
	return func(src io.Reader) (Reader, error) {
		r, err := compression.NewReader(src, t)
		if err != nil {
			return nil, err
		}
		return &decompressReader{r: r}, nil
	}
}

type compressWriter struct {
	w io.WriteCloser
}

func (c *compressWriter) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *compressWriter) Close() error                { return c.w.Close() }
func (c *compressWriter) Result() any                 { return nil }

type decompressReader struct {
	r io.Reader
}

func (d *decompressReader) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *decompressReader) Result() any                { return nil }
