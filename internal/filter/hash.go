package filter

import (
	"hash"
	"io"

	"github.com/aalhour/pgbackrest-go/internal/checksum"
)

// NewHashFilter returns a hash-filter ctor for use with NewReaderGroup:
// bytes read flow unchanged, and the running digest is available via
// Result() once the stream is exhausted.
func NewHashFilter(h hash.Hash) func(io.Reader) (Reader, error) {
	return func(src io.Reader) (Reader, error) {
		return &hashReader{src: src, h: h}, nil
	}
}

// NewChecksumFilter builds a streaming hash filter over one of
// internal/checksum's algorithms, the §4.1 "sha/xx hash" filter kind:
// bytes pass through unchanged and the running digest is read out of the
// group via Result() once the source is exhausted.
func NewChecksumFilter(t checksum.Type) (func(io.Reader) (Reader, error), error) {
	h, err := checksum.NewStreamHash(t)
	if err != nil {
		return nil, err
	}
	return NewHashFilter(h), nil
}

// NewHashWriterFilter returns a HashWriter ctor for use with NewWriterGroup.
func NewHashWriterFilter(h hash.Hash) func(io.Writer) (Writer, error) {
	return func(dst io.Writer) (Writer, error) {
		return &hashWriter{dst: dst, h: h}, nil
	}
}

type hashReader struct {
	src io.Reader
	h   hash.Hash
}

func (r *hashReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
	}
	return n, err
}

func (r *hashReader) Result() any {
	return r.h.Sum(nil)
}

type hashWriter struct {
	dst io.Writer
	h   hash.Hash
}

func (w *hashWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	if n > 0 {
		w.h.Write(p[:n])
	}
	return n, err
}

func (w *hashWriter) Close() error {
	if c, ok := w.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *hashWriter) Result() any {
	return w.h.Sum(nil)
}
