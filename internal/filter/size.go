package filter

import "io"

// NewSizeFilter returns a byte-counting ctor for use with NewReaderGroup.
// Its Result() is an int64 total.
func NewSizeFilter() func(io.Reader) (Reader, error) {
	return func(src io.Reader) (Reader, error) {
		return &sizeReader{src: src}, nil
	}
}

// NewSizeWriterFilter is the write-side equivalent of NewSizeFilter.
func NewSizeWriterFilter() func(io.Writer) (Writer, error) {
	return func(dst io.Writer) (Writer, error) {
		return &sizeWriter{dst: dst}, nil
	}
}

type sizeReader struct {
	src   io.Reader
	total int64
}

func (r *sizeReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	r.total += int64(n)
	return n, err
}

func (r *sizeReader) Result() any { return r.total }

type sizeWriter struct {
	dst   io.Writer
	total int64
}

func (w *sizeWriter) Write(p []byte) (int, error) {
	n, err := w.dst.Write(p)
	w.total += int64(n)
	return n, err
}

func (w *sizeWriter) Close() error {
	if c, ok := w.dst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (w *sizeWriter) Result() any { return w.total }
