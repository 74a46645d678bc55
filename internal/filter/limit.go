package filter

import (
	"errors"
	"io"

	"github.com/aalhour/pgbackrest-go/internal/ioutil"
)

// ErrNotDrained is returned by LimitReader.Close when the source still had
// unread bytes within the limit — the caller closed the pipeline early.
var ErrNotDrained = errors.New("filter: limit reader closed before drained")

// LimitReader wraps src and returns io.EOF once n bytes have been read,
// regardless of how much data src actually has left. It is the hard cap a
// super-block read pushes onto its underlying storage read so a
// compress/cipher stage downstream never reads past the block boundary.
type LimitReader struct {
	src       io.Reader
	remaining int64
	read      int64
}

// NewLimitReader returns a LimitReader capped at n bytes.
func NewLimitReader(src io.Reader, n int64) *LimitReader {
	return &LimitReader{src: src, remaining: n}
}

func (l *LimitReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.src.Read(p)
	l.remaining -= int64(n)
	l.read += int64(n)
	return n, err
}

// Result returns the number of bytes actually read.
func (l *LimitReader) Result() any {
	return l.read
}

// Close asserts the limit was fully drained; a pipeline that closes a
// LimitReader early (e.g. on an upstream error) should not treat the
// underlying source as having been consumed to the block boundary.
func (l *LimitReader) Close() error {
	if l.remaining > 0 {
		return ErrNotDrained
	}
	return nil
}

// ReadFull drives r into buf's unused region until the region is full or
// r returns an error, the §4.1 Reader contract — read(&mut Buffer) ->
// size — expressed directly instead of through a pre-sized []byte: the
// caller hands over a cursor, not a byte count, and ReadFull advances it.
// A short final read that exactly fills buf (r then reporting io.EOF on
// a later call) is not an error, mirroring io.ReadFull's own exact-size
// semantics.
func ReadFull(r io.Reader, buf *ioutil.Buffer) (int, error) {
	n := 0
	for buf.Remaining() > 0 {
		m, err := r.Read(buf.Unused())
		if m > 0 {
			buf.SetUsed(buf.Used() + m)
			n += m
		}
		if err != nil {
			if err == io.EOF && buf.Remaining() == 0 {
				return n, nil
			}
			if err == io.EOF {
				return n, io.ErrUnexpectedEOF
			}
			return n, err
		}
	}
	return n, nil
}
