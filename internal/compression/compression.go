// Package compression provides the codec set a storage read/write filter
// group can push onto a stream: whole-buffer Compress/Decompress for
// super-block-sized payloads, and streaming Reader/Writer constructors
// for use as filter-pipeline stages (internal/filter).
package compression

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm a filter group can push onto a
// stream. Values match the codec names the glossary uses: gz, bz2, lz4, zst.
type Type uint8

const (
	// None indicates no compression.
	None Type = 0

	// Gzip uses the standard gzip container (RFC 1952).
	Gzip Type = 1

	// Bzip2 uses the bzip2 block-sorting compressor. Go's standard library
	// implements only a decoder; Compress/NewWriter for Bzip2 return an
	// error rather than silently falling back to a different codec.
	Bzip2 Type = 2

	// LZ4 uses the LZ4 frame format (magic bytes + frame header), which is
	// what makes an LZ4 stream self-delimiting when used as a filter stage.
	LZ4 Type = 3

	// Zstd uses Zstandard.
	Zstd Type = 4
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Gzip:
		return "gz"
	case Bzip2:
		return "bz2"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zst"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// ParseType maps a config-facing codec name to its Type.
func ParseType(name string) (Type, error) {
	switch name {
	case "none":
		return None, nil
	case "gz":
		return Gzip, nil
	case "bz2":
		return Bzip2, nil
	case "lz4":
		return LZ4, nil
	case "zst":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("compression: unknown type %q", name)
	}
}

// Compress compresses data using the specified compression type.
func Compress(t Type, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, t)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress decompresses data using the specified compression type.
func Decompress(t Type, data []byte) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), t)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compression: read: %w", err)
	}
	if c, ok := r.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return nil, fmt.Errorf("compression: close: %w", err)
		}
	}
	return out, nil
}

// nopWriteCloser adapts an io.Writer with no Close method (e.g. LZ4's
// frame writer needs a distinct concrete close) — kept for symmetry when
// a codec has nothing to flush.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a streaming compressor for t, suitable for pushing onto
// a filter-pipeline write side (internal/filter.CompressFilter). The caller
// must Close it to flush trailing codec state.
func NewWriter(dst io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{dst}, nil

	case Gzip:
		return gzip.NewWriterLevel(dst, gzip.DefaultCompression)

	case Bzip2:
		return nil, fmt.Errorf("compression: bz2 encoding is not supported (decode-only codec)")

	case LZ4:
		return lz4.NewWriter(dst), nil

	case Zstd:
		return zstd.NewWriter(dst)

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}

// NewReader returns a streaming decompressor for t, suitable for pushing
// onto a filter-pipeline read side (internal/filter.DecompressFilter).
func NewReader(src io.Reader, t Type) (io.Reader, error) {
	switch t {
	case None:
		return src, nil

	case Gzip:
		return gzip.NewReader(src)

	case Bzip2:
		return bzip2.NewReader(src), nil

	case LZ4:
		return lz4.NewReader(src), nil

	case Zstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil

	default:
		return nil, fmt.Errorf("compression: unsupported type %s", t)
	}
}
