package filter

import (
	"bytes"
	"io"

	"github.com/aalhour/pgbackrest-go/internal/cipher"
)

// NewCipherWriterFilter returns a write-side ctor that frames everything
// written to it as a single salted AES-256-CBC frame on Close, per
// internal/cipher.
func NewCipherWriterFilter(passphrase []byte) func(io.Writer) (Writer, error) {
	return func(dst io.Writer) (Writer, error) {
		return cipher.NewStreamWriter(dst, passphrase), nil
	}
}

// NewCipherReaderFilter returns a read-side ctor that reads all of src as a
// single salted frame and decrypts it eagerly; the whole plaintext is then
// served through a bytes.Reader. Block-delta super blocks, whose salt
// lives in the block map rather than a frame header, decrypt directly via
// internal/cipher.DecryptRaw instead of going through this filter.
func NewCipherReaderFilter(passphrase []byte) func(io.Reader) (Reader, error) {
	return func(src io.Reader) (Reader, error) {
		plaintext, err := cipher.Decrypt(src, passphrase)
		if err != nil {
			return nil, err
		}
		return &cipherReader{r: bytes.NewReader(plaintext)}, nil
	}
}

type cipherReader struct {
	r *bytes.Reader
}

func (c *cipherReader) Read(p []byte) (int, error) { return c.r.Read(p) }
func (c *cipherReader) Result() any                { return nil }
