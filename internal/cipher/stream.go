package cipher

import (
	"bytes"
	"fmt"
	"io"
)

// StreamWriter buffers plaintext and encrypts it as a single CBC frame on
// Close, since CBC's PKCS#7 padding can only be computed once the final
// write is known. It implements filter.Writer; its Result returns nil.
type StreamWriter struct {
	dst        io.Writer
	passphrase []byte
	salt       []byte
	salted     bool
	buf        bytes.Buffer
	closed     bool
}

// NewStreamWriter returns a Writer that frames everything written to it
// before Close as a single salted AES-256-CBC block, then writes the
// frame to dst.
func NewStreamWriter(dst io.Writer, passphrase []byte) *StreamWriter {
	return &StreamWriter{dst: dst, passphrase: passphrase, salted: true}
}

// NewStreamWriterRaw is like NewStreamWriter but uses the caller-supplied
// salt and omits the "Salted__" header, for block-delta super blocks.
func NewStreamWriterRaw(dst io.Writer, passphrase, salt []byte) *StreamWriter {
	return &StreamWriter{dst: dst, passphrase: passphrase, salt: salt}
}

func (w *StreamWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("cipher: write after close")
	}
	return w.buf.Write(p)
}

// Close encrypts the buffered plaintext and writes the resulting frame.
func (w *StreamWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var frame []byte
	var err error
	if w.salted {
		frame, err = EncryptSalted(w.passphrase, w.buf.Bytes())
	} else {
		frame, err = EncryptRaw(w.passphrase, w.salt, w.buf.Bytes())
	}
	if err != nil {
		return err
	}
	_, err = w.dst.Write(frame)
	return err
}

// Result returns nil; StreamWriter has no terminal value beyond the bytes
// it wrote.
func (w *StreamWriter) Result() any { return nil }

// Decrypt reads the entirety of src, treats it as one salted frame, and
// returns the plaintext. Block-delta super blocks call DecryptRaw
// directly instead, since their salt comes from the block map.
func Decrypt(src io.Reader, passphrase []byte) ([]byte, error) {
	frame, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("cipher: read: %w", err)
	}
	return DecryptSalted(passphrase, frame)
}
