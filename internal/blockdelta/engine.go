package blockdelta

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aalhour/pgbackrest-go/internal/cipher"
	"github.com/aalhour/pgbackrest-go/internal/compression"
	"github.com/aalhour/pgbackrest-go/internal/filter"
	"github.com/aalhour/pgbackrest-go/internal/ioutil"
)

// Engine extracts the blocks named by a Plan from the byte streams a
// caller opens for each Read, de-framing cipher and compression layers
// transparently (§4.3). It holds no per-Read state between calls, so one
// Engine can be reused across every Read in a Plan.
type Engine struct {
	blockSize   int64
	passphrase  []byte
	cipherOn    bool
	compression compression.Type
}

// Option configures an Engine.
type Option func(*Engine)

// WithCipher enables raw AES-256-CBC decryption of each super block using
// passphrase, with the salt taken from the super block itself.
func WithCipher(passphrase []byte) Option {
	return func(e *Engine) {
		e.cipherOn = true
		e.passphrase = passphrase
	}
}

// WithCompression enables decompression of each super block's plaintext
// with codec t.
func WithCompression(t compression.Type) Option {
	return func(e *Engine) {
		e.compression = t
	}
}

// NewEngine returns an Engine that extracts blockSize-byte blocks.
func NewEngine(blockSize int64, opts ...Option) *Engine {
	e := &Engine{blockSize: blockSize}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractRead streams src — which the caller has opened over exactly
// [read.Offset, read.Offset+read.Size) of the repository — and invokes
// emit once per needed block, in the super-block and block order carried
// by read.SuperBlocks. It returns as soon as emit returns a non-nil error.
func (e *Engine) ExtractRead(src io.Reader, read Read, emit func(WriteRequest) error) error {
	for _, sb := range read.SuperBlocks {
		if err := e.extractSuperBlock(src, sb, emit); err != nil {
			return fmt.Errorf("blockdelta: reference %d offset %d: %w", read.Reference, read.Offset, err)
		}
	}
	return nil
}

// extractSuperBlock reads exactly sb.Size bytes from src (via a
// filter.LimitReader, so a short source never lets the engine wander into
// the next super block), de-frames cipher then compression, and walks the
// decoded content block by block, ascending "no", emitting the blocks
// named in sb.Blocks and discarding the rest.
//
// Cipher frames are CBC block-mode: the whole ciphertext must be present
// before the first byte decrypts, so unlike a streaming compressor this
// stage cannot be pushed as an incremental io.Reader — it decodes the
// super block whole, the same posture internal/cipher.StreamWriter takes
// on the write side.
func (e *Engine) extractSuperBlock(src io.Reader, sb SuperBlock, emit func(WriteRequest) error) error {
	lr := filter.NewLimitReader(src, sb.Size)
	rawBuf := ioutil.NewBuffer(int(sb.Size))
	if _, err := filter.ReadFull(lr, rawBuf); err != nil {
		return fmt.Errorf("read super block: %w", err)
	}
	if err := lr.Close(); err != nil {
		return fmt.Errorf("drain super block: %w", err)
	}
	raw := rawBuf.Bytes()

	var err error
	plaintext := raw
	if e.cipherOn {
		plaintext, err = cipher.DecryptRaw(e.passphrase, sb.Salt, raw)
		if err != nil {
			return fmt.Errorf("decrypt super block: %w", err)
		}
	}

	var content io.Reader = bytes.NewReader(plaintext)
	if e.compression != compression.None {
		content, err = compression.NewReader(content, e.compression)
		if err != nil {
			return fmt.Errorf("decompress super block: %w", err)
		}
	}

	blockTotal := (sb.SuperBlockSize + e.blockSize - 1) / e.blockSize
	needIdx := 0

	for i := int64(0); i < blockTotal; i++ {
		chunkSize := e.blockSize
		if remaining := sb.SuperBlockSize - i*e.blockSize; remaining < chunkSize {
			chunkSize = remaining
		}

		chunkBuf := ioutil.NewBuffer(int(chunkSize))
		if _, err := filter.ReadFull(content, chunkBuf); err != nil {
			return fmt.Errorf("read block %d: %w", i, err)
		}

		if needIdx < len(sb.Blocks) && sb.Blocks[needIdx].No == i {
			need := sb.Blocks[needIdx]
			if err := emit(WriteRequest{DestOffset: need.DestOffset, Block: chunkBuf.Bytes()}); err != nil {
				return err
			}
			needIdx++
		}
	}

	if needIdx != len(sb.Blocks) {
		return fmt.Errorf("super block exhausted with %d of %d needed blocks unresolved", len(sb.Blocks)-needIdx, len(sb.Blocks))
	}
	return nil
}
