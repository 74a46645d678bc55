package blockdelta

import (
	"crypto/rand"
	"fmt"

	"github.com/aalhour/pgbackrest-go/internal/checksum"
	"github.com/aalhour/pgbackrest-go/internal/cipher"
	"github.com/aalhour/pgbackrest-go/internal/compression"
)

// BuildBlockMap is Engine's write-side counterpart: it packs data into the
// physical repository object a later restore's Read/SuperBlock addressing
// points at, and returns the block-map describing it.
//
// Each blockSize-sized chunk of data becomes its own super block (one
// block per super block, Offset tracking the packed object rather than
// the logical file), optionally compressed then raw-encrypted with a
// fresh per-block salt — the inverse of Engine.extractSuperBlock's
// decrypt-then-decompress order (§4.1's "a read pipeline for
// encrypted-then-compressed bytes is source -> decrypt -> decompress"
// implies write goes compress -> encrypt -> sink).
func BuildBlockMap(data []byte, blockSize int64, checksumType checksum.Type, reference int64, compressionType compression.Type, passphrase []byte, cipherOn bool) ([]BlockMapItem, []byte, error) {
	var items []BlockMapItem
	var packed []byte

	for off := int64(0); off < int64(len(data)); off += blockSize {
		end := off + blockSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		plain := data[off:end]

		payload := plain
		if compressionType != compression.None {
			var err error
			payload, err = compression.Compress(compressionType, payload)
			if err != nil {
				return nil, nil, fmt.Errorf("blockdelta: pack block at %d: %w", off, err)
			}
		}

		var salt []byte
		if cipherOn {
			salt = make([]byte, 8)
			if _, err := rand.Read(salt); err != nil {
				return nil, nil, fmt.Errorf("blockdelta: pack block at %d: salt: %w", off, err)
			}
			var err error
			payload, err = cipher.EncryptRaw(passphrase, salt, payload)
			if err != nil {
				return nil, nil, fmt.Errorf("blockdelta: pack block at %d: encrypt: %w", off, err)
			}
		}

		items = append(items, BlockMapItem{
			No:             0,
			Offset:         int64(len(packed)),
			Size:           int64(len(payload)),
			SuperBlockSize: end - off,
			Reference:      reference,
			Checksum:       checksumBytes(checksumType, plain),
			Salt:           salt,
		})
		packed = append(packed, payload...)
	}

	return items, packed, nil
}
