package blockdelta

import (
	"encoding/binary"
	"io"

	"github.com/aalhour/pgbackrest-go/internal/checksum"
)

// BlockChecksumSize is the width, in bytes, of one entry in the flat
// existing-checksum buffer BuildPlan compares against and ExistingChecksums
// produces: a big-endian uint32 out of one of internal/checksum's
// block-checksum algorithms (§3 "a flat concatenation of fixed-size
// checksums, one per existing block in order").
const BlockChecksumSize = 4

// checksumBytes renders data's checksum, computed with t, as the
// BlockChecksumSize-byte form stored in a BlockMapItem.Checksum and in an
// ExistingChecksums buffer, so the two are always directly comparable.
func checksumBytes(t checksum.Type, data []byte) []byte {
	var b [BlockChecksumSize]byte
	binary.BigEndian.PutUint32(b[:], checksum.ComputeChecksum(t, data, 0))
	return b[:]
}

// ExistingChecksums reads r in blockSize chunks and checksums each one
// with t, producing the flat buffer BuildPlan's existing parameter
// expects for an on-disk copy of the file being restored (§4.3's "an
// optional existing-file checksum buffer"). A short final chunk is
// checksummed as-is; r reaching EOF with no bytes read ends the loop
// without appending a trailing entry.
func ExistingChecksums(r io.Reader, blockSize int64, t checksum.Type) ([]byte, error) {
	buf := make([]byte, blockSize)
	var out []byte
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			out = append(out, checksumBytes(t, buf[:n])...)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
