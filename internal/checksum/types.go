// types.go defines the checksum type constants a block-map entry or a
// storage read filter group may request.
package checksum

import "fmt"

// Type represents the type of checksum algorithm.
type Type uint8

const (
	// TypeNoChecksum means no checksum is used.
	TypeNoChecksum Type = 0
	// TypeCRC32C is CRC32C (Castagnoli) checksum.
	TypeCRC32C Type = 1
	// TypeXXHash is XXHash32 checksum.
	TypeXXHash Type = 2
	// TypeXXHash64 is XXHash64 checksum.
	TypeXXHash64 Type = 3
	// TypeXXH3 is XXH3 checksum.
	TypeXXH3 Type = 4
)

// String returns a human-readable name for the checksum type.
func (t Type) String() string {
	switch t {
	case TypeNoChecksum:
		return "NoChecksum"
	case TypeCRC32C:
		return "CRC32C"
	case TypeXXHash:
		return "XXHash"
	case TypeXXHash64:
		return "XXHash64"
	case TypeXXH3:
		return "XXH3"
	default:
		return "Unknown"
	}
}

// ParseType maps a config-facing checksum name (as resolved from the
// repo-block-checksum-type option) to its Type, the counterpart to
// compression.ParseType for the same resolved-option pattern.
func ParseType(name string) (Type, error) {
	switch name {
	case "crc32c":
		return TypeCRC32C, nil
	case "xxhash":
		return TypeXXHash, nil
	case "xxhash64":
		return TypeXXHash64, nil
	case "xxh3":
		return TypeXXH3, nil
	default:
		return TypeNoChecksum, fmt.Errorf("checksum: unknown type %q", name)
	}
}

// ComputeCRC32CChecksumWithLastByte computes a CRC32C checksum with a separate
// trailing byte folded in, for framing schemes that store a type/flag byte
// outside the checksummed payload.
func ComputeCRC32CChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	// Extend CRC with the last byte
	crc := Value(data)
	crc = Extend(crc, []byte{lastByte})
	return Mask(crc)
}

// ComputeXXH3ChecksumWithLastByte computes an XXH3 checksum with a separate
// trailing byte folded in.
func ComputeXXH3ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	return XXH3ChecksumWithLastByte(data, lastByte)
}

// ComputeXXHash64ChecksumWithLastByte computes an XXHash64 checksum with a
// separate trailing byte folded in.
func ComputeXXHash64ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	return XXHash64ChecksumWithLastByte(data, lastByte)
}

// ComputeChecksum computes a checksum of the given type.
// For block checksums, data is the block content and lastByte is the compression type.
func ComputeChecksum(t Type, data []byte, lastByte byte) uint32 {
	switch t {
	case TypeCRC32C:
		return ComputeCRC32CChecksumWithLastByte(data, lastByte)
	case TypeXXHash64:
		return ComputeXXHash64ChecksumWithLastByte(data, lastByte)
	case TypeXXH3:
		return ComputeXXH3ChecksumWithLastByte(data, lastByte)
	case TypeNoChecksum:
		return 0
	default:
		// For unsupported types, return 0
		return 0
	}
}
