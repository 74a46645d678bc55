// XXH3 implementation based on the xxHash specification.
// Reference: https://github.com/Cyan4973/xxHash/blob/dev/doc/xxhash_spec.md
//
// Note: this hand-rolled implementation is used for the fixed-seed,
// last-byte-folded form block checksums need (ComputeChecksum, used by
// internal/blockdelta to compare a block-map entry against an existing
// on-disk block); NewStreamHash in stream.go wraps the third-party
// zeebo/xxh3 package for the general-purpose streaming hash filter
// instead.

package checksum

import (
	"encoding/binary"
)

// XXH3 constants (from xxhash spec)
const (
	xxh3Prime64_1 = 0x9E3779B185EBCA87
	xxh3Prime64_2 = 0xC2B2AE3D27D4EB4F
	xxh3Prime64_3 = 0x165667B19E3779F9
	xxh3Prime64_4 = 0x85EBCA77C2B2AE63
	xxh3Prime64_5 = 0x27D4EB2F165667C5

	xxh3SecretDefaultSize = 192
)

// XXH3 secret key (default)
var xxh3Secret = [xxh3SecretDefaultSize]byte{
	0xb8, 0xfe, 0x6c, 0x39, 0x23, 0xa4, 0x4b, 0xbe, 0x7c, 0x01, 0x81, 0x2c, 0xf7, 0x21, 0xad, 0x1c,
	0xde, 0xd4, 0x6d, 0xe9, 0x83, 0x90, 0x97, 0xdb, 0x72, 0x40, 0xa4, 0xa4, 0xb7, 0xb3, 0x67, 0x1f,
	0xcb, 0x79, 0xe6, 0x4e, 0xcc, 0xc0, 0xe5, 0x78, 0x82, 0x5a, 0xd0, 0x7d, 0xcc, 0xff, 0x72, 0x21,
	0xb8, 0x08, 0x46, 0x74, 0xf7, 0x43, 0x24, 0x8e, 0xe0, 0x35, 0x90, 0xe6, 0x81, 0x3a, 0x26, 0x4c,
	0x3c, 0x28, 0x52, 0xbb, 0x91, 0xc3, 0x00, 0xcb, 0x88, 0xd0, 0x65, 0x8b, 0x1b, 0x53, 0x2e, 0xa3,
	0x71, 0x64, 0x48, 0x97, 0xa2, 0x0d, 0xf9, 0x4e, 0x38, 0x19, 0xef, 0x46, 0xa9, 0xde, 0xac, 0xd8,
	0xa8, 0xfa, 0x76, 0x3f, 0xe3, 0x9c, 0x34, 0x3f, 0xf9, 0xdc, 0xbb, 0xc7, 0xc7, 0x0b, 0x4f, 0x1d,
	0x8a, 0x51, 0xe0, 0x4b, 0xcd, 0xb4, 0x59, 0x31, 0xc8, 0x9f, 0x7e, 0xc9, 0xd9, 0x78, 0x73, 0x64,
	0xea, 0xc5, 0xac, 0x83, 0x34, 0xd3, 0xeb, 0xc3, 0xc5, 0x81, 0xa0, 0xff, 0xfa, 0x13, 0x63, 0xeb,
	0x17, 0x0d, 0xdd, 0x51, 0xb7, 0xf0, 0xda, 0x49, 0xd3, 0x16, 0xca, 0xca, 0x8f, 0xa5, 0xe1, 0x6b,
	0xc5, 0xdd, 0xb4, 0x10, 0xbc, 0x99, 0x99, 0x2c, 0xf7, 0x55, 0x16, 0x23, 0x2c, 0xa2, 0x41, 0x4c,
	0x94, 0x22, 0xa6, 0xd2, 0x26, 0x7f, 0x0d, 0x87, 0x9e, 0x7a, 0xf3, 0x29, 0x1a, 0xa3, 0xf6, 0x93,
}

// XXH3_64bits computes the 64-bit XXH3 hash of data.
func XXH3_64bits(data []byte) uint64 {
	length := len(data)

	if length == 0 {
		return xxh3Avalanche(xxh3Prime64_1 ^ xxh3Prime64_2 ^ xxh3Prime64_3)
	}

	if length <= 3 {
		return xxh3Len1to3(data)
	}
	if length <= 8 {
		return xxh3Len4to8(data)
	}
	if length <= 16 {
		return xxh3Len9to16(data)
	}
	if length <= 128 {
		return xxh3Len17to128(data)
	}
	if length <= 240 {
		return xxh3Len129to240(data)
	}
	return xxh3Long(data)
}

func xxh3Avalanche(h uint64) uint64 {
	h ^= h >> 37
	h *= 0x165667919E3779F9
	h ^= h >> 32
	return h
}

func xxh3Len1to3(data []byte) uint64 {
	c1 := uint64(data[0])
	c2 := uint64(data[len(data)>>1])
	c3 := uint64(data[len(data)-1])
	combined := c1<<16 | c2<<24 | c3 | uint64(len(data))<<8
	secret := binary.LittleEndian.Uint32(xxh3Secret[:4])
	return xxh3Avalanche(combined ^ uint64(secret) ^ uint64(binary.LittleEndian.Uint32(xxh3Secret[4:8])))
}

func xxh3Len4to8(data []byte) uint64 {
	input1 := uint64(binary.LittleEndian.Uint32(data[:4]))
	input2 := uint64(binary.LittleEndian.Uint32(data[len(data)-4:]))
	combined := input1 | input2<<32
	secret := binary.LittleEndian.Uint64(xxh3Secret[8:16])
	return xxh3rrmxmx(combined^secret, uint64(len(data)))
}

func xxh3rrmxmx(h uint64, length uint64) uint64 {
	h ^= rotl64(h, 49) ^ rotl64(h, 24)
	h *= 0x9FB21C651E98DF25
	h ^= (h >> 35) + length
	h *= 0x9FB21C651E98DF25
	h ^= h >> 28
	return h
}

func xxh3Len9to16(data []byte) uint64 {
	input1 := binary.LittleEndian.Uint64(data[:8])
	input2 := binary.LittleEndian.Uint64(data[len(data)-8:])
	secret1 := binary.LittleEndian.Uint64(xxh3Secret[24:32])
	secret2 := binary.LittleEndian.Uint64(xxh3Secret[32:40])
	low := input1 ^ secret1
	high := input2 ^ secret2
	acc := uint64(len(data)) + swap64(low) + high + mul128fold64(low, high)
	return xxh3Avalanche(acc)
}

func xxh3Len17to128(data []byte) uint64 {
	length := len(data)
	acc := uint64(length) * xxh3Prime64_1
	if length > 32 {
		if length > 64 {
			if length > 96 {
				acc += xxh3Mix16B(data[48:], xxh3Secret[96:])
				acc += xxh3Mix16B(data[length-64:], xxh3Secret[112:])
			}
			acc += xxh3Mix16B(data[32:], xxh3Secret[64:])
			acc += xxh3Mix16B(data[length-48:], xxh3Secret[80:])
		}
		acc += xxh3Mix16B(data[16:], xxh3Secret[32:])
		acc += xxh3Mix16B(data[length-32:], xxh3Secret[48:])
	}
	acc += xxh3Mix16B(data[:16], xxh3Secret[0:])
	acc += xxh3Mix16B(data[length-16:], xxh3Secret[16:])
	return xxh3Avalanche(acc)
}

func xxh3Len129to240(data []byte) uint64 {
	length := len(data)
	acc := uint64(length) * xxh3Prime64_1
	nbRounds := length / 16
	for i := range 8 {
		acc += xxh3Mix16B(data[i*16:], xxh3Secret[i*16:])
	}
	acc = xxh3Avalanche(acc)
	for i := 8; i < nbRounds; i++ {
		acc += xxh3Mix16B(data[i*16:], xxh3Secret[(i-8)*16+3:])
	}
	acc += xxh3Mix16B(data[length-16:], xxh3Secret[136-17:])
	return xxh3Avalanche(acc)
}

func xxh3Long(data []byte) uint64 {
	// Simplified long input handling - uses accumulator approach
	// This is a simplified version for typical block sizes
	length := len(data)

	// Initialize accumulators
	acc := [8]uint64{
		xxh3Prime64_3, xxh3Prime64_1, xxh3Prime64_2, xxh3Prime64_3,
		xxh3Prime64_2, xxh3Prime64_1, xxh3Prime64_3, xxh3Prime64_1,
	}

	// Process 64-byte stripes
	stripeLen := 64
	nbStripes := (length - 1) / stripeLen
	for i := range nbStripes {
		stripe := data[i*stripeLen:]
		for j := range 8 {
			dataVal := binary.LittleEndian.Uint64(stripe[j*8:])
			secretVal := binary.LittleEndian.Uint64(xxh3Secret[j*8:])
			acc[j] += dataVal ^ secretVal
			acc[j] += (acc[j] & 0xFFFFFFFF) * (acc[j] >> 32)
		}
	}

	// Process remaining bytes
	lastStripe := data[length-64:]
	for j := range 8 {
		dataVal := binary.LittleEndian.Uint64(lastStripe[j*8:])
		secretVal := binary.LittleEndian.Uint64(xxh3Secret[128-64+j*8:])
		acc[j] += dataVal ^ secretVal
		acc[j] += (acc[j] & 0xFFFFFFFF) * (acc[j] >> 32)
	}

	// Merge accumulators
	result := uint64(length) * xxh3Prime64_1
	for i := range 4 {
		result += mul128fold64(
			acc[i*2]^binary.LittleEndian.Uint64(xxh3Secret[i*16+11:]),
			acc[i*2+1]^binary.LittleEndian.Uint64(xxh3Secret[i*16+11+8:]),
		)
	}
	return xxh3Avalanche(result)
}

func xxh3Mix16B(data []byte, secret []byte) uint64 {
	input1 := binary.LittleEndian.Uint64(data[:8])
	input2 := binary.LittleEndian.Uint64(data[8:16])
	secret1 := binary.LittleEndian.Uint64(secret[:8])
	secret2 := binary.LittleEndian.Uint64(secret[8:16])
	return mul128fold64(input1^secret1, input2^secret2)
}

func mul128fold64(a, b uint64) uint64 {
	// 64x64 -> 128 bit multiply, folded to 64 bits
	hi, lo := mul64(a, b)
	return hi ^ lo
}

func mul64(a, b uint64) (hi, lo uint64) {
	// Implementation of 64-bit multiply returning 128-bit result
	aLo := a & 0xFFFFFFFF
	aHi := a >> 32
	bLo := b & 0xFFFFFFFF
	bHi := b >> 32

	t0 := aLo * bLo
	t1 := aHi * bLo
	t2 := aLo * bHi
	t3 := aHi * bHi

	t1 += t0 >> 32
	t1 += t2
	if t1 < t2 {
		t3 += 1 << 32
	}

	lo = (t1 << 32) | (t0 & 0xFFFFFFFF)
	hi = t3 + (t1 >> 32)
	return
}

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func swap64(x uint64) uint64 {
	return ((x & 0x00000000FFFFFFFF) << 32) | ((x & 0xFFFFFFFF00000000) >> 32)
}

// XXH3Checksum computes the XXH3 checksum for a block of data.
// The checksum is computed over all bytes except the last, then modified
// by the last byte using a special formula.
func XXH3Checksum(data []byte) uint32 {
	if len(data) == 0 {
		return 0
	}

	// Compute XXH3 over all bytes except last
	h := XXH3_64bits(data[:len(data)-1])
	v := uint32(h) // Lower 32 bits

	// Modify checksum for last byte
	lastByte := data[len(data)-1]
	const kRandomPrime = 0x6b9083d9
	return v ^ (uint32(lastByte) * kRandomPrime)
}

// XXH3ChecksumWithLastByte computes XXH3 checksum with a separate last byte.
// This is used when the last byte (compression type) is not in the data buffer.
func XXH3ChecksumWithLastByte(data []byte, lastByte byte) uint32 {
	// Compute XXH3 over all data
	h := XXH3_64bits(data)
	v := uint32(h) // Lower 32 bits

	// Modify checksum for last byte
	const kRandomPrime = 0x6b9083d9
	return v ^ (uint32(lastByte) * kRandomPrime)
}
