package blockdelta

import (
	"fmt"

	"github.com/aalhour/pgbackrest-go/internal/encoding"
	"github.com/aalhour/pgbackrest-go/internal/errkind"
)

// EncodeBlockMap renders a file's block-map as the length-prefixed
// protocol frame spec §2 describes: a varint64 entry count followed by
// each BlockMapItem's fields in declaration order, variable-width
// integers wherever the value can be large (offsets, sizes, reference
// ids) and length-prefixed slices for Checksum/Salt. This is the wire
// form a manifest or block-map sidecar file persists between backup and
// restore, since Plan/SuperBlock are rebuilt from it rather than
// recomputed from the source file on every restore.
func EncodeBlockMap(items []BlockMapItem) []byte {
	dst := encoding.AppendVarint64(nil, uint64(len(items)))
	for _, it := range items {
		dst = encoding.AppendVarint64(dst, uint64(it.No))
		dst = encoding.AppendVarint64(dst, uint64(it.Offset))
		dst = encoding.AppendVarint64(dst, uint64(it.Size))
		dst = encoding.AppendVarint64(dst, uint64(it.SuperBlockSize))
		dst = encoding.AppendVarint64(dst, uint64(it.Reference))
		dst = encoding.AppendVarint64(dst, uint64(it.BundleID))
		dst = encoding.AppendLengthPrefixedSlice(dst, it.Checksum)
		dst = encoding.AppendLengthPrefixedSlice(dst, it.Salt)
	}
	return dst
}

// DecodeBlockMap parses a frame produced by EncodeBlockMap. Checksum and
// Salt point into src rather than being copied, matching
// encoding.Slice.GetLengthPrefixedSlice's zero-copy contract — callers
// that retain an item past src's lifetime must copy those fields
// themselves.
func DecodeBlockMap(src []byte) ([]BlockMapItem, error) {
	s := encoding.NewSlice(src)

	count, ok := s.GetVarint64()
	if !ok {
		return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: truncated entry count")
	}

	items := make([]BlockMapItem, 0, count)
	for i := uint64(0); i < count; i++ {
		no, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated no", i)
		}
		offset, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated offset", i)
		}
		size, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated size", i)
		}
		superBlockSize, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated super-block size", i)
		}
		reference, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated reference", i)
		}
		bundleID, ok := s.GetVarint64()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated bundle id", i)
		}
		checksum, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated checksum", i)
		}
		salt, ok := s.GetLengthPrefixedSlice()
		if !ok {
			return nil, errkind.New(errkind.FormatError, "blockdelta: block-map: entry %d: truncated salt", i)
		}

		items = append(items, BlockMapItem{
			No:             int64(no),
			Offset:         int64(offset),
			Size:           int64(size),
			SuperBlockSize: int64(superBlockSize),
			Reference:      int64(reference),
			BundleID:       int64(bundleID),
			Checksum:       checksum,
			Salt:           salt,
		})
	}

	if s.Remaining() != 0 {
		return nil, fmt.Errorf("blockdelta: block-map: %d trailing bytes after %d entries", s.Remaining(), count)
	}
	return items, nil
}
