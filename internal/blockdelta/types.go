// Package blockdelta implements the block-incremental delta engine: given
// a new file's block-map and a checksum list for an existing on-disk copy,
// it computes the minimal set of repository reads needed to restore the
// file and streams back only the blocks that changed.
package blockdelta

// BlockMapItem is one entry in a file's block-map, in new-file order. No
// is the block's position within its own super block (reset to 0 at the
// start of each super block, per §3's "ascending no" invariant); the
// block's position in the restored file is its index in the enclosing
// slice, not this field.
//
// Salt is not named in the data model's prose but is required by §4.5's
// raw cipher mode, which stores the salt "alongside the block-map" rather
// than in a frame header; it is carried here per super block.
type BlockMapItem struct {
	No             int64
	Offset         int64
	Size           int64
	SuperBlockSize int64
	Reference      int64
	BundleID       int64
	Checksum       []byte
	Salt           []byte
}

// BlockNeed is one block that must be delivered: its position inside its
// super block, the byte offset in the destination file it is written to,
// and the checksum it is expected to match (carried through for callers
// that want to re-verify after decode).
type BlockNeed struct {
	No         int64
	DestOffset int64
	Checksum   []byte
}

// SuperBlock is one framed codec unit inside a Read: the logical
// (decoded) size, the physical (on-the-wire) size, the salt for raw
// cipher mode, and the ordered list of blocks inside it that must be
// extracted.
type SuperBlock struct {
	SuperBlockSize int64
	Size           int64
	Salt           []byte
	Blocks         []BlockNeed
}

// Read is one contiguous byte range request against a single reference
// generation. Super blocks within a Read are in physical offset order.
type Read struct {
	Reference   int64
	BundleID    int64
	Offset      int64
	Size        int64
	SuperBlocks []SuperBlock
}

// Plan is the full set of reads needed to restore a file, built by
// BuildPlan from a block-map and an existing-file checksum buffer.
type Plan struct {
	Reads []Read
}

// WriteRequest is one block's worth of restored bytes, ready to be
// written at DestOffset in the file being restored.
type WriteRequest struct {
	DestOffset int64
	Block      []byte
}
