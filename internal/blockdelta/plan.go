package blockdelta

import "sort"

// needed pairs a block-map item with the destination offset computed from
// its position in the new file (the index in the block-map slice, per
// §3's "its index is the block's position in the new file").
type needed struct {
	item       BlockMapItem
	destOffset int64
}

// BuildPlan walks blockMap in order and determines which blocks must be
// fetched from the repository: a block is needed when its index is beyond
// the existing checksum list, or its stored checksum differs from the
// existing checksum at the same index (§4.3, invariant 2 of §8).
//
// blockSize is the fixed per-block size used to compute dest_offset;
// checksumSize is the fixed width of each entry in existing, a flat
// concatenation of one checksum per existing block in file order.
func BuildPlan(blockMap []BlockMapItem, blockSize int64, checksumSize int, existing []byte) (*Plan, error) {
	existingCount := 0
	if checksumSize > 0 {
		existingCount = len(existing) / checksumSize
	}

	var needs []needed
	for i, item := range blockMap {
		isNeeded := i >= existingCount
		if !isNeeded {
			start := i * checksumSize
			existingSum := existing[start : start+checksumSize]
			isNeeded = !bytesEqual(existingSum, item.Checksum)
		}
		if isNeeded {
			needs = append(needs, needed{item: item, destOffset: int64(i) * blockSize})
		}
	}

	return buildPlanFromNeeds(needs), nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildPlanFromNeeds groups needed blocks first by reference (visited
// descending by numeric id, an arbitrary but deterministic order per
// §4.3), then within a reference by contiguous physical offset, then
// within a contiguous run by distinct offset (one super block per
// offset).
func buildPlanFromNeeds(needs []needed) *Plan {
	byReference := make(map[int64][]needed)
	var referenceOrder []int64
	for _, n := range needs {
		ref := n.item.Reference
		if _, ok := byReference[ref]; !ok {
			referenceOrder = append(referenceOrder, ref)
		}
		byReference[ref] = append(byReference[ref], n)
	}

	sort.Slice(referenceOrder, func(i, j int) bool { return referenceOrder[i] > referenceOrder[j] })

	plan := &Plan{}
	for _, ref := range referenceOrder {
		plan.Reads = append(plan.Reads, buildReadsForReference(byReference[ref])...)
	}
	return plan
}

func buildReadsForReference(needs []needed) []Read {
	var reads []Read

	var curRead *Read
	var curSuper *SuperBlock
	var curSuperOffset int64
	var prior *BlockMapItem

	flushSuper := func() {
		if curRead != nil && curSuper != nil {
			curRead.SuperBlocks = append(curRead.SuperBlocks, *curSuper)
			curSuper = nil
		}
	}
	flushRead := func() {
		flushSuper()
		if curRead != nil {
			reads = append(reads, *curRead)
			curRead = nil
		}
	}

	for i := range needs {
		item := needs[i].item

		contiguous := prior != nil && (prior.Offset+prior.Size == item.Offset || prior.Offset == item.Offset)
		sameReference := curRead != nil && curRead.Reference == item.Reference

		if curRead == nil || !sameReference || !contiguous {
			flushRead()
			curRead = &Read{Reference: item.Reference, BundleID: item.BundleID, Offset: item.Offset}
		}

		if curSuper == nil || curSuperOffset != item.Offset {
			flushSuper()
			curSuper = &SuperBlock{SuperBlockSize: item.SuperBlockSize, Size: item.Size, Salt: item.Salt}
			curSuperOffset = item.Offset
		}

		curSuper.Blocks = append(curSuper.Blocks, BlockNeed{
			No:         item.No,
			DestOffset: needs[i].destOffset,
			Checksum:   item.Checksum,
		})

		curRead.Size = item.Offset + item.Size - curRead.Offset
		prior = &needs[i].item
	}
	flushRead()

	return reads
}
