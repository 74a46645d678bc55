package blockdelta

import "testing"

func TestBuildPlanTrivialNoChange(t *testing.T) {
	// S3: one block, matching checksum -> empty plan.
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 16, SuperBlockSize: 8, Reference: 1, Checksum: []byte("AAAA")},
	}
	existing := []byte("AAAA")

	plan, err := BuildPlan(blockMap, 8, 4, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 0 {
		t.Fatalf("expected zero reads, got %d", len(plan.Reads))
	}
}

func TestBuildPlanSingleChange(t *testing.T) {
	// S4: one block, mismatched checksum -> one read, one super block,
	// one block-need at dest_offset 0.
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 16, SuperBlockSize: 8, Reference: 1, Checksum: []byte("AAAA")},
	}
	existing := []byte("BBBB")

	plan, err := BuildPlan(blockMap, 8, 4, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 1 {
		t.Fatalf("expected one read, got %d", len(plan.Reads))
	}
	read := plan.Reads[0]
	if read.Reference != 1 || read.Offset != 0 || read.Size != 16 {
		t.Fatalf("unexpected read: %+v", read)
	}
	if len(read.SuperBlocks) != 1 {
		t.Fatalf("expected one super block, got %d", len(read.SuperBlocks))
	}
	sb := read.SuperBlocks[0]
	if len(sb.Blocks) != 1 || sb.Blocks[0].No != 0 || sb.Blocks[0].DestOffset != 0 {
		t.Fatalf("unexpected super block: %+v", sb)
	}
}

func TestBuildPlanEmptyExistingNeedsEveryBlock(t *testing.T) {
	// Invariant 3: restore with empty E -> every index appears in exactly
	// one write request.
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("AAAA")},
		{No: 1, Offset: 8, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("BBBB")},
		{No: 2, Offset: 16, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("CCCC")},
	}

	plan, err := BuildPlan(blockMap, 8, 4, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	seen := map[int64]bool{}
	for _, read := range plan.Reads {
		for _, sb := range read.SuperBlocks {
			for _, b := range sb.Blocks {
				if seen[b.DestOffset] {
					t.Fatalf("dest_offset %d emitted twice", b.DestOffset)
				}
				seen[b.DestOffset] = true
			}
		}
	}
	for i := range blockMap {
		if !seen[int64(i)*8] {
			t.Fatalf("block %d never appears in a write request", i)
		}
	}
}

func TestBuildPlanByteExactExistingYieldsNoWrites(t *testing.T) {
	// Invariant 4: E is a byte-exact image -> zero write requests.
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("AAAA")},
		{No: 1, Offset: 8, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("BBBB")},
	}
	existing := append(append([]byte{}, "AAAA"...), "BBBB"...)

	plan, err := BuildPlan(blockMap, 8, 4, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 0 {
		t.Fatalf("expected zero reads, got %d", len(plan.Reads))
	}
}

func TestBuildPlanContiguousOffsetsShareARead(t *testing.T) {
	// Two super blocks back to back in the same reference should collapse
	// into one Read with two super blocks, not two Reads.
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 5, Checksum: []byte("0000")},
		{No: 0, Offset: 8, Size: 8, SuperBlockSize: 8, Reference: 5, Checksum: []byte("0000")},
	}

	plan, err := BuildPlan(blockMap, 8, 4, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 1 {
		t.Fatalf("expected one read, got %d", len(plan.Reads))
	}
	if len(plan.Reads[0].SuperBlocks) != 2 {
		t.Fatalf("expected two super blocks, got %d", len(plan.Reads[0].SuperBlocks))
	}
	if plan.Reads[0].Size != 16 {
		t.Fatalf("expected read size 16, got %d", plan.Reads[0].Size)
	}
}

func TestBuildPlanNonContiguousOffsetsStartNewRead(t *testing.T) {
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 5, Checksum: []byte("0000")},
		{No: 0, Offset: 100, Size: 8, SuperBlockSize: 8, Reference: 5, Checksum: []byte("0000")},
	}

	plan, err := BuildPlan(blockMap, 8, 4, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 2 {
		t.Fatalf("expected two reads, got %d", len(plan.Reads))
	}
}

func TestBuildPlanReferencesDescendingOrder(t *testing.T) {
	blockMap := []BlockMapItem{
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 1, Checksum: []byte("0000")},
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 3, Checksum: []byte("0000")},
		{No: 0, Offset: 0, Size: 8, SuperBlockSize: 8, Reference: 2, Checksum: []byte("0000")},
	}

	plan, err := BuildPlan(blockMap, 8, 4, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 3 {
		t.Fatalf("expected three reads, got %d", len(plan.Reads))
	}
	var refs []int64
	for _, r := range plan.Reads {
		refs = append(refs, r.Reference)
	}
	want := []int64{3, 2, 1}
	for i, r := range want {
		if refs[i] != r {
			t.Fatalf("reference order = %v, want descending %v", refs, want)
		}
	}
}
