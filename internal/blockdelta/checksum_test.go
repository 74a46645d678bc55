package blockdelta

import (
	"bytes"
	"testing"

	"github.com/aalhour/pgbackrest-go/internal/checksum"
	"github.com/aalhour/pgbackrest-go/internal/compression"
)

func TestBuildBlockMapNoChangeYieldsEmptyPlan(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")

	items, _, err := BuildBlockMap(data, 8, checksum.TypeCRC32C, 1, compression.None, nil, false)
	if err != nil {
		t.Fatalf("BuildBlockMap: %v", err)
	}

	existing, err := ExistingChecksums(bytes.NewReader(data), 8, checksum.TypeCRC32C)
	if err != nil {
		t.Fatalf("ExistingChecksums: %v", err)
	}

	plan, err := BuildPlan(items, 8, BlockChecksumSize, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 0 {
		t.Fatalf("expected zero reads for an unchanged file, got %d", len(plan.Reads))
	}
}

func TestExistingChecksumsDetectsSingleBlockChange(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx") // 3 blocks of 8 bytes

	items, _, err := BuildBlockMap(data, 8, checksum.TypeCRC32C, 1, compression.None, nil, false)
	if err != nil {
		t.Fatalf("BuildBlockMap: %v", err)
	}

	modified := append([]byte(nil), data...)
	modified[10] = 'Z' // falls in block index 1 ([8:16))

	existing, err := ExistingChecksums(bytes.NewReader(modified), 8, checksum.TypeCRC32C)
	if err != nil {
		t.Fatalf("ExistingChecksums: %v", err)
	}

	plan, err := BuildPlan(items, 8, BlockChecksumSize, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Reads) != 1 || len(plan.Reads[0].SuperBlocks) != 1 {
		t.Fatalf("expected exactly one needed block, got %+v", plan)
	}
	if got := plan.Reads[0].SuperBlocks[0].Blocks[0].DestOffset; got != 8 {
		t.Fatalf("expected dest offset 8 (block index 1), got %d", got)
	}
}

func TestExistingChecksumsEmptyReaderNeedsEveryBlock(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")

	items, _, err := BuildBlockMap(data, 8, checksum.TypeXXH3, 1, compression.None, nil, false)
	if err != nil {
		t.Fatalf("BuildBlockMap: %v", err)
	}

	existing, err := ExistingChecksums(bytes.NewReader(nil), 8, checksum.TypeXXH3)
	if err != nil {
		t.Fatalf("ExistingChecksums: %v", err)
	}
	if len(existing) != 0 {
		t.Fatalf("expected empty existing buffer for an empty reader, got %d bytes", len(existing))
	}

	plan, err := BuildPlan(items, 8, BlockChecksumSize, existing)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	needed := 0
	for _, r := range plan.Reads {
		for _, sb := range r.SuperBlocks {
			needed += len(sb.Blocks)
		}
	}
	if needed != len(items) {
		t.Fatalf("expected every block needed, got %d of %d", needed, len(items))
	}
}
