package blockdelta

import (
	"bytes"
	"testing"

	"github.com/aalhour/pgbackrest-go/internal/cipher"
)

func TestEngineExtractReadPlain(t *testing.T) {
	// One super block of two 4-byte blocks, no cipher/compression; only
	// block 1 is needed.
	content := []byte("AAAABBBB")
	read := Read{
		Reference: 1,
		Offset:    0,
		Size:      int64(len(content)),
		SuperBlocks: []SuperBlock{
			{
				SuperBlockSize: 8,
				Size:           8,
				Blocks: []BlockNeed{
					{No: 1, DestOffset: 40},
				},
			},
		},
	}

	e := NewEngine(4)
	var got []WriteRequest
	err := e.ExtractRead(bytes.NewReader(content), read, func(wr WriteRequest) error {
		got = append(got, wr)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractRead: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 write request, got %d", len(got))
	}
	if got[0].DestOffset != 40 || string(got[0].Block) != "BBBB" {
		t.Fatalf("unexpected write request: %+v", got[0])
	}
}

func TestEngineExtractReadShortFinalBlock(t *testing.T) {
	// Boundary: super_block_size not a multiple of block_size yields
	// ceil(size/blockSize) blocks, the last shorter than block_size, and
	// the engine must not read past the super block.
	content := []byte("AAAABBBBCC")
	read := Read{
		Reference: 1,
		Offset:    0,
		Size:      int64(len(content)),
		SuperBlocks: []SuperBlock{
			{
				SuperBlockSize: 10,
				Size:           10,
				Blocks: []BlockNeed{
					{No: 0, DestOffset: 0},
					{No: 1, DestOffset: 4},
					{No: 2, DestOffset: 8},
				},
			},
		},
	}

	e := NewEngine(4)
	var got []WriteRequest
	err := e.ExtractRead(bytes.NewReader(content), read, func(wr WriteRequest) error {
		got = append(got, wr)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractRead: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 write requests, got %d", len(got))
	}
	if string(got[2].Block) != "CC" {
		t.Fatalf("expected last block to be short (\"CC\"), got %q", got[2].Block)
	}
}

func TestEngineExtractReadMultipleSuperBlocks(t *testing.T) {
	content := []byte("AAAABBBB")
	read := Read{
		Reference: 1,
		Offset:    0,
		Size:      int64(len(content)),
		SuperBlocks: []SuperBlock{
			{SuperBlockSize: 4, Size: 4, Blocks: []BlockNeed{{No: 0, DestOffset: 0}}},
			{SuperBlockSize: 4, Size: 4, Blocks: []BlockNeed{{No: 0, DestOffset: 4}}},
		},
	}

	e := NewEngine(4)
	var got []WriteRequest
	err := e.ExtractRead(bytes.NewReader(content), read, func(wr WriteRequest) error {
		got = append(got, wr)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractRead: %v", err)
	}
	if len(got) != 2 || string(got[0].Block) != "AAAA" || string(got[1].Block) != "BBBB" {
		t.Fatalf("unexpected write requests: %+v", got)
	}
}

func TestEngineExtractReadCipher(t *testing.T) {
	plaintext := []byte("0123456789ABCDEF")
	passphrase := []byte("correct horse battery staple")
	salt := []byte("saltsalt")

	ciphertext, err := cipher.EncryptRaw(passphrase, salt, plaintext)
	if err != nil {
		t.Fatalf("EncryptRaw: %v", err)
	}

	read := Read{
		Reference: 1,
		Offset:    0,
		Size:      int64(len(ciphertext)),
		SuperBlocks: []SuperBlock{
			{
				SuperBlockSize: int64(len(plaintext)),
				Size:           int64(len(ciphertext)),
				Salt:           salt,
				Blocks: []BlockNeed{
					{No: 0, DestOffset: 0},
					{No: 3, DestOffset: 300},
				},
			},
		},
	}

	e := NewEngine(4, WithCipher(passphrase))
	var got []WriteRequest
	err = e.ExtractRead(bytes.NewReader(ciphertext), read, func(wr WriteRequest) error {
		got = append(got, wr)
		return nil
	})
	if err != nil {
		t.Fatalf("ExtractRead: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 write requests, got %d", len(got))
	}
	if string(got[0].Block) != "0123" || string(got[1].Block) != "CDEF" {
		t.Fatalf("unexpected decrypted blocks: %q %q", got[0].Block, got[1].Block)
	}
}

func TestEngineExtractReadMissingNeedErrors(t *testing.T) {
	content := []byte("AAAA")
	read := Read{
		Reference: 1,
		Offset:    0,
		Size:      4,
		SuperBlocks: []SuperBlock{
			{
				SuperBlockSize: 8, // claims two blocks, source only has one
				Size:           4,
				Blocks: []BlockNeed{
					{No: 0, DestOffset: 0},
					{No: 1, DestOffset: 4},
				},
			},
		},
	}

	e := NewEngine(4)
	err := e.ExtractRead(bytes.NewReader(content), read, func(WriteRequest) error { return nil })
	if err == nil {
		t.Fatalf("expected error reading past a short source, got nil")
	}
}
