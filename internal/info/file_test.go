package info

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aalhour/pgbackrest-go/internal/config"
	"github.com/aalhour/pgbackrest-go/internal/storage/posix"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := posix.New(0)
	name := filepath.Join(t.TempDir(), "backup.info")

	ini := config.NewIni()
	ini.Set("backup", "label", "20260101-120000F")

	if err := Save(ctx, store, name, ini); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(ctx, store, name, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, ok := loaded.Get("backup", "label")
	if !ok || v != "20260101-120000F" {
		t.Fatalf("Get backup/label = %q, %v", v, ok)
	}
	format, _ := loaded.Get(sectionBackrest, keyFormat)
	if format != "5" {
		t.Fatalf("format = %q, want 5", format)
	}
}

func TestLoadFallsBackToCopyOnChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	store := posix.New(0)
	name := filepath.Join(t.TempDir(), "backup.info")

	ini := config.NewIni()
	ini.Set("backup", "label", "20260101-120000F")
	if err := Save(ctx, store, name, ini); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt the primary file's checksum but leave the copy intact.
	corrupt := config.NewIni()
	corrupt.Set("backup", "label", "tampered")
	corrupt.Set(sectionBackrest, keyFormat, "5")
	corrupt.Set(sectionBackrest, keyVersion, ModuleVersion)
	corrupt.Set(sectionBackrest, keyChecksum, "0000000000000000000000000000000000000000000000000000000000000000")
	if err := writeAtomic(ctx, store, name, renderOrPanic(t, corrupt)); err != nil {
		t.Fatalf("corrupt write: %v", err)
	}

	loaded, err := Load(ctx, store, name, false)
	if err != nil {
		t.Fatalf("Load should fall back to copy: %v", err)
	}
	v, _ := loaded.Get("backup", "label")
	if v != "20260101-120000F" {
		t.Fatalf("Get backup/label = %q, want value recovered from copy", v)
	}
}

func TestLoadBothMissingIgnoreMissing(t *testing.T) {
	ctx := context.Background()
	store := posix.New(0)
	name := filepath.Join(t.TempDir(), "backup.info")

	ini, err := Load(ctx, store, name, true)
	if err != nil {
		t.Fatalf("Load with ignoreMissing should not error: %v", err)
	}
	if ini != nil {
		t.Fatalf("Load with ignoreMissing and no files should return nil, got %+v", ini)
	}

	if _, err := Load(ctx, store, name, false); err == nil {
		t.Fatalf("Load without ignoreMissing should error when both files are missing")
	}
}

func renderOrPanic(t *testing.T, ini *config.Ini) []byte {
	t.Helper()
	var buf []byte
	w := &sliceWriter{buf: &buf}
	if err := config.RenderIni(w, ini); err != nil {
		t.Fatalf("RenderIni: %v", err)
	}
	return buf
}

type sliceWriter struct {
	buf *[]byte
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	*s.buf = append(*s.buf, p...)
	return len(p), nil
}
