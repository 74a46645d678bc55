// Package info implements persistence for pgBackRest's ini-based
// metadata files: backup.info, archive.info, and a backup's manifest,
// each stored alongside a ".copy" shadow for crash recovery (§3, §4.6).
package info

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/aalhour/pgbackrest-go/internal/config"
	"github.com/aalhour/pgbackrest-go/internal/errkind"
	"github.com/aalhour/pgbackrest-go/internal/storage"
)

// FormatVersion is the current info-file format integer written to
// [backrest] format (§3).
const FormatVersion = 5

const (
	sectionBackrest = "backrest"
	keyFormat       = "format"
	keyChecksum     = "checksum"
	keyVersion      = "pgbackrest-version"
)

// ModuleVersion is the value written to [backrest] pgbackrest-version —
// this module doesn't track a PostgreSQL release cadence, so it is a
// fixed string rather than a build-time variable.
const ModuleVersion = "1.0"

// Checksum computes the SHA-256 hex digest §4.6 stores in
// [backrest] checksum: the ini rendered in sorted-section/sorted-key
// order with the checksum key itself omitted (it can't hash over its own
// value).
func Checksum(ini *config.Ini) (string, error) {
	clone := ini.Clone()
	clone.DeleteKey(sectionBackrest, keyChecksum)

	var buf bytes.Buffer
	if err := config.RenderIni(&buf, clone); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// Save renders ini with a fresh format/checksum header and atomic-writes
// it to both name and name+".copy" (§4.6). A failure partway through
// (e.g. a crash between the two writes) is recovered by Load falling
// through to the copy.
func Save(ctx context.Context, store storage.Interface, name string, ini *config.Ini) error {
	ini.Set(sectionBackrest, keyFormat, strconv.Itoa(FormatVersion))
	ini.Set(sectionBackrest, keyVersion, ModuleVersion)

	checksum, err := Checksum(ini)
	if err != nil {
		return err
	}
	ini.Set(sectionBackrest, keyChecksum, checksum)

	var buf bytes.Buffer
	if err := config.RenderIni(&buf, ini); err != nil {
		return err
	}
	data := buf.Bytes()

	for _, name := range []string{name, name + ".copy"} {
		if err := writeAtomic(ctx, store, name, data); err != nil {
			return errkind.New(errkind.FileWriteError, "write %s: %v", name, err)
		}
	}
	return nil
}

func writeAtomic(ctx context.Context, store storage.Interface, name string, data []byte) error {
	w, err := store.NewWrite(ctx, name, storage.WriteOptions{Atomic: true})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Load reads name, validating format and checksum; on any failure
// (missing, malformed, format mismatch, checksum mismatch) it falls
// through to name+".copy" and retries once, erroring only if both fail
// (§4.6). ignoreMissing suppresses the final error when neither file
// exists, returning a nil *config.Ini instead.
func Load(ctx context.Context, store storage.Interface, name string, ignoreMissing bool) (*config.Ini, error) {
	ini, primaryErr := loadValidate(ctx, store, name)
	if primaryErr == nil {
		return ini, nil
	}

	ini, copyErr := loadValidate(ctx, store, name+".copy")
	if copyErr == nil {
		return ini, nil
	}

	if ignoreMissing {
		return nil, nil
	}
	return nil, errkind.New(errkind.FileMissingError,
		"unable to load info file '%s' or its copy: %v / %v", name, primaryErr, copyErr)
}

func loadValidate(ctx context.Context, store storage.Interface, name string) (*config.Ini, error) {
	r, err := store.NewRead(ctx, name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	ini, err := config.ParseIni(bytes.NewReader(data))
	if err != nil {
		return nil, errkind.New(errkind.FormatError, "parse %s: %v", name, err)
	}

	formatStr, ok := ini.Get(sectionBackrest, keyFormat)
	if !ok {
		return nil, errkind.New(errkind.FormatError, "%s: missing [backrest] format", name)
	}
	format, err := strconv.Atoi(formatStr)
	if err != nil || format != FormatVersion {
		return nil, errkind.New(errkind.FormatError, "%s: unsupported format %q", name, formatStr)
	}

	wantChecksum, ok := ini.Get(sectionBackrest, keyChecksum)
	if !ok {
		return nil, errkind.New(errkind.FormatError, "%s: missing [backrest] checksum", name)
	}
	gotChecksum, err := Checksum(ini)
	if err != nil {
		return nil, err
	}
	if gotChecksum != wantChecksum {
		return nil, errkind.New(errkind.FormatError, "%s: checksum mismatch", name)
	}

	return ini, nil
}
