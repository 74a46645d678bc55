// Package storage defines the repository storage abstraction every
// backend (posix, sftp, s3, azure) implements: list, read, write, and
// path lifecycle operations over a flat key space rooted at a base path.
package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// Feature is a bitset a backend advertises so callers can branch on
// capability instead of probing with a failing call.
type Feature uint32

const (
	// FeaturePathSync indicates the backend can fsync a directory after a
	// rename, the way a local posix filesystem needs to for durability.
	FeaturePathSync Feature = 1 << iota

	// FeatureAtomicWrite indicates NewWrite(..., atomic=true) is backed by
	// a real rename-into-place rather than a plain overwrite.
	FeatureAtomicWrite

	// FeatureMove indicates the backend can rename/move an object without
	// a copy+delete round trip.
	FeatureMove

	// FeatureHardLink indicates the backend supports hard links (posix
	// only; used for the resumable-backup optimization).
	FeatureHardLink

	// FeatureCompress indicates writes can be dual-purposed with a remote
	// compression negotiation (reserved; no backend here sets it).
	FeatureCompress
)

// Has reports whether f includes bit.
func (f Feature) Has(bit Feature) bool {
	return f&bit != 0
}

// Level selects how much work Info/List does to populate a result —
// cheaper probes skip stat/attribute calls the caller doesn't need
// (§3 "Storage info", §4.2's posix listing skipping lstat for
// exists-level calls).
type Level int

const (
	// LevelExists only confirms the path is there; only Exists and Name
	// are populated.
	LevelExists Level = iota

	// LevelType additionally populates Type.
	LevelType

	// LevelBasic additionally populates Size and TimeModified.
	LevelBasic

	// LevelDetail additionally populates Mode, User, Group, UserID,
	// GroupID, and LinkDestination — the fields that require a full
	// stat/attribute fetch.
	LevelDetail
)

// Type discriminates what kind of object Info describes (§3).
type Type int

const (
	TypeFile Type = iota
	TypePath
	TypeLink
	TypeSpecial
)

func (t Type) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypePath:
		return "path"
	case TypeLink:
		return "link"
	case TypeSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Info describes one entry returned by List or retrieved via Info. Which
// fields beyond Name/Exists are populated depends on the Level the call
// was made with (§3).
type Info struct {
	Name   string
	Exists bool
	Type   Type

	Size         int64
	TimeModified time.Time

	Mode            uint32
	User            string
	Group           string
	UserID          uint32
	GroupID         uint32
	LinkDestination string
}

// WriteOptions configures NewWrite.
type WriteOptions struct {
	// Atomic requests the backend write to a temporary name and rename
	// into place, so a reader never observes a partial file.
	Atomic bool

	// ModeFile is the permission bits to create the file with (posix
	// only; ignored by object-store backends).
	ModeFile uint32
}

// Interface is the storage driver contract. It is a plain Go interface —
// not a struct of function pointers — so each backend is just a type that
// satisfies it.
type Interface interface {
	// Info stats a single path at the given level. Returns
	// ErrNotExist-wrapping error if missing.
	Info(ctx context.Context, path string, level Level) (Info, error)

	// List returns the entries directly under path (non-recursive), each
	// populated to level.
	List(ctx context.Context, path string, level Level) ([]Info, error)

	// NewRead opens path for sequential reading.
	NewRead(ctx context.Context, path string) (io.ReadCloser, error)

	// NewWrite opens path for writing, per opts.
	NewWrite(ctx context.Context, path string, opts WriteOptions) (io.WriteCloser, error)

	// PathCreate creates path and any missing parents.
	PathCreate(ctx context.Context, path string) error

	// PathRemove removes path; if recursive, removes its contents too.
	PathRemove(ctx context.Context, path string, recursive bool) error

	// PathSync durably persists a directory's metadata (e.g. after a
	// rename into it). Backends without FeaturePathSync no-op.
	PathSync(ctx context.Context, path string) error

	// Move renames/moves src to dst within the same backend. sameFilesystem
	// reports whether the move completed; it is false, with no error, only
	// when a posix rename failed across devices and performed no work at
	// all — see MoveOrCopy. The s3 and azure backends move by copy+delete
	// and report true on success (§4.2, §8 boundary behaviors).
	Move(ctx context.Context, src, dst string) (sameFilesystem bool, err error)

	// Remove deletes a single file.
	Remove(ctx context.Context, path string) error

	// Features returns the backend's capability bitset.
	Features() Feature
}

// MoveOrCopy calls s.Move(src, dst); when the driver reports it could not
// complete an atomic same-device rename (sameFilesystem is false and no
// error occurred — the posix "cross-device rename" case), it falls
// back to a streaming copy-then-remove, the higher-layer behavior §8's
// boundary behaviors requires ("the higher layer falls back to copy").
func MoveOrCopy(ctx context.Context, s Interface, src, dst string) error {
	sameFilesystem, err := s.Move(ctx, src, dst)
	if err != nil {
		return err
	}
	if sameFilesystem {
		return nil
	}

	r, err := s.NewRead(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := s.NewWrite(ctx, dst, WriteOptions{Atomic: true})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return s.Remove(ctx, src)
}

// PathExpression expands a `<repo>/...`-style prefix into a concrete path
// rooted at base, the way backup-set and stanza locations are named
// without hard-coding repository layout.
type PathExpression struct {
	Base string
}

// NewPathExpression returns a PathExpression rooted at base.
func NewPathExpression(base string) PathExpression {
	return PathExpression{Base: strings.TrimRight(base, "/")}
}

// Expand resolves a `<repo>` (or bare relative) path against the base.
// `<repo>/archive/demo` becomes "<base>/archive/demo"; a path that
// already starts with "/" is returned unchanged (already absolute).
func (p PathExpression) Expand(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	path = strings.TrimPrefix(path, "<repo>/")
	path = strings.TrimPrefix(path, "<repo>")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return p.Base
	}
	return p.Base + "/" + path
}
