// Package posix implements storage.Interface over the local filesystem.
package posix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/aalhour/pgbackrest-go/internal/storage"
)

// Driver is a storage.Interface backed by os.* calls on paths used
// exactly as given. It carries no other state: every call goes straight to the
// filesystem, the same posture the teacher's osFS took for its FS
// interface.
type Driver struct {
	modeDir uint32
}

// New returns a Driver. modeDir is the permission bits PathCreate uses for
// new directories (0 defaults to 0750).
func New(modeDir uint32) *Driver {
	if modeDir == 0 {
		modeDir = 0750
	}
	return &Driver{modeDir: modeDir}
}

func (d *Driver) Features() storage.Feature {
	return storage.FeaturePathSync | storage.FeatureAtomicWrite | storage.FeatureMove | storage.FeatureHardLink
}

func (d *Driver) Info(_ context.Context, path string, level storage.Level) (storage.Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return storage.Info{}, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
		}
		return storage.Info{}, err
	}
	return infoFromFileInfo(filepath.Base(path), path, fi, level), nil
}

// List lists the entries directly under path. Entries that vanish between
// ReadDir and Lstat (a concurrent writer finishing a backup, say) are
// silently skipped rather than failing the whole listing. At
// storage.LevelExists, ReadDir's own confirmation that the entry is there
// is enough — the per-entry lstat this loop otherwise does is skipped
// entirely, per §4.2's "non-exists-level listings call lstat per entry"
// (implying exists-level ones don't).
func (d *Driver) List(_ context.Context, path string, level storage.Level) ([]storage.Info, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
		}
		return nil, err
	}

	out := make([]storage.Info, 0, len(entries))
	for _, e := range entries {
		if level == storage.LevelExists {
			out = append(out, storage.Info{Name: e.Name(), Exists: true})
			continue
		}

		full := filepath.Join(path, e.Name())
		fi, err := os.Lstat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, infoFromFileInfo(e.Name(), full, fi, level))
	}
	return out, nil
}

func (d *Driver) NewRead(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, path)
		}
		return nil, err
	}
	return f, nil
}

func (d *Driver) NewWrite(_ context.Context, path string, opts storage.WriteOptions) (io.WriteCloser, error) {
	mode := os.FileMode(opts.ModeFile)
	if mode == 0 {
		mode = 0640
	}

	if !opts.Atomic {
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	}

	tmp := path + ".pgbackrest.tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: f, tmp: tmp, final: path}, nil
}

func (d *Driver) PathCreate(_ context.Context, path string) error {
	return os.MkdirAll(path, os.FileMode(d.modeDir))
}

func (d *Driver) PathRemove(_ context.Context, path string, recursive bool) error {
	if recursive {
		return os.RemoveAll(path)
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", storage.ErrNotExist, path)
	}
	return err
}

func (d *Driver) PathSync(_ context.Context, path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return err
	}
	syncErr := dir.Sync()
	closeErr := dir.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

// Move attempts an atomic os.Rename. A rename across filesystems fails
// with EXDEV; that case is not an error here — it reports
// sameFilesystem=false and performs no work, leaving src untouched for
// the caller to fall back to a copy (storage.MoveOrCopy), per §4.2/§8.
func (d *Driver) Move(_ context.Context, src, dst string) (bool, error) {
	err := os.Rename(src, dst)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EXDEV) {
		return false, nil
	}
	return false, err
}

func (d *Driver) Remove(_ context.Context, path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", storage.ErrNotExist, path)
	}
	return err
}

// infoFromFileInfo populates a storage.Info from an already-done Lstat,
// filling in only what level calls for — the more expensive lookups
// (owner/group name resolution, link target) are skipped below
// storage.LevelDetail.
func infoFromFileInfo(name, path string, fi fs.FileInfo, level storage.Level) storage.Info {
	out := storage.Info{Name: name, Exists: true}
	if level < storage.LevelType {
		return out
	}

	out.Type = fileType(fi)
	if level < storage.LevelBasic {
		return out
	}

	out.Size = fi.Size()
	out.TimeModified = fi.ModTime()
	if level < storage.LevelDetail {
		return out
	}

	out.Mode = uint32(fi.Mode().Perm())
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		out.UserID = st.Uid
		out.GroupID = st.Gid
		out.User = lookupUser(st.Uid)
		out.Group = lookupGroup(st.Gid)
	}
	if out.Type == storage.TypeLink {
		if dest, err := os.Readlink(path); err == nil {
			out.LinkDestination = dest
		}
	}
	return out
}

func fileType(fi fs.FileInfo) storage.Type {
	mode := fi.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return storage.TypeLink
	case fi.IsDir():
		return storage.TypePath
	case mode&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0:
		return storage.TypeSpecial
	default:
		return storage.TypeFile
	}
}

// lookupUser resolves uid to a username, falling back to its decimal
// string when NSS has nothing for it (common in minimal containers).
func lookupUser(uid uint32) string {
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		return u.Username
	}
	return strconv.FormatUint(uint64(uid), 10)
}

func lookupGroup(gid uint32) string {
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
		return g.Name
	}
	return strconv.FormatUint(uint64(gid), 10)
}

// atomicFile writes to a temporary name and renames into place on Close,
// so a concurrent reader never observes a partially written file.
type atomicFile struct {
	f     *os.File
	tmp   string
	final string
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Close() error {
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		os.Remove(a.tmp)
		return err
	}
	if err := a.f.Close(); err != nil {
		os.Remove(a.tmp)
		return err
	}
	return os.Rename(a.tmp, a.final)
}
