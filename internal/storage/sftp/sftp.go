// Package sftp implements storage.Interface over an SFTP session,
// wrapping github.com/pkg/sftp on top of golang.org/x/crypto/ssh.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/aalhour/pgbackrest-go/internal/storage"
)

// Config describes how to reach and authenticate to the SFTP host.
type Config struct {
	Addr           string
	User           string
	Signer         ssh.Signer
	HostKeyCheck   ssh.HostKeyCallback
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Driver is a storage.Interface backed by an SFTP session.
type Driver struct {
	client    *sftp.Client
	conn      net.Conn
	opTimeout time.Duration
}

// Dial opens an SSH connection and SFTP session per cfg. The connect
// timeout bounds the TCP dial and handshake. OpTimeout is stored on the
// Driver, but no operation applies it, and the Driver's methods do not
// consult their ctx: the pkg/sftp client itself does not take a context
// per call.
func Dial(cfg Config) (*Driver, error) {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 60 * time.Second
	}
	hostKeyCheck := cfg.HostKeyCheck
	if hostKeyCheck == nil {
		hostKeyCheck = ssh.InsecureIgnoreHostKey()
	}

	conn, err := net.DialTimeout("tcp", cfg.Addr, connectTimeout)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial: %w", err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(cfg.Signer)},
		HostKeyCallback: hostKeyCheck,
		Timeout:         connectTimeout,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: handshake: %w", err)
	}

	sshClient := ssh.NewClient(clientConn, chans, reqs)
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout == 0 {
		opTimeout = 5 * time.Minute
	}
	return &Driver{client: client, conn: conn, opTimeout: opTimeout}, nil
}

// Close releases the SFTP client and underlying connection.
func (d *Driver) Close() error {
	err := d.client.Close()
	if cerr := d.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *Driver) Features() storage.Feature {
	return storage.FeatureMove
}

func (d *Driver) Info(ctx context.Context, p string, level storage.Level) (storage.Info, error) {
	if level == storage.LevelExists {
		if _, err := d.client.Lstat(p); err != nil {
			if isNotExist(err) {
				return storage.Info{}, fmt.Errorf("%w: %s", storage.ErrNotExist, p)
			}
			return storage.Info{}, err
		}
		return storage.Info{Name: path.Base(p), Exists: true}, nil
	}

	fi, err := d.client.Lstat(p)
	if err != nil {
		if isNotExist(err) {
			return storage.Info{}, fmt.Errorf("%w: %s", storage.ErrNotExist, p)
		}
		return storage.Info{}, err
	}
	return infoFromFileInfo(d, path.Base(p), p, fi, level), nil
}

// List lists the entries directly under p. At storage.LevelExists the
// ReadDir response itself is proof the entries exist, so no per-entry
// work beyond what ReadDir already did is needed.
func (d *Driver) List(ctx context.Context, p string, level storage.Level) ([]storage.Info, error) {
	entries, err := d.client.ReadDir(p)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, p)
		}
		return nil, err
	}
	out := make([]storage.Info, 0, len(entries))
	for _, fi := range entries {
		if level == storage.LevelExists {
			out = append(out, storage.Info{Name: fi.Name(), Exists: true})
			continue
		}
		out = append(out, infoFromFileInfo(d, fi.Name(), path.Join(p, fi.Name()), fi, level))
	}
	return out, nil
}

// infoFromFileInfo fills storage.Info from an SFTP FileInfo. UserID/GroupID
// come from the protocol's raw FileStat attrs when the server sent them;
// pkg/sftp exposes no username/groupname resolution (there is no local NSS
// for a remote uid), so User/Group are left as the numeric id, matching
// what a bare `ls -n` over SFTP would show.
func infoFromFileInfo(d *Driver, name, full string, fi os.FileInfo, level storage.Level) storage.Info {
	out := storage.Info{Name: name, Exists: true}
	if level < storage.LevelType {
		return out
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		out.Type = storage.TypeLink
	case fi.IsDir():
		out.Type = storage.TypePath
	case fi.Mode()&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0:
		out.Type = storage.TypeSpecial
	default:
		out.Type = storage.TypeFile
	}
	if level < storage.LevelBasic {
		return out
	}

	out.Size = fi.Size()
	out.TimeModified = fi.ModTime()
	if level < storage.LevelDetail {
		return out
	}

	out.Mode = uint32(fi.Mode().Perm())
	if st, ok := fi.Sys().(*sftp.FileStat); ok {
		out.UserID = st.UID
		out.GroupID = st.GID
		out.User = strconv.FormatUint(uint64(st.UID), 10)
		out.Group = strconv.FormatUint(uint64(st.GID), 10)
	}
	if out.Type == storage.TypeLink {
		if dest, err := d.client.ReadLink(full); err == nil {
			out.LinkDestination = dest
		}
	}
	return out
}

func (d *Driver) NewRead(ctx context.Context, p string) (io.ReadCloser, error) {
	f, err := d.client.Open(p)
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotExist, p)
		}
		return nil, err
	}
	return f, nil
}

func (d *Driver) NewWrite(ctx context.Context, p string, opts storage.WriteOptions) (io.WriteCloser, error) {
	if !opts.Atomic {
		f, err := d.client.Create(p)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	tmp := p + ".pgbackrest.tmp"
	f, err := d.client.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &atomicFile{client: d.client, f: f, tmp: tmp, final: p}, nil
}

func (d *Driver) PathCreate(ctx context.Context, p string) error {
	return d.client.MkdirAll(p)
}

func (d *Driver) PathRemove(ctx context.Context, p string, recursive bool) error {
	if !recursive {
		err := d.client.RemoveDirectory(p)
		if isNotExist(err) {
			return fmt.Errorf("%w: %s", storage.ErrNotExist, p)
		}
		return err
	}

	w := d.client.Walk(p)
	var paths []string
	for w.Step() {
		if err := w.Err(); err != nil {
			return err
		}
		paths = append(paths, w.Path())
	}
	for i := len(paths) - 1; i >= 0; i-- {
		info, err := d.client.Lstat(paths[i])
		if err != nil {
			continue
		}
		if info.IsDir() {
			if err := d.client.RemoveDirectory(paths[i]); err != nil {
				return err
			}
		} else {
			if err := d.client.Remove(paths[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// PathSync is a no-op: SFTP has no directory-fsync primitive in the
// protocol (no FeaturePathSync advertised).
func (d *Driver) PathSync(ctx context.Context, p string) error {
	return nil
}

// Move renames src to dst within the same SFTP session. The protocol has
// no cross-device concept the way a local filesystem does — src and dst
// always live on the one remote filesystem a session is connected to —
// so any failure here is a real error, not a same_filesystem=false case,
// and MoveOrCopy returns it without trying a copy.
func (d *Driver) Move(ctx context.Context, src, dst string) (bool, error) {
	if err := d.client.Rename(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Driver) Remove(ctx context.Context, p string) error {
	err := d.client.Remove(p)
	if isNotExist(err) {
		return fmt.Errorf("%w: %s", storage.ErrNotExist, p)
	}
	return err
}

// isNotExist decodes an sftp.StatusError and matches only the
// SSH_FX_NO_SUCH_FILE code, rather than string-matching the error text.
func isNotExist(err error) bool {
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == uint32(sftp.ErrSSHFxNoSuchFile)
	}
	return errors.Is(err, sftp.ErrSSHFxNoSuchFile)
}

type atomicFile struct {
	client *sftp.Client
	f      *sftp.File
	tmp    string
	final  string
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Close() error {
	if err := a.f.Close(); err != nil {
		a.client.Remove(a.tmp)
		return err
	}
	return a.client.Rename(a.tmp, a.final)
}
