// Command pgbackrest is the thin CLI surface wiring the config resolver,
// storage backends, and block-delta engine together (§6). Only the
// commands this module implements end to end — repo-ls, repo-get,
// repo-put, info, backup, restore, and version — have a real execution
// path; every other command recognized by the registry resolves its
// options (so the resolver's per-command filtering matches the full CLI)
// but only logs a warning that it has no execution path here and exits 0.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"syscall"

	"github.com/aalhour/pgbackrest-go/internal/blockdelta"
	"github.com/aalhour/pgbackrest-go/internal/checksum"
	"github.com/aalhour/pgbackrest-go/internal/compression"
	"github.com/aalhour/pgbackrest-go/internal/config"
	"github.com/aalhour/pgbackrest-go/internal/errkind"
	"github.com/aalhour/pgbackrest-go/internal/filter"
	"github.com/aalhour/pgbackrest-go/internal/info"
	"github.com/aalhour/pgbackrest-go/internal/logging"
	"github.com/aalhour/pgbackrest-go/internal/storage"
	"github.com/aalhour/pgbackrest-go/internal/storage/azure"
	"github.com/aalhour/pgbackrest-go/internal/storage/posix"
	"github.com/aalhour/pgbackrest-go/internal/storage/s3"
	"github.com/aalhour/pgbackrest-go/internal/storage/sftp"

	azblobpkg "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stdout, os.Stderr))
}

func run(argv, environ []string, stdout, stderr io.Writer) int {
	reg := config.NewDefaultRegistry()
	opts, warnings, err := config.Load(reg, argv, environ, osFileSystem{})
	if err != nil {
		return reportErr(stderr, err)
	}
	for _, w := range warnings {
		fmt.Fprintf(stderr, "WARN: %s\n", w)
	}

	logLevel := logging.LevelWarn
	if v, ok := opts.Get("log-level-console"); ok {
		if s, err := v.AsString(); err == nil {
			logLevel = parseLogLevel(s)
		}
	}
	logger := logging.NewLogger(stderr, logLevel)

	store, err := openRepo(opts)
	if err != nil {
		return reportErr(stderr, err)
	}

	ctx := context.Background()

	switch opts.Command {
	case config.CommandRepoLs:
		return cmdRepoLs(ctx, store, opts, stdout)
	case config.CommandRepoGet:
		return cmdRepoGet(ctx, store, opts, stdout)
	case config.CommandRepoPut:
		return cmdRepoPut(ctx, store, opts, os.Stdin, stdout)
	case config.CommandInfo:
		return cmdInfo(ctx, store, opts, stdout)
	case config.CommandBackup:
		return cmdBackup(ctx, store, opts, stdout)
	case config.CommandRestore:
		return cmdRestore(ctx, store, opts, stdout)
	case config.CommandVersion:
		fmt.Fprintln(stdout, info.ModuleVersion)
		return 0
	default:
		logger.Warnf("command %q resolves options but has no execution path in this module", opts.Command)
		return 0
	}
}

// openRepo constructs the storage.Interface named by the resolved
// repo-type option. Credentials absent for the selected type are passed
// on as empty strings, and each backend reports (or not) its own error
// for them — the resolver already validated repo-type itself against its
// allow-list.
func openRepo(opts *config.ResolvedOptions) (storage.Interface, error) {
	repoType := "posix"
	if v, ok := opts.Get("repo-type"); ok {
		if s, err := v.AsString(); err == nil {
			repoType = s
		}
	}

	switch repoType {
	case "posix":
		return posix.New(0o750), nil
	case "sftp":
		host, _ := stringOpt(opts, "repo-sftp-host")
		user, _ := stringOpt(opts, "repo-sftp-user")
		return sftp.Dial(sftp.Config{Addr: host, User: user})
	case "s3":
		endpoint, _ := stringOpt(opts, "repo-s3-endpoint")
		bucket, _ := stringOpt(opts, "repo-s3-bucket")
		region, _ := stringOpt(opts, "repo-s3-region")
		key, _ := stringOpt(opts, "repo-s3-key")
		secret, _ := stringOpt(opts, "repo-s3-key-secret")
		return s3.New(s3.Config{
			Endpoint:        endpoint,
			Bucket:          bucket,
			Region:          region,
			AccessKeyID:     key,
			SecretAccessKey: secret,
		}), nil
	case "azure":
		account, _ := stringOpt(opts, "repo-azure-account")
		accountKey, _ := stringOpt(opts, "repo-azure-key")
		container, _ := stringOpt(opts, "repo-azure-container")
		cred, err := azblobpkg.NewSharedKeyCredential(account, accountKey)
		if err != nil {
			return nil, errkind.New(errkind.CryptoError, "repo-azure-key: %v", err)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
		client, err := azblobpkg.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, errkind.New(errkind.ServiceError, "repo-azure-account: %v", err)
		}
		return azure.New(client, container), nil
	default:
		return nil, errkind.New(errkind.OptionInvalidValueError, "repo-type '%s' not recognized", repoType)
	}
}

// parseLogLevel maps a resolved log-level-console string onto the
// logging package's Level enum; an unrecognized value (already rejected
// by the option's allow-list at resolution time) falls back to warn.
func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug", "trace":
		return logging.LevelDebug
	case "info", "detail":
		return logging.LevelInfo
	case "error", "off":
		return logging.LevelError
	default:
		return logging.LevelWarn
	}
}

func stringOpt(opts *config.ResolvedOptions, name string) (string, bool) {
	v, ok := opts.Get(name)
	if !ok {
		return "", false
	}
	s, err := v.AsString()
	if err != nil {
		return "", false
	}
	return s, true
}

func cmdRepoLs(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdout io.Writer) int {
	path := "/"
	if len(opts.Params) > 0 {
		path = opts.Params[0]
	}
	entries, err := store.List(ctx, path, storage.LevelBasic)
	if err != nil {
		return reportErr(stdout, err)
	}

	sortOrder := "asc"
	if v, ok := opts.Get("sort"); ok {
		if s, err := v.AsString(); err == nil {
			sortOrder = s
		}
	}
	switch sortOrder {
	case "asc":
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	case "desc":
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name > entries[j].Name })
	}

	for _, e := range entries {
		fmt.Fprintf(stdout, "%s\t%s\t%d\n", e.Name, e.Type, e.Size)
	}
	return 0
}

func cmdRepoGet(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdout io.Writer) int {
	if len(opts.Params) == 0 {
		return reportErr(stdout, errkind.New(errkind.ParamRequiredError, "repo-get requires a file path parameter"))
	}
	r, err := store.NewRead(ctx, opts.Params[0])
	if err != nil {
		return reportErr(stdout, err)
	}
	defer r.Close()

	// A short-reading consumer downstream (e.g. `| head`) must not turn
	// a closed pipe into a fatal error here — this is the one place
	// §7 says FileWriteError is caught rather than propagated.
	if _, err := io.Copy(stdout, r); err != nil {
		if isBrokenPipe(err) {
			return 0
		}
		return reportErr(stdout, err)
	}
	return 0
}

func cmdRepoPut(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdin io.Reader, stdout io.Writer) int {
	if len(opts.Params) == 0 {
		return reportErr(os.Stderr, errkind.New(errkind.ParamRequiredError, "repo-put requires a file path parameter"))
	}

	// Push a checksum filter (§4.1 "Hash ... filters") onto the upload so
	// the transferred content's digest is available without a second pass
	// over the written object.
	ctor, err := filter.NewChecksumFilter(checksumTypeOpt(opts))
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	group, err := filter.NewReaderGroup(stdin, ctor)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	w, err := store.NewWrite(ctx, opts.Params[0], storage.WriteOptions{Atomic: true})
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	if _, err := io.Copy(w, group); err != nil {
		w.Close()
		return reportErr(os.Stderr, err)
	}
	if err := w.Close(); err != nil {
		return reportErr(os.Stderr, err)
	}

	if sum, ok := group.Results()[0].([]byte); ok {
		fmt.Fprintf(stdout, "%x  %s\n", sum, opts.Params[0])
	}
	return 0
}

// cmdBackup reads the local file named by the first parameter whole,
// packs it into block-map-addressed super blocks (§4.1, §4.3) with the
// resolved compress-type/repo-cipher-type/repo-block-checksum-type
// options, and persists both the packed object and its block-map frame
// under the second parameter's repo-relative backup label — the
// producer side of the block-map frame cmdRestore consumes.
func cmdBackup(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdout io.Writer) int {
	if len(opts.Params) < 2 {
		return reportErr(os.Stderr, errkind.New(errkind.ParamRequiredError, "backup requires a source file and a backup label parameter"))
	}
	srcPath, label := opts.Params[0], opts.Params[1]

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	blockSize := blockSizeOpt(opts)
	checksumType := checksumTypeOpt(opts)
	compressType, err := compressTypeOpt(opts)
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	passphrase, cipherOn := cipherPassOpt(opts)

	items, packed, err := blockdelta.BuildBlockMap(data, blockSize, checksumType, 1, compressType, passphrase, cipherOn)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	if err := writeRepoObject(ctx, store, referenceDataPath(label), packed); err != nil {
		return reportErr(os.Stderr, err)
	}
	if err := writeRepoObject(ctx, store, referenceBlockMapPath(label), blockdelta.EncodeBlockMap(items)); err != nil {
		return reportErr(os.Stderr, err)
	}

	fmt.Fprintf(stdout, "backup %s: %d bytes in %d blocks (%s, %s)\n", label, len(data), len(items), compressType, checksumType)
	return 0
}

// cmdRestore reads the block-map frame stored for the backup label named
// by the first parameter, diffs it against the existing destination
// file's own block checksums (§4.3's "existing-file checksum buffer"),
// and fetches only the blocks that changed or are new, writing the
// restored file to the second parameter's local path.
func cmdRestore(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdout io.Writer) int {
	if len(opts.Params) < 2 {
		return reportErr(os.Stderr, errkind.New(errkind.ParamRequiredError, "restore requires a backup label and a destination file parameter"))
	}
	label, dstPath := opts.Params[0], opts.Params[1]

	frame, err := readRepoObject(ctx, store, referenceBlockMapPath(label))
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	items, err := blockdelta.DecodeBlockMap(frame)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	blockSize := blockSizeOpt(opts)
	checksumType := checksumTypeOpt(opts)
	compressType, err := compressTypeOpt(opts)
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	passphrase, cipherOn := cipherPassOpt(opts)

	existing, err := existingChecksumsForPath(dstPath, blockSize, checksumType)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	plan, err := blockdelta.BuildPlan(items, blockSize, blockdelta.BlockChecksumSize, existing)
	if err != nil {
		return reportErr(os.Stderr, err)
	}

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE, 0o640)
	if err != nil {
		return reportErr(os.Stderr, err)
	}
	defer dst.Close()

	var opt []blockdelta.Option
	if cipherOn {
		opt = append(opt, blockdelta.WithCipher(passphrase))
	}
	if compressType != compression.None {
		opt = append(opt, blockdelta.WithCompression(compressType))
	}
	engine := blockdelta.NewEngine(blockSize, opt...)

	needed := 0
	for _, read := range plan.Reads {
		r, err := store.NewRead(ctx, referenceDataPath(label))
		if err != nil {
			return reportErr(os.Stderr, err)
		}
		if err := seekOrDiscard(r, read.Offset); err != nil {
			r.Close()
			return reportErr(os.Stderr, err)
		}
		lr := io.LimitReader(r, read.Size)

		err = engine.ExtractRead(lr, read, func(wr blockdelta.WriteRequest) error {
			needed++
			_, err := dst.WriteAt(wr.Block, wr.DestOffset)
			return err
		})
		r.Close()
		if err != nil {
			return reportErr(os.Stderr, err)
		}
	}

	fmt.Fprintf(stdout, "restore %s: %d of %d blocks fetched\n", label, needed, len(items))
	return 0
}

func cmdInfo(ctx context.Context, store storage.Interface, opts *config.ResolvedOptions, stdout io.Writer) int {
	stanza, _ := stringOpt(opts, "stanza")
	if stanza == "" {
		return reportErr(stdout, errkind.New(errkind.OptionRequiredError, "option 'stanza' required for the info command"))
	}

	path := stanza + "/backup.info"
	ini, err := info.Load(ctx, store, path, true)
	if err != nil {
		return reportErr(stdout, err)
	}
	if ini == nil {
		fmt.Fprintf(stdout, "stanza: %s\n    status: missing backup.info\n", stanza)
		return 0
	}

	pgSet, err := info.ReadPgSet(ini, info.KindBackup)
	if err != nil {
		return reportErr(stdout, err)
	}
	fmt.Fprintf(stdout, "stanza: %s\n", stanza)
	for _, pg := range pgSet.History {
		fmt.Fprintf(stdout, "    db (id %d): version %s, system-id %d\n", pg.ID, pg.Version, pg.SystemID)
	}
	return 0
}

// referenceDataPath and referenceBlockMapPath name the two repo objects
// one backup label occupies: the packed super-block stream BuildBlockMap
// produces, and its EncodeBlockMap sidecar frame. Joined with "path"
// rather than "filepath", matching sftp.go's repo key-space convention —
// a repo path is a key, not a local filesystem path.
func referenceDataPath(label string) string {
	return path.Join(label, "block.data")
}

func referenceBlockMapPath(label string) string {
	return path.Join(label, "block.map")
}

// blockSizeOpt reads the resolved repo-block-size option, falling back to
// its registry default if somehow unset.
func blockSizeOpt(opts *config.ResolvedOptions) int64 {
	if v, ok := opts.Get("repo-block-size"); ok {
		if n, err := v.AsInt(); err == nil {
			return int64(n)
		}
	}
	return 8192
}

// checksumTypeOpt reads the resolved repo-block-checksum-type option. The
// registry's AllowList already restricts it to names checksum.ParseType
// accepts, so a parse failure here only occurs for an unset option with
// no default, in which case xxh3 (the registry's own default) is used.
func checksumTypeOpt(opts *config.ResolvedOptions) checksum.Type {
	if s, ok := stringOpt(opts, "repo-block-checksum-type"); ok {
		if t, err := checksum.ParseType(s); err == nil {
			return t
		}
	}
	return checksum.TypeXXH3
}

// compressTypeOpt reads the resolved compress-type option.
func compressTypeOpt(opts *config.ResolvedOptions) (compression.Type, error) {
	s, ok := stringOpt(opts, "compress-type")
	if !ok {
		return compression.None, nil
	}
	return compression.ParseType(s)
}

// cipherPassOpt reports the repo-cipher-pass option's value and whether
// repo-cipher-type resolved to anything other than "none".
func cipherPassOpt(opts *config.ResolvedOptions) ([]byte, bool) {
	cipherType, _ := stringOpt(opts, "repo-cipher-type")
	if cipherType == "" || cipherType == "none" {
		return nil, false
	}
	pass, _ := stringOpt(opts, "repo-cipher-pass")
	return []byte(pass), true
}

// existingChecksumsForPath opens path if it already exists and checksums
// it in blockSize chunks for BuildPlan's existing parameter; a missing
// destination file (the fresh-restore case) yields an empty buffer rather
// than an error, so every block is requested.
func existingChecksumsForPath(path string, blockSize int64, t checksum.Type) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return blockdelta.ExistingChecksums(f, blockSize, t)
}

// seekOrDiscard positions r at offset bytes into the stream it opened,
// using io.Seeker when the backend's read handle supports it (posix) and
// falling back to discarding the leading bytes otherwise (sftp/s3/azure,
// whose NewRead always starts at the object's beginning).
func seekOrDiscard(r io.ReadCloser, offset int64) error {
	if offset == 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(offset, io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, r, offset)
	return err
}

// readRepoObject reads path from store in full.
func readRepoObject(ctx context.Context, store storage.Interface, path string) ([]byte, error) {
	r, err := store.NewRead(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// writeRepoObject atomically writes data to path in store.
func writeRepoObject(ctx context.Context, store storage.Interface, path string, data []byte) error {
	w, err := store.NewWrite(ctx, path, storage.WriteOptions{Atomic: true})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func reportErr(w io.Writer, err error) int {
	if ke, ok := err.(*errkind.Error); ok {
		fmt.Fprintf(w, "%s\n", ke.Error())
		return ke.Kind.ExitCode()
	}
	fmt.Fprintf(w, "ERROR: %s\n", err)
	return 1
}

// isBrokenPipe reports whether err is the OS signaling that the reader
// on the other end of stdout went away (e.g. `pgbackrest repo-get ... |
// head`) — the one place §7 says FileWriteError must not be fatal.
func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE)
}
