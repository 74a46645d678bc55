package config

// Command names recognized by the dispatcher (§6). Only the commands
// this module exercises directly (repo-ls/repo-get/repo-put/info/backup/
// restore/version) have a full execution path in cmd/pgbackrest; the
// rest are accepted here so
// the resolver's per-command option filtering behaves the same as the
// full CLI's.
const (
	CommandBackup       = "backup"
	CommandRestore      = "restore"
	CommandArchivePush  = "archive-push"
	CommandArchiveGet   = "archive-get"
	CommandCheck        = "check"
	CommandInfo         = "info"
	CommandStanzaCreate = "stanza-create"
	CommandExpire       = "expire"
	CommandRepoLs       = "repo-ls"
	CommandRepoGet      = "repo-get"
	CommandRepoPut      = "repo-put"
	CommandHelp         = "help"
	CommandVersion      = "version"
)

// commandSet is the full list of recognized commands, used to validate
// the first non-flag argument (§4.4 Phase 1).
var commandSet = map[string]bool{
	CommandBackup: true, CommandRestore: true, CommandArchivePush: true,
	CommandArchiveGet: true, CommandCheck: true, CommandInfo: true,
	CommandStanzaCreate: true, CommandExpire: true, CommandRepoLs: true,
	CommandRepoGet: true, CommandRepoPut: true, CommandHelp: true,
	CommandVersion: true,
}

// OptionSpec describes one option's shape, valid values, and the
// dependency that governs when it applies to the running command.
type OptionSpec struct {
	Name string

	// DeprecatedNames are prior option names accepted as aliases for the
	// same id (§4.4 Phase 1 "deprecated-name" flag).
	DeprecatedNames []string

	Kind Kind

	// NumericForm selects the Phase 3 type parser for a KindInt option:
	// "" for a plain integer, "size" for <int>[kmgtp](b|ib|)?, "time" for
	// <int>(ms|s|m|h|d|w) (§4.4 Phase 3).
	NumericForm string

	// Negatable allows --no-<name>; Resettable allows --reset-<name>.
	Negatable  bool
	Resettable bool

	// Secure options may only be set via a config file, never the command
	// line or the environment (§4.4 Phase 2, §6).
	Secure bool

	// StanzaOnly options are rejected outside a [<stanza>] or
	// [<stanza>:<command>] section.
	StanzaOnly bool

	// CommandLineOnly options found in a config file are ignored with a
	// warning rather than merged (§4.4 Phase 2).
	CommandLineOnly bool

	// Commands restricts which commands the option applies to; nil means
	// every command.
	Commands []string

	// Required lists the commands for which this option must resolve to
	// a value (error if unset after Phase 3).
	Required []string

	// RequiredStanza marks that the "must be set" error hints at the
	// stanza option specifically (§4.4 Phase 3 "hint that mentions
	// stanza-ness").
	RequiredStanza bool

	// DependOption, if non-empty, names another option id this one
	// depends on; DependAllow lists the strings the depend option's value
	// must render as (via its type-specific string form) for this option
	// to be valid in context (§4.4 Phase 3, §8 S6).
	DependOption string
	DependAllow  []string

	// AllowList restricts a string option's resolved value.
	AllowList []string

	// Default is applied when the option is unset and not Required for
	// the running command.
	Default *Value
}

func boolOpt(name string, def bool) *OptionSpec {
	return &OptionSpec{Name: name, Kind: KindBool, Negatable: true, Resettable: true, Default: &Value{Kind: KindBool, Bool: def}}
}

func strOpt(name string, def string) *OptionSpec {
	var d *Value
	if def != "" {
		d = &Value{Kind: KindString, Str: def}
	}
	return &OptionSpec{Name: name, Kind: KindString, Resettable: true, Default: d}
}

// Registry is the ordered, named set of option specs the resolver works
// against. A Registry is built once (NewDefaultRegistry) and shared
// read-only across a process.
type Registry struct {
	order []string
	specs map[string]*OptionSpec
}

// NewRegistry returns an empty Registry; Add registers specs into it.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*OptionSpec)}
}

// Add registers spec, keyed by its canonical Name. Add panics on a
// duplicate name — that is a programming error in the registry
// construction, not a runtime condition.
func (r *Registry) Add(spec *OptionSpec) {
	if _, ok := r.specs[spec.Name]; ok {
		panic("config: duplicate option " + spec.Name)
	}
	r.order = append(r.order, spec.Name)
	r.specs[spec.Name] = spec
}

// Get returns the spec for name, following deprecated-name aliases, or
// nil if name is not registered.
func (r *Registry) Get(name string) *OptionSpec {
	if s, ok := r.specs[name]; ok {
		return s
	}
	for _, s := range r.specs {
		for _, alias := range s.DeprecatedNames {
			if alias == name {
				return s
			}
		}
	}
	return nil
}

// Names returns every registered option name, in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// NewDefaultRegistry returns the option set this module resolves:
// general options plus the ones the in-scope commands (repo-ls,
// repo-get, repo-put, info, backup, restore, stanza-create, check)
// consume.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	r.Add(&OptionSpec{Name: "config", Kind: KindString, Resettable: true,
		Default: &Value{Kind: KindString, Str: "/etc/pgbackrest/pgbackrest.conf"}})
	r.Add(boolOpt("no-config", false))
	r.Add(&OptionSpec{Name: "config-include-path", Kind: KindString, Resettable: true,
		Default: &Value{Kind: KindString, Str: "/etc/pgbackrest/conf.d"}})
	r.Add(strOpt("stanza", ""))

	r.Add(&OptionSpec{Name: "log-level-console", Kind: KindString, Resettable: true,
		AllowList: []string{"off", "error", "warn", "info", "detail", "debug", "trace"},
		Default:   &Value{Kind: KindString, Str: "warn"}})
	r.Add(&OptionSpec{Name: "log-level-stderr", Kind: KindString, Resettable: true,
		AllowList: []string{"off", "error", "warn", "info", "detail", "debug", "trace"},
		Default:   &Value{Kind: KindString, Str: "warn"}})

	r.Add(&OptionSpec{Name: "repo-type", Kind: KindString, Resettable: true,
		AllowList: []string{"posix", "sftp", "s3", "azure"},
		Default:   &Value{Kind: KindString, Str: "posix"}})
	r.Add(strOpt("repo-path", "/var/lib/pgbackrest"))

	r.Add(&OptionSpec{Name: "repo-s3-key", Kind: KindString, Secure: true,
		DependOption: "repo-type", DependAllow: []string{"s3"}})
	r.Add(&OptionSpec{Name: "repo-s3-key-secret", Kind: KindString, Secure: true,
		DependOption: "repo-type", DependAllow: []string{"s3"}})
	r.Add(&OptionSpec{Name: "repo-s3-bucket", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"s3"}})
	r.Add(&OptionSpec{Name: "repo-s3-endpoint", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"s3"}})
	r.Add(&OptionSpec{Name: "repo-s3-region", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"s3"}})

	r.Add(&OptionSpec{Name: "repo-azure-account", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"azure"}})
	r.Add(&OptionSpec{Name: "repo-azure-key", Kind: KindString, Secure: true,
		DependOption: "repo-type", DependAllow: []string{"azure"}})
	r.Add(&OptionSpec{Name: "repo-azure-container", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"azure"}})

	r.Add(&OptionSpec{Name: "repo-sftp-host", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"sftp"}})
	r.Add(&OptionSpec{Name: "repo-sftp-user", Kind: KindString,
		DependOption: "repo-type", DependAllow: []string{"sftp"}})
	r.Add(&OptionSpec{Name: "repo-sftp-private-key-file", Kind: KindString, Secure: true,
		DependOption: "repo-type", DependAllow: []string{"sftp"}})

	r.Add(&OptionSpec{Name: "repo-cipher-type", Kind: KindString, Resettable: true,
		AllowList: []string{"none", "aes-256-cbc"},
		Default:   &Value{Kind: KindString, Str: "none"}})
	r.Add(&OptionSpec{Name: "repo-cipher-pass", Kind: KindString, Secure: true,
		DependOption: "repo-cipher-type", DependAllow: []string{"aes-256-cbc"}})

	r.Add(&OptionSpec{Name: "compress-type", Kind: KindString, Resettable: true,
		AllowList: []string{"none", "gz", "bz2", "lz4", "zst"},
		Default:   &Value{Kind: KindString, Str: "gz"}})
	r.Add(&OptionSpec{Name: "compress-level", Kind: KindInt, Resettable: true,
		Default: &Value{Kind: KindInt, Int: 6}})

	r.Add(&OptionSpec{Name: "buffer-size", Kind: KindInt, NumericForm: "size", Resettable: true,
		Default: &Value{Kind: KindInt, Int: 1048576}})
	r.Add(&OptionSpec{Name: "protocol-timeout", Kind: KindInt, NumericForm: "time", Resettable: true,
		Default: &Value{Kind: KindInt, Int: 1830000}})
	r.Add(&OptionSpec{Name: "db-timeout", Kind: KindInt, NumericForm: "time", Resettable: true,
		Default: &Value{Kind: KindInt, Int: 1800000}})

	r.Add(boolOpt("archive-async", false))
	r.Add(&OptionSpec{Name: "spool-path", Kind: KindString,
		DependOption: "archive-async", DependAllow: []string{"y"}})

	r.Add(&OptionSpec{Name: "process-max", Kind: KindInt, Resettable: true,
		Default: &Value{Kind: KindInt, Int: 1}})

	r.Add(&OptionSpec{Name: "sort", Kind: KindString, Commands: []string{CommandRepoLs},
		AllowList: []string{"asc", "desc", "none"}, Default: &Value{Kind: KindString, Str: "asc"}})
	r.Add(&OptionSpec{Name: "recurse", Kind: KindBool, Negatable: true, Commands: []string{CommandRepoLs},
		Default: &Value{Kind: KindBool, Bool: false}})
	r.Add(&OptionSpec{Name: "filter", Kind: KindString, Commands: []string{CommandRepoLs}})

	r.Add(strOpt("output", "text"))
	r.Add(&OptionSpec{Name: "set", Kind: KindString, Commands: []string{CommandInfo}})

	r.Add(&OptionSpec{Name: "repo-block-size", Kind: KindInt, NumericForm: "size", Resettable: true,
		Commands: []string{CommandBackup, CommandRestore},
		Default:  &Value{Kind: KindInt, Int: 8192}})
	r.Add(&OptionSpec{Name: "repo-block-checksum-type", Kind: KindString, Resettable: true,
		Commands:  []string{CommandBackup, CommandRestore, CommandRepoPut},
		AllowList: []string{"crc32c", "xxhash64", "xxh3"},
		Default:   &Value{Kind: KindString, Str: "xxh3"}})

	return r
}
