package config

// FileSystem is the minimal file-reading capability Load needs from
// outside this package: read a single file's text, and list the names
// of a directory's entries. cmd/pgbackrest supplies an os-backed
// implementation; tests supply an in-memory one. Kept separate from
// storage.Interface because config must resolve before a repository
// backend can be constructed — this reads local files only, never the
// repository.
type FileSystem interface {
	ReadFile(path string) (string, bool, error)
	ListDir(path string) ([]string, bool, error)
}

// Load runs all three phases over argv and environ using fs for the
// config file and config-include-path lookups, returning the fully
// resolved option table.
func Load(reg *Registry, argv []string, environ []string, fs FileSystem) (*ResolvedOptions, []string, error) {
	parsed, err := ParseArgs(reg, argv)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string

	envOptions, envWarnings, err := LoadEnviron(reg, environ)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, envWarnings...)

	configOptions := envOptions
	noConfig := parsed.Options["no-config"] != nil && !parsed.Options["no-config"].Negate

	if !noConfig {
		stanza := ""
		if s, ok := parsed.Options["stanza"]; ok && len(s.Values) > 0 {
			stanza = s.Values[len(s.Values)-1]
		}

		configPath := reg.Get("config").Default.Str
		if c, ok := parsed.Options["config"]; ok && len(c.Values) > 0 {
			configPath = c.Values[len(c.Values)-1]
		}
		includePath := reg.Get("config-include-path").Default.Str
		if c, ok := parsed.Options["config-include-path"]; ok && len(c.Values) > 0 {
			includePath = c.Values[len(c.Values)-1]
		}

		mainText, _, err := fs.ReadFile(configPath)
		if err != nil {
			return nil, nil, err
		}

		var includeTexts []string
		names, exists, err := fs.ListDir(includePath)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			for _, name := range SortedIncludeNames(names) {
				text, ok, err := fs.ReadFile(includePath + "/" + name)
				if err != nil {
					return nil, nil, err
				}
				if ok {
					includeTexts = append(includeTexts, text)
				}
			}
		}

		ini, err := MergeConfigFiles(mainText, includeTexts)
		if err != nil {
			return nil, nil, err
		}

		fromIni, iniWarnings, err := ResolveFromIni(reg, ini, stanza, parsed.Command)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, iniWarnings...)

		merged := mergeSources(fromIni, envOptions)
		configOptions = merged
	}

	resolved, err := Resolve(reg, parsed.Command, parsed.Params, parsed.Options, configOptions)
	if err != nil {
		return nil, nil, err
	}

	return resolved, warnings, nil
}
