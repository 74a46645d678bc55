package config

import (
	"fmt"
	"strings"
)

// EnvPrefix is the prefix environment variables map option names through
// (§6): strip it, lowercase the remainder, and turn '_' into '-'.
const EnvPrefix = "PGBACKREST_"

// LoadEnviron implements the environment-variable mapping of §6 over a
// slice of "KEY=VALUE" strings (the shape os.Environ() returns, kept as a
// parameter so tests don't need to mutate the process environment).
// Secure options found in the environment are dropped with a warning
// (§6); a config file, by contrast, may carry them.
func LoadEnviron(reg *Registry, environ []string) (map[string]*RawOption, []string, error) {
	out := make(map[string]*RawOption)
	var warnings []string

	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 || !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		key := kv[:eq]
		value := kv[eq+1:]

		name := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", "-")
		spec := reg.Get(name)
		if spec == nil {
			continue
		}

		if spec.Secure {
			warnings = append(warnings, fmt.Sprintf("option '%s' is secure and was ignored in the environment", name))
			continue
		}

		existing, ok := out[name]
		if !ok {
			existing = &RawOption{Source: SourceConfig}
			out[name] = existing
		}
		if spec.Kind == KindHash {
			if !strings.Contains(value, "=") {
				return nil, nil, fmt.Errorf("config: option '%s' requires key=value pairs, got %q", name, value)
			}
			existing.Values = append(existing.Values, value)
		} else if spec.Kind == KindList {
			existing.Values = append(existing.Values, strings.Split(value, ":")...)
		} else {
			existing.Values = []string{value}
		}
	}

	return out, warnings, nil
}
