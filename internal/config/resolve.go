package config

import (
	"fmt"

	"github.com/aalhour/pgbackrest-go/internal/errkind"
)

// ResolvedOptions is the output of Phase 3: a fully validated, typed
// option table plus the command/params Phase 1 extracted.
type ResolvedOptions struct {
	Command string
	Params  []string
	Values  map[string]Value
}

// Get returns the resolved value for name and whether it is present.
// Absent means either the option was never set and has no default, or it
// was "not valid in context" for a failed dependency and silently
// dropped (§4.4 Phase 3).
func (r *ResolvedOptions) Get(name string) (Value, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// mergeSources lets a command-line value win outright over a config/env
// value for the same option (§8 S5) — Phase 1 and Phase 2 never blend a
// single option's value, only which phase supplied it.
func mergeSources(param, other map[string]*RawOption) map[string]*RawOption {
	out := make(map[string]*RawOption, len(param)+len(other))
	for k, v := range other {
		out[k] = v
	}
	for k, v := range param {
		out[k] = v
	}
	return out
}

// Resolve implements §4.4 Phase 3: iterate every registered option to a
// fixed point, resolving an option once it has no dependency or its
// dependency has already resolved, applying type-specific parsing and
// validation, and erroring on an unresolvable (cyclic) dependency graph.
func Resolve(reg *Registry, command string, params []string, paramOptions, configOptions map[string]*RawOption) (*ResolvedOptions, error) {
	merged := mergeSources(paramOptions, configOptions)

	pending := make(map[string]bool)
	for _, name := range reg.Names() {
		spec := reg.Get(name)
		if commandApplies(spec, command) {
			pending[name] = true
		}
	}

	resolved := make(map[string]Value)
	stringForm := make(map[string]string)

	for len(pending) > 0 {
		progressed := false

		for name := range pending {
			spec := reg.Get(name)

			if spec.DependOption != "" {
				if pending[spec.DependOption] {
					continue // depend-option not resolved yet, try again next pass
				}
				depForm, depPresent := stringForm[spec.DependOption]
				if !depPresent || !containsString(spec.DependAllow, depForm) {
					raw := merged[name]
					if raw != nil && raw.Source == SourceParam {
						return nil, errkind.New(errkind.OptionInvalidError,
							"option '%s' not valid without option '%s'", name, spec.DependOption)
					}
					delete(pending, name)
					progressed = true
					continue
				}
			}

			value, form, present, err := resolveOne(spec, command, merged[name])
			if err != nil {
				return nil, err
			}
			if present {
				resolved[name] = value
				stringForm[name] = form
			}
			delete(pending, name)
			progressed = true
		}

		if !progressed {
			var stuck []string
			for name := range pending {
				stuck = append(stuck, name)
			}
			return nil, fmt.Errorf("config: dependency cycle detected among options: %v", stuck)
		}
	}

	return &ResolvedOptions{Command: command, Params: params, Values: resolved}, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// commandApplies reports whether spec is relevant to command: Commands
// nil means every command, otherwise command must appear in the list.
func commandApplies(spec *OptionSpec, command string) bool {
	if len(spec.Commands) == 0 {
		return true
	}
	for _, c := range spec.Commands {
		if c == command {
			return true
		}
	}
	return false
}

func requiredFor(spec *OptionSpec, command string) bool {
	for _, c := range spec.Required {
		if c == command {
			return true
		}
	}
	return false
}

// resolveOne applies type parsing, range/allow-list validation, and the
// required-or-default rule to a single option, given its merged raw
// value (nil if never set).
func resolveOne(spec *OptionSpec, command string, raw *RawOption) (value Value, stringForm string, present bool, err error) {
	if raw == nil || (raw.Negate && spec.Kind != KindBool) {
		return defaultOrRequired(spec, command)
	}

	if raw.Reset {
		return defaultOrRequired(spec, command)
	}
	if raw.Negate {
		return Value{Kind: KindBool, Bool: false, Source: raw.Source}, "n", true, nil
	}

	switch spec.Kind {
	case KindBool:
		b, perr := ParseBool(lastOr(raw.Values, "y"))
		if perr != nil {
			return Value{}, "", false, errkind.New(errkind.OptionInvalidValueError, "%s: %v", spec.Name, perr)
		}
		form := "n"
		if b {
			form = "y"
		}
		return Value{Kind: KindBool, Bool: b, Source: raw.Source}, form, true, nil

	case KindInt:
		n, perr := parseInt(spec, lastOr(raw.Values, "0"))
		if perr != nil {
			return Value{}, "", false, errkind.New(errkind.OptionInvalidValueError, "%s: %v", spec.Name, perr)
		}
		return Value{Kind: KindInt, Int: n, Source: raw.Source}, fmt.Sprintf("%d", n), true, nil

	case KindString:
		s := lastOr(raw.Values, "")
		if len(spec.AllowList) > 0 && !containsString(spec.AllowList, s) {
			return Value{}, "", false, errkind.New(errkind.OptionInvalidValueError,
				"'%s' is not allowed for '%s'", s, spec.Name)
		}
		return Value{Kind: KindString, Str: s, Source: raw.Source}, s, true, nil

	case KindList:
		return Value{Kind: KindList, List: append([]string{}, raw.Values...), Source: raw.Source}, "", true, nil

	case KindHash:
		h := make(map[string]string, len(raw.Values))
		for _, kv := range raw.Values {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					h[kv[:i]] = kv[i+1:]
					break
				}
			}
		}
		return Value{Kind: KindHash, Hash: h, Source: raw.Source}, "", true, nil

	default:
		return Value{}, "", false, fmt.Errorf("config: unknown kind for option '%s'", spec.Name)
	}
}

func lastOr(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return values[len(values)-1]
}

func parseInt(spec *OptionSpec, raw string) (int64, error) {
	switch spec.NumericForm {
	case "size":
		return ParseSize(raw)
	case "time":
		return ParseTime(raw)
	default:
		var n int64
		_, err := fmt.Sscanf(raw, "%d", &n)
		if err != nil {
			return 0, fmt.Errorf("value '%s' is not valid", raw)
		}
		return n, nil
	}
}

// defaultOrRequired handles an option with no usable raw value (unset,
// reset, or negated-but-not-a-bool): apply the registered default if the
// option isn't required for command, else error with a stanza-aware hint
// (§4.4 Phase 3).
func defaultOrRequired(spec *OptionSpec, command string) (Value, string, bool, error) {
	if requiredFor(spec, command) {
		if spec.RequiredStanza {
			return Value{}, "", false, errkind.New(errkind.OptionRequiredError,
				"option '%s' is required for command '%s' (hint: does this stanza exist?)", spec.Name, command)
		}
		return Value{}, "", false, errkind.New(errkind.OptionRequiredError,
			"option '%s' is required for command '%s'", spec.Name, command)
	}
	if spec.Default == nil {
		return Value{}, "", false, nil
	}
	d := *spec.Default
	d.Source = SourceDefault
	form := ""
	switch d.Kind {
	case KindBool:
		if d.Bool {
			form = "y"
		} else {
			form = "n"
		}
	case KindInt:
		form = fmt.Sprintf("%d", d.Int)
	case KindString:
		form = d.Str
	}
	return d, form, true, nil
}
