package config

import (
	"fmt"
	"strings"

	"github.com/aalhour/pgbackrest-go/internal/errkind"
)

// ParsedArgs is the result of Phase 1: the command, its parameters, and
// the raw option values supplied on the command line.
type ParsedArgs struct {
	Command string
	Params  []string
	Options map[string]*RawOption
}

// ParseArgs implements §4.4 Phase 1: a single getopt-long-style pass over
// argv. The first non-flag token is the command; every later non-flag
// token is a command parameter, and flags may appear before or after the
// command. Secure options are rejected. "--name=value", "--name value", "--no-name"
// (negate), and "--reset-name" (reset) are recognized; negate and reset
// are mutually exclusive with each other and with setting a value,
// list/hash options accumulate across repeated flags, and a second
// occurrence of a single-value option is an error.
func ParseArgs(reg *Registry, argv []string) (*ParsedArgs, error) {
	result := &ParsedArgs{Options: make(map[string]*RawOption)}

	i := 0
	for i < len(argv) {
		arg := argv[i]

		if !strings.HasPrefix(arg, "--") {
			if result.Command == "" {
				if !commandSet[arg] {
					return nil, errkind.New(errkind.CommandInvalidError, "invalid command '%s'", arg)
				}
				result.Command = arg
			} else {
				result.Params = append(result.Params, arg)
			}
			i++
			continue
		}

		body := arg[2:]
		if body == "" {
			return nil, errkind.New(errkind.OptionInvalidError, "invalid option '%s'", arg)
		}

		name := body
		inline := ""
		hasInline := false
		if eq := strings.IndexByte(body, '='); eq >= 0 {
			name = body[:eq]
			inline = body[eq+1:]
			hasInline = true
		}

		negate := false
		reset := false
		lookup := name

		// A name is only treated as a negate/reset form when it is not
		// itself a registered option — "no-config" is its own option,
		// distinct from negating "config" (which isn't negatable anyway).
		if reg.Get(name) == nil {
			switch {
			case strings.HasPrefix(name, "no-"):
				negate = true
				lookup = strings.TrimPrefix(name, "no-")
			case strings.HasPrefix(name, "reset-"):
				reset = true
				lookup = strings.TrimPrefix(name, "reset-")
			}
		}

		spec := reg.Get(lookup)
		if spec == nil || (negate && !spec.Negatable) || (reset && !spec.Resettable) {
			return nil, errkind.New(errkind.OptionInvalidError, "invalid option '--%s'", name)
		}
		if spec.Secure {
			return nil, errkind.New(errkind.OptionInvalidError, "option '%s' is not allowed on the command line", spec.Name)
		}

		existing := result.Options[spec.Name]

		if negate || reset {
			if hasInline {
				return nil, errkind.New(errkind.OptionInvalidError, "option '--%s' does not take a value", name)
			}
			if existing != nil {
				if negate && existing.Negate {
					return nil, errkind.New(errkind.OptionInvalidError, "option '%s' is already negated", spec.Name)
				}
				if reset && existing.Reset {
					return nil, errkind.New(errkind.OptionInvalidError, "option '%s' is already reset", spec.Name)
				}
				if (negate && existing.Reset) || (reset && existing.Negate) {
					return nil, errkind.New(errkind.OptionInvalidError,
						"option '%s' cannot be both negated and reset", spec.Name)
				}
				if len(existing.Values) > 0 {
					return nil, errkind.New(errkind.OptionInvalidError,
						"option '%s' cannot be set and negated/reset", spec.Name)
				}
			}
			result.Options[spec.Name] = &RawOption{Negate: negate, Reset: reset, Source: SourceParam}
			i++
			continue
		}

		if existing != nil && (existing.Negate || existing.Reset) {
			return nil, errkind.New(errkind.OptionInvalidError, "option '%s' cannot be set and negated/reset", spec.Name)
		}

		var raw string
		if spec.Kind == KindBool && !hasInline {
			raw = "y"
		} else if hasInline {
			raw = inline
		} else {
			if i+1 >= len(argv) {
				return nil, errkind.New(errkind.OptionInvalidError, "option '--%s' requires an argument", name)
			}
			raw = argv[i+1]
			i++
		}
		i++

		if existing == nil {
			existing = &RawOption{Source: SourceParam}
			result.Options[spec.Name] = existing
		}
		if spec.Kind != KindList && spec.Kind != KindHash && len(existing.Values) > 0 {
			return nil, errkind.New(errkind.OptionInvalidError, "option '%s' cannot be set multiple times", spec.Name)
		}
		if spec.Kind == KindHash && !strings.Contains(raw, "=") {
			return nil, fmt.Errorf("config: option '%s' requires key=value pairs, got %q", spec.Name, raw)
		}
		existing.Values = append(existing.Values, raw)
	}

	return result, nil
}
