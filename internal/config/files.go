package config

import (
	"fmt"
	"sort"
	"strings"
)

// sectionName builds a config section header: "global", "global:<cmd>",
// "<stanza>", or "<stanza>:<cmd>".
func sectionName(scope, command string) string {
	if command == "" {
		return scope
	}
	return scope + ":" + command
}

// searchOrder returns the four sections to probe, in priority order, for
// a given stanza and command (§4.4 Phase 2): [stanza:command] ->
// [stanza] -> [global:command] -> [global].
func searchOrder(stanza, command string) []string {
	var order []string
	if stanza != "" {
		order = append(order, sectionName(stanza, command))
		order = append(order, sectionName(stanza, ""))
	}
	order = append(order, sectionName("global", command))
	order = append(order, sectionName("global", ""))
	return order
}

// MergeConfigFiles concatenates the main config text with each include's
// text, in the order given (caller sorts the config-include-path
// directory listing lexicographically before calling, per §4.4 Phase 2),
// and returns the merged ini store. A section that appears in more than
// one file accumulates its keys across files the same way repeated keys
// within one file do.
func MergeConfigFiles(mainText string, includeTexts []string) (*Ini, error) {
	merged := NewIni()

	texts := append([]string{mainText}, includeTexts...)
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		ini, err := ParseIni(strings.NewReader(text))
		if err != nil {
			return nil, err
		}
		merged.Merge(ini)
	}
	return merged, nil
}

// ResolveFromIni implements the option side of §4.4 Phase 2: for each
// registered option, search searchOrder(stanza, command) and take the
// first section the key appears in. Secure options are accepted here (a
// config file is where they belong); ParseArgs is what rejects them on
// the command line. Command-line-only options found in a config file are dropped with a
// warning; stanza-only options found in a global section are dropped
// with a warning. Returns the resolved raw options and the warnings
// produced, in the order they were found.
func ResolveFromIni(reg *Registry, ini *Ini, stanza, command string) (map[string]*RawOption, []string, error) {
	out := make(map[string]*RawOption)
	var warnings []string

	order := searchOrder(stanza, command)
	stanzaSections := map[string]bool{}
	if stanza != "" {
		stanzaSections[sectionName(stanza, command)] = true
		stanzaSections[sectionName(stanza, "")] = true
	}

	for _, name := range reg.Names() {
		spec := reg.Get(name)

		for _, section := range order {
			vals, ok := ini.GetList(section, name)
			if !ok {
				continue
			}

			if spec.CommandLineOnly {
				warnings = append(warnings, fmt.Sprintf(
					"option '%s' is command-line only and was ignored in section [%s]", name, section))
				break
			}
			if spec.StanzaOnly && !stanzaSections[section] {
				warnings = append(warnings, fmt.Sprintf(
					"option '%s' is stanza-only and was ignored in section [%s]", name, section))
				break
			}

			if spec.Kind != KindList && spec.Kind != KindHash && len(vals) > 1 {
				return nil, nil, fmt.Errorf(
					"config: option '%s' is set multiple times in section [%s]", name, section)
			}
			if spec.Kind == KindHash {
				for _, v := range vals {
					if !strings.Contains(v, "=") {
						return nil, nil, fmt.Errorf(
							"config: option '%s' requires key=value pairs, got %q", name, v)
					}
				}
			}

			out[name] = &RawOption{Values: append([]string{}, vals...), Source: SourceConfig}
			break
		}
	}

	return out, warnings, nil
}

// SortedIncludeNames sorts a directory listing of *.conf names
// lexicographically, the deterministic order §4.4 Phase 2 requires for
// config-include-path.
func SortedIncludeNames(names []string) []string {
	out := append([]string{}, names...)
	sort.Strings(out)
	return out
}
