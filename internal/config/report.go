package config

import (
	"fmt"
	"sort"
	"strings"
)

// Report renders resolved for diagnostic output (e.g. `pgbackrest help`'s
// post-config summary), one "name=value (source)" line per set option,
// sorted by name. Secure options render as "<option-name>" instead of
// their value — the check-report behavior (§9 open question: this spec
// picks check-report over support-report, which instead omits the line
// entirely).
func Report(reg *Registry, resolved *ResolvedOptions) string {
	names := make([]string, 0, len(resolved.Values))
	for name := range resolved.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		spec := reg.Get(name)
		v := resolved.Values[name]

		b.WriteString(name)
		b.WriteByte('=')
		if spec != nil && spec.Secure {
			fmt.Fprintf(&b, "<%s>", name)
		} else {
			b.WriteString(renderValue(v))
		}
		fmt.Fprintf(&b, " (%s)\n", v.Source)
	}
	return b.String()
}

func renderValue(v Value) string {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return "y"
		}
		return "n"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindString:
		return v.Str
	case KindList:
		return strings.Join(v.List, ":")
	case KindHash:
		parts := make([]string, 0, len(v.Hash))
		keys := make([]string, 0, len(v.Hash))
		for k := range v.Hash {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+v.Hash[k])
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}
