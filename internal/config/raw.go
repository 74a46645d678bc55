package config

// RawOption is an option's value before Phase 3 type resolution: the raw
// string tokens supplied (one per occurrence, so list/hash options
// accumulate naturally), plus the negate/reset flags and the phase that
// produced it. Phase 3 turns a RawOption into a typed Value using the
// option's registered Kind/NumericForm.
type RawOption struct {
	Values []string
	Negate bool
	Reset  bool
	Source Source
}
