package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizeRe = regexp.MustCompile(`^([0-9]+)([kmgtp]?)(i?b)?$`)

// sizeMultipliers maps a unit letter to its power-of-1024 multiplier; both
// "kb" and "kib" resolve to the same 1024-based multiplier (§8 S1: this
// module does not distinguish SI/binary prefixes).
var sizeMultipliers = map[string]int64{
	"":  1,
	"k": 1024,
	"m": 1024 * 1024,
	"g": 1024 * 1024 * 1024,
	"t": 1024 * 1024 * 1024 * 1024,
	"p": 1024 * 1024 * 1024 * 1024 * 1024,
}

// ParseSize parses a size option value of the form <int>[kmgtp](b|ib|)?,
// returning the value in bytes (§4.4 Phase 3, §8 S1).
func ParseSize(raw string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("value '%s' is not valid", raw)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value '%s' is not valid", raw)
	}
	return n * sizeMultipliers[m[2]], nil
}

var timeRe = regexp.MustCompile(`^([0-9]+)(ms|s|m|h|d|w)?$`)

// timeMultipliers maps a unit suffix to its value in milliseconds.
var timeMultipliers = map[string]int64{
	"":   1000, // bare integer is seconds, matching pgBackRest's time options
	"ms": 1,
	"s":  1000,
	"m":  60 * 1000,
	"h":  60 * 60 * 1000,
	"d":  24 * 60 * 60 * 1000,
	"w":  7 * 24 * 60 * 60 * 1000,
}

// ParseTime parses a time option value of the form <int>(ms|s|m|h|d|w),
// returning the value in milliseconds (§4.4 Phase 3, §8 S2).
func ParseTime(raw string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("value '%s' is not valid", raw)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value '%s' is not valid", raw)
	}
	return n * timeMultipliers[m[2]], nil
}

// ParseBool parses a y/n option value (§4.4 Phase 3).
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y":
		return true, nil
	case "n":
		return false, nil
	default:
		return false, fmt.Errorf("value '%s' is not valid, expected 'y' or 'n'", raw)
	}
}
