package common

import (
	"strings"

	"github.com/spf13/cast"
)

var (
	truthyWords = map[string]bool{"1": true, "true": true, "on": true, "ativo": true, "active": true, "online": true}
	falsyWords  = map[string]bool{"0": true, "false": true, "off": true, "inativo": true, "inactive": true, "offline": true, "of": true}
)

// ParseFlag coerces loosely typed input into a boolean.
// The second return value is false when the input is absent or not recognised.
func ParseFlag(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case nil:
		return false, false
	case bool:
		return val, true
	case *bool:
		if val == nil {
			return false, false
		}
		return *val, true
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		if s == "" {
			return false, false
		}
		if truthyWords[s] {
			return true, true
		}
		if falsyWords[s] {
			return false, true
		}
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return false, false
		}
		return f != 0, true
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return false, false
		}
		return f != 0, true
	}
}

// FirstFlag parses the first key of m holding a non-nil value. Later keys are
// not consulted, so an unrecognised first value yields (false, false).
func FirstFlag(m map[string]interface{}, keys ...string) (bool, bool) {
	for _, k := range keys {
		if raw, exists := m[k]; exists && raw != nil {
			return ParseFlag(raw)
		}
	}
	return false, false
}
