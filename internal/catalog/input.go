package catalog

import (
	"strings"

	"github.com/maudia1/site/internal/pricing"
	"github.com/maudia1/site/pkg/common"
	"github.com/pkg/errors"
)

var blackFridayKeys = []string{"isBlackFriday", "blackFriday", "isBlack"}

// ProductInput is a loosely typed product payload. Presence of a key matters for updates.
type ProductInput map[string]interface{}

// DecodeProductInput parses a JSON object body
func DecodeProductInput(body []byte) (ProductInput, error) {
	in := ProductInput{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, errors.Wrap(err, "decode product")
	}
	return in, nil
}

func (in ProductInput) has(key string) bool {
	_, ok := in[key]
	return ok
}

// str returns the value when the key holds a string
func (in ProductInput) str(key string) (string, bool) {
	v, ok := in[key].(string)
	return v, ok
}

// text is the trimmed string value, or empty
func (in ProductInput) text(key string) string {
	v, _ := in.str(key)
	return strings.TrimSpace(v)
}

// truthy mirrors loose truthiness: absent, null, false, 0 and "" are all false
func (in ProductInput) truthy(key string) bool {
	switch v := in[key].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

func (in ProductInput) cents(key string) (int64, error) {
	d, ok := pricing.ParseAmount(in[key])
	if !ok {
		return 0, ErrInvalidPrice
	}
	if d.IsNegative() {
		return 0, ErrInvalidPrice
	}
	return pricing.ToCents(d), nil
}

// optionalCents parses a nullable price; zero or null clear it
func (in ProductInput) optionalCents(key string) (*int64, error) {
	if !in.truthy(key) {
		return nil, nil
	}
	c, err := in.cents(key)
	if err != nil {
		return nil, err
	}
	if c == 0 {
		return nil, nil
	}
	return &c, nil
}

// comboCents reads the "Leve 2" price from any accepted alias
func (in ProductInput) comboCents() *int64 {
	d, ok := pricing.ExtractComboPrice(in)
	if !ok {
		return nil
	}
	c := pricing.ToCents(d)
	return &c
}

func (in ProductInput) hasCombo() bool {
	for _, k := range pricing.ComboKeys {
		if in.has(k) {
			return true
		}
	}
	return false
}

// tags joins an array with "," and passes strings through
func (in ProductInput) tags() string {
	switch v := in["tags"].(type) {
	case string:
		return strings.TrimSpace(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, t := range v {
			s := strings.TrimSpace(toString(t))
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	}
	return ""
}

func (in ProductInput) images() string {
	list := []string{}
	switch v := in["images"].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				list = append(list, strings.TrimSpace(s))
			}
		}
	case []string:
		list = append(list, v...)
	case string:
		if strings.TrimSpace(v) != "" {
			list = append(list, strings.TrimSpace(v))
		}
	}
	out, _ := json.MarshalToString(list)
	return out
}

func (in ProductInput) specs() string {
	specs, ok := in["specs"].(map[string]interface{})
	if !ok || specs == nil {
		return "{}"
	}
	out, err := json.MarshalToString(specs)
	if err != nil {
		return "{}"
	}
	return out
}

// flag returns the first recognised flag among keys that are present
func (in ProductInput) flag(keys ...string) (value bool, present bool, ok bool) {
	for _, k := range keys {
		raw, exists := in[k]
		if !exists {
			continue
		}
		b, recognised := common.ParseFlag(raw)
		return b, true, recognised
	}
	return false, false, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		out, _ := json.MarshalToString(s)
		return out
	}
}
