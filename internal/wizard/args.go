package wizard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Args is the positional argument list of a command, decoded from a JSON
// array. Accessors coerce values the way the host's JSON layer does.
type Args struct {
	items []gjson.Result
}

// ParseArgs decodes a JSON array. Empty input yields an empty list.
func ParseArgs(data []byte) (Args, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Args{}, nil
	}
	if !gjson.ValidBytes(data) {
		return Args{}, fmt.Errorf("args are not valid JSON")
	}
	res := gjson.ParseBytes(data)
	if res.Type == gjson.Null {
		return Args{}, nil
	}
	if !res.IsArray() {
		return Args{}, fmt.Errorf("args must be a JSON array, got %s", res.Type)
	}
	return Args{items: res.Array()}, nil
}

// NewArgs builds an argument list from Go values.
func NewArgs(values ...any) (Args, error) {
	if values == nil {
		values = []any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return Args{}, fmt.Errorf("failed to encode args: %w", err)
	}
	return ParseArgs(data)
}

// StringArgs builds an argument list of plain strings.
func StringArgs(values ...string) Args {
	items := make([]gjson.Result, len(values))
	for i, v := range values {
		items[i] = gjson.Result{Type: gjson.String, Str: v, Raw: strconv.Quote(v)}
	}
	return Args{items: items}
}

// Len returns the number of arguments.
func (a Args) Len() int { return len(a.items) }

// IsNull reports whether the argument at i is missing or null.
func (a Args) IsNull(i int) bool {
	return i < 0 || i >= len(a.items) || a.items[i].Type == gjson.Null
}

func (a Args) get(i int) (gjson.Result, error) {
	if i < 0 || i >= len(a.items) {
		return gjson.Result{}, fmt.Errorf("Index %d out of range [0..%d)", i, len(a.items))
	}
	v := a.items[i]
	if v.Type == gjson.Null {
		return gjson.Result{}, fmt.Errorf("Value at %d is null.", i)
	}
	return v, nil
}

// String returns the argument at i as text. Numbers, booleans and nested
// values are returned in their JSON spelling.
func (a Args) String(i int) (string, error) {
	v, err := a.get(i)
	if err != nil {
		return "", err
	}
	if v.Type == gjson.String {
		return v.Str, nil
	}
	return v.Raw, nil
}

// Bool returns the argument at i as a boolean. The strings "true" and
// "false" are accepted in any case.
func (a Args) Bool(i int) (bool, error) {
	v, err := a.get(i)
	if err != nil {
		return false, err
	}
	switch v.Type {
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.String:
		switch {
		case strings.EqualFold(v.Str, "true"):
			return true, nil
		case strings.EqualFold(v.Str, "false"):
			return false, nil
		}
	}
	return false, fmt.Errorf("Value %s at %d of type %s cannot be converted to boolean", v.Raw, i, v.Type)
}

// Object returns the argument at i, which must be a JSON object.
func (a Args) Object(i int) (gjson.Result, error) {
	v, err := a.get(i)
	if err != nil {
		return gjson.Result{}, err
	}
	if !v.IsObject() {
		return gjson.Result{}, fmt.Errorf("Value %s at %d of type %s cannot be converted to JSONObject", v.Raw, i, v.Type)
	}
	return v, nil
}

// MarshalJSON encodes the arguments back into a JSON array.
func (a Args) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range a.items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(v.Raw)
	}
	b.WriteByte(']')
	return []byte(b.String()), nil
}

// optInt reads a numeric option leniently: numbers are truncated, numeric
// strings are parsed and everything else is zero.
func optInt(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return truncInt32(v.Num)
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		return truncInt32(f)
	}
	return 0
}

// truncInt32 truncates f toward zero and saturates at the int32 range.
// NaN is zero.
func truncInt32(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// optBool reads a boolean option leniently: true or the string "true".
func optBool(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.String:
		return strings.EqualFold(v.Str, "true")
	}
	return false
}
