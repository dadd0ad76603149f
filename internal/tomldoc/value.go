package tomldoc

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// KeyValue is one key of an InlineTable.
type KeyValue struct {
	Key   string
	Value any
}

// InlineTable is an ordered table value. Decoded inline tables keep their
// source key order so re-rendering them does not shuffle keys.
type InlineTable []KeyValue

// Get returns the value stored under key.
func (t InlineTable) Get(key string) (any, bool) {
	for _, kv := range t {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (t InlineTable) Keys() []string {
	keys := make([]string, len(t))
	for i, kv := range t {
		keys[i] = kv.Key
	}
	return keys
}

// Set replaces the value under key, or appends it.
func (t *InlineTable) Set(key string, v any) {
	for i := range *t {
		if (*t)[i].Key == key {
			(*t)[i].Value = v
			return
		}
	}
	*t = append(*t, KeyValue{Key: key, Value: v})
}

// Delete removes key if present.
func (t *InlineTable) Delete(key string) {
	*t = slices.DeleteFunc(*t, func(kv KeyValue) bool { return kv.Key == key })
}

// decodeValue decodes the raw text of a single value.
func decodeValue(raw []byte) (any, error) {
	buf := make([]byte, 0, len(raw)+4)
	buf = append(buf, "v = "...)
	buf = append(buf, raw...)

	var m map[string]any
	if err := toml.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("decoding value %q: %w", raw, err)
	}
	v := m["v"]
	if tbl, ok := v.(map[string]any); ok && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return fromMap(tbl, inlineKeys(raw)), nil
	}
	return normalize(v), nil
}

// fromMap converts a decoded map into an InlineTable, listing the keys in
// order first and the rest alphabetically.
func fromMap(m map[string]any, order []string) InlineTable {
	out := make(InlineTable, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range order {
		if v, ok := m[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, KeyValue{Key: k, Value: normalize(v)})
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		out = append(out, KeyValue{Key: k, Value: normalize(m[k])})
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return fromMap(x, nil)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// Render formats v as canonical TOML value text.
func Render(v any) string {
	switch x := v.(type) {
	case string:
		return Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return renderFloat(x)
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = Quote(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = Render(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case InlineTable:
		if len(x) == 0 {
			return "{}"
		}
		parts := make([]string, len(x))
		for i, kv := range x {
			parts[i] = RenderKey(kv.Key) + " = " + Render(kv.Value)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case map[string]any:
		return Render(fromMap(x, nil))
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func renderFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Quote renders s as a TOML basic string.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// RenderKey renders a dotted key, quoting segments that are not bare.
func RenderKey(segments ...string) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s
		if s == "" || strings.IndexFunc(s, func(r rune) bool { return r > 0x7f || !isBare(byte(r)) }) >= 0 {
			parts[i] = Quote(s)
		}
	}
	return strings.Join(parts, ".")
}

// CompareKeys orders keys case-insensitively, breaking ties by byte order.
func CompareKeys(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
