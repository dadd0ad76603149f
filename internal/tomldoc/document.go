package tomldoc

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Document is a parsed TOML file that remembers the raw text of every line.
type Document struct {
	root   *Table
	tables []*Table
}

// Table is one [header] section of a Document, or the root section before
// the first header.
type Table struct {
	path   []string
	header []byte
	array  bool
	items  []*item
}

// item is a key/value entry, or trivia (comment or blank line) when key is nil.
type item struct {
	key      []string
	raw      []byte
	valStart int
	valEnd   int
}

// Parse validates data as TOML and splits it into tables and items.
func Parse(data []byte) (*Document, error) {
	var probe map[string]any
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decoding TOML: %w", err)
	}

	d := &Document{root: &Table{}}
	cur := d.root
	for p := 0; p < len(data); {
		start := p
		q := skipBlank(data, p)
		switch {
		case q >= len(data) || data[q] == '\n' || data[q] == '\r' || data[q] == '#':
			end := lineEnd(data, q)
			cur.items = append(cur.items, &item{raw: data[start:end]})
			p = end
		case data[q] == '[':
			path, array, end, err := parseHeader(data, q)
			if err != nil {
				return nil, err
			}
			cur = &Table{path: path, header: data[start:end], array: array}
			d.tables = append(d.tables, cur)
			p = end
		default:
			key, eq, err := parseKey(data, q, '=')
			if err != nil {
				return nil, err
			}
			vs := skipBlank(data, eq+1)
			ve, err := scanValue(data, vs)
			if err != nil {
				return nil, fmt.Errorf("scanning value of %s: %w", RenderKey(key...), err)
			}
			end := lineEnd(data, ve)
			cur.items = append(cur.items, &item{key: key, raw: data[start:end], valStart: vs - start, valEnd: ve - start})
			p = end
		}
	}
	return d, nil
}

// Bytes renders the document. Untouched items are emitted verbatim.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	write := func(b []byte) {
		if len(b) == 0 {
			return
		}
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
			buf.WriteByte('\n')
		}
		buf.Write(b)
	}
	for _, it := range d.root.items {
		write(it.raw)
	}
	for _, t := range d.tables {
		write(t.header)
		for _, it := range t.items {
			write(it.raw)
		}
	}
	return buf.Bytes()
}

// String is Bytes as a string.
func (d *Document) String() string { return string(d.Bytes()) }

// Decode unmarshals the current document into v.
func (d *Document) Decode(v any) error {
	if err := toml.Unmarshal(d.Bytes(), v); err != nil {
		return fmt.Errorf("decoding TOML: %w", err)
	}
	return nil
}

// Root returns the table holding the entries before the first header.
func (d *Document) Root() *Table { return d.root }

// Tables returns every header table (excluding arrays of tables) in order.
func (d *Document) Tables() []*Table {
	out := make([]*Table, 0, len(d.tables))
	for _, t := range d.tables {
		if !t.array {
			out = append(out, t)
		}
	}
	return out
}

// Table returns the table with exactly this header path, or nil. It never
// creates anything.
func (d *Document) Table(path ...string) *Table {
	if len(path) == 0 {
		return d.root
	}
	for _, t := range d.tables {
		if !t.array && slices.Equal(t.path, path) {
			return t
		}
	}
	return nil
}

// Children returns the header tables whose path is prefix plus one segment.
func (d *Document) Children(prefix ...string) []*Table {
	var out []*Table
	for _, t := range d.tables {
		if !t.array && len(t.path) == len(prefix)+1 && slices.Equal(t.path[:len(prefix)], prefix) {
			out = append(out, t)
		}
	}
	return out
}

// EnsureTable returns the table at path, creating an empty one if needed.
// A new table is placed after the last table sharing the longest path
// prefix with it, or at the end of the document.
func (d *Document) EnsureTable(path ...string) *Table {
	if t := d.Table(path...); t != nil {
		return t
	}

	at, best := -1, 0
	for i, t := range d.tables {
		if n := commonPrefix(t.path, path); n > 0 && n >= best {
			at, best = i, n
		}
	}
	atEnd := at == -1 || at == len(d.tables)-1
	if at == -1 {
		at = len(d.tables) - 1
	}

	prevBlank := true
	if prev := d.lastLine(at); prev != nil {
		prevBlank = len(bytes.TrimSpace(prev)) == 0
	}

	header := "[" + RenderKey(path...) + "]\n"
	t := &Table{path: slices.Clone(path)}
	switch {
	case !prevBlank:
		t.header = []byte("\n" + header)
	case atEnd:
		t.header = []byte(header)
	default:
		// Keep the blank line that separated the previous table from the
		// next one.
		t.header = []byte(header)
		t.items = []*item{{raw: []byte("\n")}}
	}

	d.tables = slices.Insert(d.tables, at+1, t)
	return t
}

// lastLine returns the raw text of the last line of the section at index i
// (-1 for the root), or nil when the document is empty up to there.
func (d *Document) lastLine(i int) []byte {
	for ; i >= -1; i-- {
		t := d.root
		if i >= 0 {
			t = d.tables[i]
		}
		if n := len(t.items); n > 0 {
			return t.items[n-1].raw
		}
		if len(t.header) > 0 {
			return t.header
		}
	}
	return nil
}

// RemoveTable deletes a header table and all of its lines.
func (d *Document) RemoveTable(t *Table) bool {
	i := slices.Index(d.tables, t)
	if i < 0 {
		return false
	}
	d.tables = slices.Delete(d.tables, i, i+1)
	return true
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Path returns the header path of the table (nil for the root).
func (t *Table) Path() []string { return slices.Clone(t.path) }

// Keys returns the distinct first key segments of the table's entries, in
// source order.
func (t *Table) Keys() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, it := range t.items {
		if it.key != nil && !seen[it.key[0]] {
			seen[it.key[0]] = true
			keys = append(keys, it.key[0])
		}
	}
	return keys
}

// Len returns the number of distinct keys.
func (t *Table) Len() int { return len(t.Keys()) }

// Has reports whether key is present.
func (t *Table) Has(key string) bool { return len(t.indexes(key)) > 0 }

func (t *Table) indexes(key string) []int {
	var idx []int
	for i, it := range t.items {
		if it.key != nil && it.key[0] == key {
			idx = append(idx, i)
		}
	}
	return idx
}

// Get decodes the value stored under key. Dotted entries sharing key as
// their first segment are returned together as an InlineTable.
func (t *Table) Get(key string) (any, bool, error) {
	idx := t.indexes(key)
	if len(idx) == 0 {
		return nil, false, nil
	}

	first := t.items[idx[0]]
	if len(idx) == 1 && len(first.key) == 1 {
		v, err := decodeValue(first.value())
		if err != nil {
			return nil, true, fmt.Errorf("reading %s: %w", RenderKey(key), err)
		}
		return v, true, nil
	}

	var buf bytes.Buffer
	order := make([]string, 0, len(idx))
	for _, i := range idx {
		it := t.items[i]
		buf.Write(it.raw)
		if !bytes.HasSuffix(it.raw, []byte("\n")) {
			buf.WriteByte('\n')
		}
		if len(it.key) > 1 {
			order = append(order, it.key[1])
		}
	}
	var m map[string]any
	if err := toml.Unmarshal(buf.Bytes(), &m); err != nil {
		return nil, true, fmt.Errorf("reading %s: %w", RenderKey(key), err)
	}
	sub, ok := m[key].(map[string]any)
	if !ok {
		return normalize(m[key]), true, nil
	}
	return fromMap(sub, order), true, nil
}

// Entries decodes every key of the table in order.
func (t *Table) Entries() (InlineTable, error) {
	keys := t.Keys()
	out := make(InlineTable, 0, len(keys))
	for _, k := range keys {
		v, _, err := t.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{Key: k, Value: v})
	}
	return out, nil
}

// Set stores v under key. An existing single entry keeps its indentation and
// trailing comment; only the value text changes. A new key is appended after
// the table's last entry.
func (t *Table) Set(key string, v any) {
	rendered := Render(v)
	idx := t.indexes(key)
	if len(idx) == 0 {
		t.appendEntry(key, rendered)
		return
	}

	first := t.items[idx[0]]
	if len(idx) == 1 && len(first.key) == 1 {
		first.setValue(rendered)
		return
	}

	t.items[idx[0]] = newEntry(indentOf(first.raw), key, rendered)
	for j := len(idx) - 1; j >= 1; j-- {
		t.items = slices.Delete(t.items, idx[j], idx[j]+1)
	}
}

// SetField rewrites only the value of field inside the entry stored under
// key, for a dotted entry (`key.field = v`) or an inline table
// (`key = { field = v }`). It reports false when there is no such field.
func (t *Table) SetField(key, field string, v any) bool {
	rendered := Render(v)
	idx := t.indexes(key)
	for _, i := range idx {
		it := t.items[i]
		if len(it.key) == 2 && it.key[1] == field {
			it.setValue(rendered)
			return true
		}
	}
	if len(idx) != 1 || len(t.items[idx[0]].key) != 1 {
		return false
	}

	it := t.items[idx[0]]
	vs, ve, ok := inlineField(it.value(), field)
	if !ok {
		return false
	}
	raw := make([]byte, 0, len(it.raw)+len(rendered))
	raw = append(raw, it.raw[:it.valStart+vs]...)
	raw = append(raw, rendered...)
	raw = append(raw, it.raw[it.valStart+ve:]...)
	it.raw = raw
	it.valEnd += len(rendered) - (ve - vs)
	return true
}

// SetAll makes the table's entries match tbl: keys in tbl are set, keys
// missing from tbl are deleted.
func (t *Table) SetAll(tbl InlineTable) {
	for _, k := range t.Keys() {
		if _, ok := tbl.Get(k); !ok {
			t.Delete(k)
		}
	}
	for _, kv := range tbl {
		t.Set(kv.Key, kv.Value)
	}
}

// Delete removes key and the comment lines directly above it.
func (t *Table) Delete(key string) bool {
	idx := t.indexes(key)
	if len(idx) == 0 {
		return false
	}
	for j := len(idx) - 1; j >= 0; j-- {
		t.items = slices.Delete(t.items, idx[j], idx[j]+1)
	}
	i := idx[0]
	for i > 0 && t.items[i-1].isComment() {
		t.items = slices.Delete(t.items, i-1, i)
		i--
	}
	return true
}

// IsSorted reports whether the keys are in CompareKeys order.
func (t *Table) IsSorted() bool {
	groups, _ := t.groups()
	return slices.IsSortedFunc(groups, compareGroups)
}

// SortKeys reorders the entries by CompareKeys. Comments and blank lines
// directly above an entry move with it; trailing trivia stays at the end.
// It reports whether anything moved.
func (t *Table) SortKeys() bool {
	groups, tail := t.groups()
	if slices.IsSortedFunc(groups, compareGroups) {
		return false
	}
	slices.SortStableFunc(groups, compareGroups)

	items := make([]*item, 0, len(t.items))
	for _, g := range groups {
		items = append(items, g.items...)
	}
	t.items = append(items, tail...)
	return true
}

type group struct {
	key   string
	items []*item
}

func compareGroups(a, b group) int { return CompareKeys(a.key, b.key) }

func (t *Table) groups() ([]group, []*item) {
	var groups []group
	var pending []*item
	for _, it := range t.items {
		if it.key == nil {
			pending = append(pending, it)
			continue
		}
		if n := len(groups); n > 0 && len(pending) == 0 && groups[n-1].key == it.key[0] {
			groups[n-1].items = append(groups[n-1].items, it)
			continue
		}
		groups = append(groups, group{key: it.key[0], items: append(pending, it)})
		pending = nil
	}
	return groups, pending
}

func (t *Table) appendEntry(key, rendered string) {
	pos, indent := 0, ""
	for i, it := range t.items {
		if it.key != nil {
			pos, indent = i+1, indentOf(it.raw)
		}
	}
	if pos == 0 {
		for i, it := range t.items {
			if it.isComment() {
				pos = i + 1
			}
		}
	}
	if pos == 0 && len(t.header) > 0 && !bytes.HasSuffix(t.header, []byte("\n")) {
		t.header = append(slices.Clip(t.header), '\n')
	}
	t.items = slices.Insert(t.items, pos, newEntry(indent, key, rendered))
}

func newEntry(indent, key, rendered string) *item {
	line := indent + RenderKey(key) + " = "
	start := len(line)
	line += rendered
	return &item{key: []string{key}, raw: []byte(line + "\n"), valStart: start, valEnd: len(line)}
}

func (it *item) value() []byte { return it.raw[it.valStart:it.valEnd] }

func (it *item) setValue(rendered string) {
	raw := make([]byte, 0, len(it.raw)-(it.valEnd-it.valStart)+len(rendered))
	raw = append(raw, it.raw[:it.valStart]...)
	raw = append(raw, rendered...)
	raw = append(raw, it.raw[it.valEnd:]...)
	it.raw = raw
	it.valEnd = it.valStart + len(rendered)
}

func (it *item) isComment() bool {
	return it.key == nil && strings.HasPrefix(strings.TrimSpace(string(it.raw)), "#")
}

func indentOf(raw []byte) string {
	return string(raw[:skipBlank(raw, 0)])
}
