package tomldoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var errUnterminated = errors.New("unterminated string")

func isBare(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// skipBlank skips spaces and tabs.
func skipBlank(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == '\t') {
		i++
	}
	return i
}

// lineEnd returns the offset just past the newline that ends the line
// containing i, or len(b).
func lineEnd(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

// skipString returns the offset just past the string literal starting at i.
func skipString(b []byte, i int) (int, error) {
	switch {
	case bytes.HasPrefix(b[i:], []byte(`"""`)):
		for j := i + 3; j < len(b); j++ {
			if b[j] == '\\' {
				j++
				continue
			}
			if bytes.HasPrefix(b[j:], []byte(`"""`)) {
				return closeMultiline(b, j+3, '"'), nil
			}
		}
	case bytes.HasPrefix(b[i:], []byte(`'''`)):
		if j := bytes.Index(b[i+3:], []byte(`'''`)); j >= 0 {
			return closeMultiline(b, i+3+j+3, '\''), nil
		}
	case b[i] == '"':
		for j := i + 1; j < len(b); j++ {
			switch b[j] {
			case '\\':
				j++
			case '"':
				return j + 1, nil
			case '\n':
				return 0, fmt.Errorf("%w at offset %d", errUnterminated, i)
			}
		}
	case b[i] == '\'':
		if j := bytes.IndexAny(b[i+1:], "'\n"); j >= 0 && b[i+1+j] == '\'' {
			return i + 1 + j + 1, nil
		}
	}
	return 0, fmt.Errorf("%w at offset %d", errUnterminated, i)
}

// closeMultiline absorbs up to two quote characters that may directly follow
// a multi-line string delimiter (`""""a"""""` is legal).
func closeMultiline(b []byte, j int, q byte) int {
	for n := 0; n < 2 && j < len(b) && b[j] == q; n++ {
		j++
	}
	return j
}

// parseKey parses a possibly dotted key starting at i and returns its
// segments and the offset of the stop byte ('=' or ']').
func parseKey(b []byte, i int, stop byte) ([]string, int, error) {
	var key []string
	for {
		i = skipBlank(b, i)
		if i >= len(b) {
			return nil, i, fmt.Errorf("unexpected end of input in key")
		}
		switch c := b[i]; {
		case c == '"':
			end, err := skipString(b, i)
			if err != nil {
				return nil, i, err
			}
			seg, err := strconv.Unquote(string(b[i:end]))
			if err != nil {
				return nil, i, fmt.Errorf("decoding quoted key at offset %d: %w", i, err)
			}
			key = append(key, seg)
			i = end
		case c == '\'':
			end, err := skipString(b, i)
			if err != nil {
				return nil, i, err
			}
			key = append(key, string(b[i+1:end-1]))
			i = end
		case isBare(c):
			j := i
			for j < len(b) && isBare(b[j]) {
				j++
			}
			key = append(key, string(b[i:j]))
			i = j
		default:
			return nil, i, fmt.Errorf("unexpected character %q in key at offset %d", c, i)
		}

		i = skipBlank(b, i)
		if i < len(b) && b[i] == '.' {
			i++
			continue
		}
		if i < len(b) && b[i] == stop {
			return key, i, nil
		}
		return nil, i, fmt.Errorf("expected %q after key at offset %d", stop, i)
	}
}

// parseHeader parses a [table] or [[array]] header starting at i and
// returns the path, whether it is an array of tables, and the end of line.
func parseHeader(b []byte, i int) ([]string, bool, int, error) {
	array := i+1 < len(b) && b[i+1] == '['
	start := i + 1
	if array {
		start++
	}
	path, end, err := parseKey(b, start, ']')
	if err != nil {
		return nil, false, 0, fmt.Errorf("parsing table header: %w", err)
	}
	if array {
		if end+1 >= len(b) || b[end+1] != ']' {
			return nil, false, 0, fmt.Errorf("unterminated array-of-tables header at offset %d", i)
		}
		end++
	}
	return path, array, lineEnd(b, end+1), nil
}

// scanValue returns the offset just past the value starting at i, excluding
// trailing whitespace and comments. Arrays may span lines.
func scanValue(b []byte, i int) (int, error) {
	depth := 0
	last := i
	for i < len(b) {
		switch b[i] {
		case '"', '\'':
			j, err := skipString(b, i)
			if err != nil {
				return 0, err
			}
			i, last = j, j
			continue
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		case '#':
			if depth == 0 {
				return last, nil
			}
			for i < len(b) && b[i] != '\n' {
				i++
			}
			continue
		case '\n':
			if depth == 0 {
				return last, nil
			}
		case ' ', '\t', '\r':
			i++
			continue
		}
		i++
		last = i
	}
	return last, nil
}

// inlineKeys returns the top-level keys of an inline table in source order.
func inlineKeys(b []byte) []string {
	i := bytes.IndexByte(b, '{')
	if i < 0 {
		return nil
	}
	i++

	var keys []string
	seen := make(map[string]bool)
	for i < len(b) {
		for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\r' || b[i] == '\n') {
			i++
		}
		if i >= len(b) || b[i] == '}' {
			break
		}
		key, eq, err := parseKey(b, i, '=')
		if err != nil {
			break
		}
		if !seen[key[0]] {
			seen[key[0]] = true
			keys = append(keys, key[0])
		}
		i = skipInlineValue(b, eq+1)
		if i < len(b) && b[i] == ',' {
			i++
		}
	}
	return keys
}

// skipInlineValue returns the offset of the ',' or '}' that ends the inline
// table value starting at i.
func skipInlineValue(b []byte, i int) int {
	depth := 0
	for i < len(b) {
		switch b[i] {
		case '"', '\'':
			j, err := skipString(b, i)
			if err != nil {
				return len(b)
			}
			i = j
			continue
		case '[', '{':
			depth++
		case ']', '}':
			if depth == 0 {
				return i
			}
			depth--
		case ',':
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return i
}

// inlineField returns the span of the value stored under the top-level key
// field of the inline table in b.
func inlineField(b []byte, field string) (int, int, bool) {
	i := bytes.IndexByte(b, '{')
	if i < 0 {
		return 0, 0, false
	}
	i++
	for i < len(b) {
		for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\r' || b[i] == '\n') {
			i++
		}
		if i >= len(b) || b[i] == '}' {
			break
		}
		key, eq, err := parseKey(b, i, '=')
		if err != nil {
			break
		}
		vs := skipBlank(b, eq+1)
		i = skipInlineValue(b, vs)
		if len(key) == 1 && key[0] == field {
			ve := i
			for ve > vs && (b[ve-1] == ' ' || b[ve-1] == '\t' || b[ve-1] == '\r' || b[ve-1] == '\n') {
				ve--
			}
			return vs, ve, true
		}
		if i < len(b) && b[i] == ',' {
			i++
		}
	}
	return 0, 0, false
}
