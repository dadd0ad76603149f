package tomldoc

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "1.0", `"1.0"`},
		{"escapes", "a\"b\\c\n", `"a\"b\\c\n"`},
		{"control", "\x01", `"\u0001"`},
		{"bool", true, "true"},
		{"int", int64(3), "3"},
		{"float", 2.0, "2.0"},
		{"strings", []string{"a", "b"}, `["a", "b"]`},
		{"empty table", InlineTable{}, "{}"},
		{"table", InlineTable{{Key: "version", Value: "1"}, {Key: "default-features", Value: false}}, `{ version = "1", default-features = false }`},
		{"quoted key", InlineTable{{Key: "a b", Value: int64(1)}}, `{ "a b" = 1 }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in); got != tt.want {
				t.Errorf("Render(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderKey(t *testing.T) {
	tests := []struct {
		segs []string
		want string
	}{
		{[]string{"dependencies"}, "dependencies"},
		{[]string{"target", "cfg(unix)", "dependencies"}, `target."cfg(unix)".dependencies`},
		{[]string{"x86_64-pc-windows-gnu"}, "x86_64-pc-windows-gnu"},
	}
	for _, tt := range tests {
		if got := RenderKey(tt.segs...); got != tt.want {
			t.Errorf("RenderKey(%v) = %s, want %s", tt.segs, got, tt.want)
		}
	}
}

func TestCompareKeys(t *testing.T) {
	if CompareKeys("Alpha", "beta") >= 0 {
		t.Error("Alpha should sort before beta")
	}
	if CompareKeys("abc", "ABC") <= 0 {
		t.Error("ties should break by byte order (ABC < abc)")
	}
	if CompareKeys("serde", "serde") != 0 {
		t.Error("equal keys should compare 0")
	}
}

func TestInlineTable(t *testing.T) {
	var tbl InlineTable
	tbl.Set("version", "1")
	tbl.Set("optional", true)
	tbl.Set("version", "2")
	if v, _ := tbl.Get("version"); v != "2" {
		t.Errorf("version = %v, want 2", v)
	}
	tbl.Delete("version")
	if len(tbl) != 1 || tbl[0].Key != "optional" {
		t.Errorf("after delete = %v", tbl)
	}
}
