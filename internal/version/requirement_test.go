package version

import (
	"errors"
	"testing"

	"github.com/crateops/cargo-edit/internal/errs"
)

func TestFormatRequirement(t *testing.T) {
	tests := []struct {
		name    string
		version string
		method  UpgradeMethod
		want    string
	}{
		{"exact", "1.2.3", Exact, "1.2.3"},
		{"patch", "1.2.3", Patch, "~1.2.3"},
		{"minor", "1.2.3", Minor, "^1.2.3"},
		{"all", "1.2.3", All, ">=1.2.3"},
		{"minor zero major", "0.2.3", Minor, "^0.2.3"},
		{"minor zero minor", "0.0.3", Minor, "^0.0.3"},
		{"prerelease kept", "1.0.0-beta.1", Minor, "^1.0.0-beta.1"},
		{"metadata dropped", "1.0.0+build.5", Exact, "1.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVersion(tt.version)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.version, err)
			}
			got := FormatRequirement(v, tt.method).String()
			if got != tt.want {
				t.Errorf("FormatRequirement(%s, %s) = %q, want %q", tt.version, tt.method, got, tt.want)
			}
		})
	}
}

func TestFormatRequirement_RoundTripSatisfied(t *testing.T) {
	versions := []string{"0.0.1", "0.0.9", "0.1.0", "0.2.3", "1.0.0", "1.2.3", "2.10.7", "10.0.0"}
	methods := []UpgradeMethod{Exact, Patch, Minor, All}

	for _, vs := range versions {
		for _, m := range methods {
			v, err := ParseVersion(vs)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", vs, err)
			}
			formatted := FormatRequirement(v, m)
			req, err := ParseRequirement(formatted.String())
			if err != nil {
				t.Errorf("ParseRequirement(%q) error: %v", formatted, err)
				continue
			}
			if !req.Matches(v) {
				t.Errorf("requirement %q does not match %s", req, vs)
			}
		}
	}
}

func TestCaretRule(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^0.0.3", "0.0.4", false},
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{">=1.2.3", "7.0.0", true},
		{"1.2.3", "1.4.0", true},
		{"=1.2.3", "1.2.4", false},
		{">=1, <2", "1.5.0", true},
		{">=1, <2", "2.0.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.req+"/"+tt.version, func(t *testing.T) {
			req, err := ParseRequirement(tt.req)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.req, err)
			}
			v, err := ParseVersion(tt.version)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.version, err)
			}
			if got := req.Matches(v); got != tt.want {
				t.Errorf("%q.Matches(%s) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		})
	}
}

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1.0", false},
		{"^1.2.3", false},
		{"~0.9", false},
		{">=1,<2", false},
		{">= 1.2, < 1.5", false},
		{"=1.2.3", false},
		{"1.*", false},
		{"0.1.0-alpha.2", false},
		{"not-a-version", true},
		{"1.2.3.4", true},
		{"^1 || ^2", true},
		{"1.0 - 2.0", true},
		{">=", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			req, err := ParseRequirement(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.input, req)
				}
				if !errors.Is(err, errs.ErrParse) {
					t.Errorf("error %v does not wrap ErrParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.String() != tt.input {
				t.Errorf("String() = %q, want %q", req.String(), tt.input)
			}
		})
	}
}

func TestParseRequirement_Wildcard(t *testing.T) {
	for _, input := range []string{"*", "", "  "} {
		_, err := ParseRequirement(input)
		if !IsWildcard(err) {
			t.Errorf("ParseRequirement(%q) error = %v, want wildcard error", input, err)
		}
		if !errors.Is(err, errs.ErrParse) {
			t.Errorf("wildcard error %v does not wrap ErrParse", err)
		}
	}

	req, err := ParseRequirement("*", AllowWildcard())
	if err != nil {
		t.Fatalf("ParseRequirement with AllowWildcard error: %v", err)
	}
	if req.String() != "*" {
		t.Errorf("String() = %q, want %q", req.String(), "*")
	}
	v, _ := ParseVersion("3.1.4")
	if !req.Matches(v) {
		t.Error("wildcard should match any release")
	}
}

func TestParseUpgradeMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    UpgradeMethod
		wantErr bool
	}{
		{"", Minor, false},
		{"exact", Exact, false},
		{"PATCH", Patch, false},
		{"minor", Minor, false},
		{" all ", All, false},
		{"major", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUpgradeMethod(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseUpgradeMethod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"1.2.5", false},
		{"v1.2.5", false},
		{"dev", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
