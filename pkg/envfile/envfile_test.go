package envfile

import (
	"errors"
	"io/fs"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stack-sync/stack-sync/pkg/errdefs"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []Var
	}{
		{
			name:     "basic",
			content:  "FOO=bar\nBAZ=qux",
			expected: []Var{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:     "comments and blanks",
			content:  "# c\nFOO=bar\n\n  # x\nBAZ=qux\n",
			expected: []Var{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:     "value with equals",
			content:  "URL=https://example.com?foo=bar",
			expected: []Var{{"URL", "https://example.com?foo=bar"}},
		},
		{
			name:     "whitespace around name and value",
			content:  "  KEY  =  some value  \r\n",
			expected: []Var{{"KEY", "some value"}},
		},
		{
			name:     "line without equals is dropped",
			content:  "JUSTANAME\nA=1",
			expected: []Var{{"A", "1"}},
		},
		{
			name:     "empty value",
			content:  "EMPTY=",
			expected: []Var{{"EMPTY", ""}},
		},
		{
			name:     "empty",
			content:  "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.content)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse(%q) = %v, want %v", tt.content, got, tt.expected)
			}
		})
	}
}

func TestSerializeHasNoTrailingNewline(t *testing.T) {
	got := Serialize([]Var{{"A", "1"}, {"B", "2"}})
	if got != "A=1\nB=2" {
		t.Errorf("Serialize() = %q, want %q", got, "A=1\nB=2")
	}
}

func TestRoundTrip(t *testing.T) {
	vars := []Var{{"FOO", "bar"}, {"BAZ", "qux=123"}}
	got := Parse(Serialize(vars))
	if !reflect.DeepEqual(got, vars) {
		t.Errorf("Parse(Serialize(v)) = %v, want %v", got, vars)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	vars := []Var{{"FOO", "bar"}, {"BAZ", "qux=123"}}
	if err := WriteFile(path, vars); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, vars) {
		t.Errorf("ReadFile() = %v, want %v", got, vars)
	}
}

func TestReadFileMissingIsIOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.env")
	_, err := ReadFile(path)
	if !errdefs.IsIO(err) {
		t.Fatalf("ReadFile() error = %v, want IOError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []Var
		want bool
	}{
		{"both empty", nil, []Var{}, true},
		{"same order", []Var{{"A", "1"}, {"B", "2"}}, []Var{{"A", "1"}, {"B", "2"}}, true},
		{"different order", []Var{{"A", "1"}, {"B", "2"}}, []Var{{"B", "2"}, {"A", "1"}}, true},
		{"different value", []Var{{"A", "1"}}, []Var{{"A", "2"}}, false},
		{"missing name", []Var{{"A", "1"}, {"B", "2"}}, []Var{{"A", "1"}}, false},
		{"different name", []Var{{"A", "1"}}, []Var{{"B", "1"}}, false},
		{"duplicate last wins", []Var{{"A", "1"}, {"A", "2"}}, []Var{{"A", "2"}}, true},
		{"duplicate last wins mismatch", []Var{{"A", "2"}, {"A", "1"}}, []Var{{"A", "2"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
