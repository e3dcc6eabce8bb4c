package sqltext

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"comment and quotes", "SELECT 1;\n-- a; comment\nSELECT \"x;y\" FROM t;;  ", []string{"SELECT 1", "-- a; comment\nSELECT \"x;y\" FROM t"}},
		{"literal", "SELECT 'a;b' AS note; SELECT 2", []string{"SELECT 'a;b' AS note", "SELECT 2"}},
		{"doubled quote", "SELECT 'it''s;fine'; SELECT 3", []string{"SELECT 'it''s;fine'", "SELECT 3"}},
		{"block comment", "SELECT /* ; */ 1; SELECT 4", []string{"SELECT /* ; */ 1", "SELECT 4"}},
		{"empty", " ; ;", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Split(tt.script); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirst(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT * FROM notes WHERE note = 'a;b'", "SELECT * FROM notes WHERE note = 'a;b'"},
		{"SELECT * FROM notes WHERE note = 'a;b';\nThis lists notes.", "SELECT * FROM notes WHERE note = 'a;b';"},
		{"  SELECT 1  ", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := First(tt.in); got != tt.want {
			t.Errorf("First(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMask(t *testing.T) {
	in := "SELECT 'into' /* DELETE */ FROM t -- drop\nWHERE x = 1"
	want := "SELECT" + strings.Repeat(" ", 21) + "FROM t" + strings.Repeat(" ", 8) + "\nWHERE x = 1"
	if got := Mask(in); got != want {
		t.Fatalf("Mask() = %q, want %q", got, want)
	}
}
