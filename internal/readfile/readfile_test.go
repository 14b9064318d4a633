package readfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{name: "empty file", in: "", out: ""},
		{name: "unix newlines", in: "let total = 0;\nreturn total;\n", out: "let total = 0;\nreturn total;\n"},
		{name: "windows newlines", in: "one\r\ntwo\r\n", out: "one\ntwo\n"},
		{name: "standalone carriage returns preserved", in: "a\rb\n\r\n", out: "a\rb\n\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "input.txt")
			if err := os.WriteFile(path, []byte(tc.in), 0o644); err != nil {
				t.Fatalf("write temp file: %v", err)
			}

			got, err := ReadNormalized(path)
			if err != nil {
				t.Fatalf("ReadNormalized: %v", err)
			}
			if got != tc.out {
				t.Fatalf("ReadNormalized = %q, want %q", got, tc.out)
			}
		})
	}
}

func TestReadNormalizedRejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.js")
	if err := os.WriteFile(path, []byte{0xff, 0xfe, 'x'}, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := ReadNormalized(path)
	if err == nil || !strings.Contains(err.Error(), "UTF-8") {
		t.Fatalf("err = %v, want UTF-8 error", err)
	}
}
