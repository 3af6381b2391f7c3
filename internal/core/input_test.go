package core

import "testing"

func TestCleanInput(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"document with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "<DataSheet/>"...), "<DataSheet/>"},
		{"document without BOM", []byte("<DataSheet/>"), "<DataSheet/>"},
		{"empty input", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM kept", []byte{0xEF, 0xBB, 'a'}, "?a"},
		{"valid multibyte kept", []byte("degC °"), "degC °"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(cleanInput(tt.input)); got != tt.expected {
				t.Errorf("cleanInput() = %q, want %q", got, tt.expected)
			}
		})
	}
}
