package util

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in, want string
		valid    bool
	}{
		{" aapl ", "AAPL", true},
		{"brk.b", "BRK.B", true},
		{"", "", false},
		{"1abc", "1ABC", false},
		{"toolongsymbol", "TOOLONGSYMBOL", false},
	}
	for _, tt := range tests {
		got := NormalizeSymbol(tt.in)
		if got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if LooksLikeSymbol(got) != tt.valid {
			t.Errorf("LooksLikeSymbol(%q) = %v", got, !tt.valid)
		}
	}
}
