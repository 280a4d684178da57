package database

import "testing"

func TestLikePattern(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{" acme ", "%acme%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\temp`, `%c:\\temp%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.query); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
