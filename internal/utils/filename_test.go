package utils

import (
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Iain Banks - Use of Weapons", "Iain_Banks_-_Use_of_Weapons"},
		{"Title: With/Bad\\Chars?", "Title_WithBadChars"},
		{"  trimmed  ", "trimmed"},
		{"", "audiobook"},
		{"///", "audiobook"},
	}
	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
