package utils

import (
	"strings"
)

// SanitizeName reduces a release title to a filesystem-safe directory name.
// Only alphanumerics, spaces, hyphens and underscores survive; spaces become
// underscores so shell handling stays painless.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	safe = strings.ReplaceAll(safe, " ", "_")
	if safe == "" {
		return "audiobook"
	}
	return safe
}
