package task

import "strings"

// DefaultNameLimit is the default maximum length of a sanitized task
// name, matching the remote service's request-name limit.
const DefaultNameLimit = 92

// SanitizeName derives a request name from raw by keeping only ASCII
// letters, digits, hyphen, and underscore, then truncating to limit
// characters (DefaultNameLimit when limit is not positive). The result
// may be empty. Sanitization is deterministic and idempotent.
func SanitizeName(raw string, limit int) string {
	if limit <= 0 {
		limit = DefaultNameLimit
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	name := b.String()
	if len(name) > limit {
		name = name[:limit]
	}
	return name
}
