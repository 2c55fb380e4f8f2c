package items

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns matches the image formats the detection service accepts.
var DefaultPatterns = []string{
	"**/*.jpg",
	"**/*.jpeg",
	"**/*.png",
	"**/*.gif",
}

// Classifier decides whether an item identifier looks like a supported
// input item. Patterns use doublestar glob syntax and are matched
// case-insensitively against the identifier.
type Classifier struct {
	patterns []string
}

// NewClassifier validates the given glob patterns and returns a Classifier.
// An empty pattern list falls back to DefaultPatterns.
func NewClassifier(patterns []string) (*Classifier, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid item pattern %q", p)
		}
		lowered[i] = strings.ToLower(p)
	}
	return &Classifier{patterns: lowered}, nil
}

// Supported reports whether the identifier matches any configured pattern.
func (c *Classifier) Supported(item string) bool {
	// Identifiers are blob paths; normalize the separator so Windows-style
	// paths in partner lists still match.
	normalized := strings.ToLower(strings.ReplaceAll(item, "\\", "/"))
	for _, p := range c.patterns {
		if ok, err := doublestar.Match(p, normalized); err == nil && ok {
			return true
		}
		// A bare filename has no directory component, so the "**/" prefix
		// in the default patterns would not match it.
		if ok, err := doublestar.Match(strings.TrimPrefix(p, "**/"), normalized); err == nil && ok {
			return true
		}
	}
	return false
}
