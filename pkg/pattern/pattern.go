package pattern

import "strings"

// Decision is the result of matching a bucket name against a pattern set.
// MatchedPattern records which pattern authorized the bucket, for audit logs.
type Decision struct {
	Allowed        bool
	MatchedPattern string
}

// Match checks a bucket name against an ordered list of glob patterns.
// Patterns are literal strings where '*' matches any run of characters
// (including none). Matching is case-sensitive and anchored: the whole
// bucket name must match. The first matching pattern wins; a bucket that
// matches no pattern is never authorized.
func Match(bucket string, patterns []string) Decision {
	for _, p := range patterns {
		if matchOne(bucket, p) {
			return Decision{Allowed: true, MatchedPattern: p}
		}
	}
	return Decision{}
}

func matchOne(name, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return name == pattern
	}

	segments := strings.Split(pattern, "*")

	// The first segment is anchored at the start, the last at the end.
	first, last := segments[0], segments[len(segments)-1]
	if !strings.HasPrefix(name, first) {
		return false
	}
	name = name[len(first):]

	if !strings.HasSuffix(name, last) {
		return false
	}
	name = name[:len(name)-len(last)]

	// Middle segments must appear in order in what remains.
	for _, seg := range segments[1 : len(segments)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(name, seg)
		if idx < 0 {
			return false
		}
		name = name[idx+len(seg):]
	}

	return true
}
