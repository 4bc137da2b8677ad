package fieldfmt

import "strings"

// SplitList splits a page into record segments. The separator is never
// valid inside a record, so a broken record cannot swallow its neighbours.
// Blank segments are dropped.
func SplitList(text, sep string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := strings.Split(text, sep)
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// SplitKey separates an identifying key from the record body. The key ends
// at the first sep that appears before any brace.
func SplitKey(segment string, sep byte) (key, body string, ok bool) {
	for i := 0; i < len(segment); i++ {
		switch segment[i] {
		case '{':
			return "", segment, false
		case sep:
			return strings.TrimSpace(segment[:i]), strings.TrimSpace(segment[i+1:]), true
		}
	}
	return "", segment, false
}

// Unwrap strips a pair of braces enclosing the whole segment, as used by
// pages that list bare composites ("{Path:a,...};{Path:b,...}").
func Unwrap(segment string) string {
	s := strings.TrimSpace(segment)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return s
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				// first brace closes before the end: not one composite
				return s
			}
		}
	}
	return s[1 : len(s)-1]
}
