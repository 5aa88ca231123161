package stringsx

import "strings"

// FirstNonEmpty returns the first value that is non-empty after trimming.
// The value is returned untrimmed.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
