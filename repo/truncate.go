package repo

import "strings"

// TruncateHead trims s back to its last complete line. The reader hands it
// a fixed-size head of a larger file, so the final line is usually cut
// mid-way; dropping it keeps the output clean for the model. Input with no
// newline at all is returned unchanged.
func TruncateHead(s string) string {
	if s == "" {
		return s
	}
	idx := strings.LastIndexByte(s, '\n')
	if idx < 0 {
		return s
	}
	return s[:idx]
}
