// Package utils holds small helpers shared by the retrieval packages:
// logger construction, vector normalization, and text shortening for logs.
package utils

// Truncate shortens s to at most maxLen bytes, marking the cut with "...".
// A non-positive maxLen disables truncation. Used to keep query text and
// chunk content from flooding log lines.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
