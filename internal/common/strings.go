package common

import "strings"

const bytesPerMB = 1 << 20

// BytesToMB converts a byte count to whole megabytes, rounding down.
func BytesToMB(bytes uint64) uint64 {
	return bytes / bytesPerMB
}

// Normalize lowercases s and strips surrounding whitespace. Log levels and component
// names from configuration files are compared in this form.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
