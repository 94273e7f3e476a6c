// Package util provides utility functions for the IntakePipe application.
package util

import (
	"math/rand"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand; tab and session identifiers are not security tokens.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.Intn(16)])
	}

	return builder.String()
}

// GenerateTabID generates a stable per-tab identity with "tab_" prefix. Each
// browser tab mints one at startup and keeps it for its lifetime.
func GenerateTabID() string {
	return GenerateRandomID("tab_", 32)
}

// GeneratePatientID generates a unique patient ID with "p_" prefix.
func GeneratePatientID() string {
	return GenerateRandomID("p_", 32)
}
