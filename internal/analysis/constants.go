// Package analysis derives facts from lifted code: constant register
// values and the strings they point at.
package analysis

// Constants for analysis operations
const (
	// MaxStringLength is the maximum length for string extraction
	MaxStringLength = 256

	// MinStringLength is the shortest C string reported as a reference
	MinStringLength = 4
)
