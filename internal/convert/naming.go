package convert

import (
	"strings"
	"unicode/utf8"
)

const (
	tempMarker = ".dcmcanon-"
	tempSuffix = ".tmp"
	// maxTempBase keeps scratch names under NAME_MAX for long record names.
	maxTempBase = 128
)

// TempPattern returns the os.CreateTemp pattern used for a record's scratch
// file: a hidden sibling named after the record.
func TempPattern(base string) string {
	return "." + truncateName(base, maxTempBase) + tempMarker + "*" + tempSuffix
}

// truncateName cuts name to at most limit bytes without splitting a rune.
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// IsTempArtifact reports whether a file name was produced by TempPattern.
func IsTempArtifact(name string) bool {
	return strings.HasPrefix(name, ".") &&
		strings.HasSuffix(name, tempSuffix) &&
		strings.Contains(name, tempMarker)
}
