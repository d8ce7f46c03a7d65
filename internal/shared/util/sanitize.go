package util

import (
	"errors"
	"strings"
)

var errBadFileName = errors.New("invalid file name")

// SanitizeFileName strips path separators from a client-supplied file name
// and rejects traversal sequences outright.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errBadFileName
	}
	clean := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(name))
	if clean == "" {
		return "", errBadFileName
	}
	return clean, nil
}
