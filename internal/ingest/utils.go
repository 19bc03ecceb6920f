package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/reports-catalog/constants"
)

// AllowedExt checks if a file extension is one the indexer picks up.
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
