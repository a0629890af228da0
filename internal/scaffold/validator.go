package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CheckExisting fails when any starter file is already present in dir.
func CheckExisting(dir string) error {
	var existing []string
	for _, f := range Files {
		if _, err := os.Stat(filepath.Join(dir, f.Path)); err == nil {
			existing = append(existing, f.Path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return &ExistingFilesError{Files: existing}
}

// ExistingFilesError lists starter files that would be overwritten.
type ExistingFilesError struct {
	Files []string
}

func (e *ExistingFilesError) Error() string {
	return fmt.Sprintf("workspace already initialized: found %s", strings.Join(e.Files, ", "))
}
