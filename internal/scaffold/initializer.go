// Package scaffold writes the starter files for a new deckhand workspace.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/deckhand/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo is one file written by Initialize.
type FileInfo struct {
	Path        string
	Template    string
	Permissions os.FileMode
}

// Files lists what Initialize creates, relative to the target directory.
var Files = []FileInfo{
	{Path: config.DefaultPath, Template: "templates/deckhand.yml.tmpl", Permissions: 0644},
	{Path: "entities.csv", Template: "templates/entities.csv.tmpl", Permissions: 0644},
}

// Initialize writes the starter files into dir. Existing files are an error
// unless force is set, in which case they are overwritten.
func Initialize(dir string, force bool) error {
	if !force {
		if err := CheckExisting(dir); err != nil {
			return err
		}
	}

	for _, f := range Files {
		content, err := templatesFS.ReadFile(f.Template)
		if err != nil {
			return fmt.Errorf("failed to read %s template: %w", f.Path, err)
		}
		path := filepath.Join(dir, f.Path)
		if err := os.WriteFile(path, content, f.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}

	if _, err := config.Load(filepath.Join(dir, config.DefaultPath)); err != nil {
		return fmt.Errorf("generated %s does not load: %w", config.DefaultPath, err)
	}
	return nil
}

// NextSteps is printed after a successful init.
func NextSteps() []string {
	return []string{
		"Set drive.root in deckhand.yml to your shared folder",
		"Save the service account key as service-account-credentials.json",
		"Upload entities.csv to the root folder and edit the entity list",
		"Run 'deckhand generate'",
	}
}
