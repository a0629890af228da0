// Package layout resolves the Drive folder structure a run works in.
package layout

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/logging"
	"github.com/dyluth/deckhand/pkg/deck"
)

// Folder names under the root.
const (
	FolderL0        = "L0-Raw"
	FolderL1        = "L1-Merged"
	FolderL2        = "L2-Slide"
	FolderL3        = "L3-PDF"
	FolderTemplates = "Templates"
)

// SpreadsheetName is the name of an entity's L1 spreadsheet.
func SpreadsheetName(entity string) string {
	return entity + ".gsheet"
}

// DeckName is the name of an entity's L2 presentation.
func DeckName(entity string) string {
	return entity + ".gslide"
}

var (
	rawIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	folderIDPattern = regexp.MustCompile(`/folders/([A-Za-z0-9_\-]+)`)
	queryIDPattern  = regexp.MustCompile(`[?&]id=([A-Za-z0-9_\-]+)`)
)

// ExtractID returns the Drive ID in a shared folder URL, or the input if it is already an ID.
func ExtractID(urlOrID string) (string, error) {
	if rawIDPattern.MatchString(urlOrID) {
		return urlOrID, nil
	}
	for _, p := range []*regexp.Regexp{folderIDPattern, queryIDPattern} {
		if m := p.FindStringSubmatch(urlOrID); m != nil {
			return m[1], nil
		}
	}
	return "", &deck.ValidationError{
		Field:  "drive root",
		Value:  urlOrID,
		Reason: "pass a folder link or ID",
	}
}

// Resolver finds or creates the standard folders and locates the required files.
type Resolver struct {
	drive  gapi.Drive
	logger *zap.Logger
}

// NewResolver returns a Resolver over drive.
func NewResolver(drive gapi.Drive, logger *zap.Logger) *Resolver {
	return &Resolver{drive: drive, logger: logging.OrNop(logger)}
}

// Resolve discovers the layout under root (a folder URL or ID).
// Missing folders are created; missing templates or manifest are a NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, root string) (*deck.DriveLayout, error) {
	rootID, err := ExtractID(root)
	if err != nil {
		return nil, err
	}
	if _, err := r.drive.GetFile(ctx, rootID); err != nil {
		return nil, fmt.Errorf("failed to open root folder: %w", err)
	}

	l := &deck.DriveLayout{RootID: rootID}
	folders := []struct {
		name string
		dst  *string
	}{
		{FolderL0, &l.L0ID},
		{FolderL1, &l.L1ID},
		{FolderL2, &l.L2ID},
		{FolderL3, &l.L3ID},
		{FolderTemplates, &l.TemplatesID},
	}
	for _, f := range folders {
		id, err := FindOrCreateFolder(ctx, r.drive, rootID, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = id
	}

	files := []struct {
		parent string
		names  []string
		mime   string
		dst    *string
	}{
		{l.TemplatesID, []string{"data-template.gsheet", "data-template"}, gapi.MimeSpreadsheet, &l.DataTemplateID},
		{l.TemplatesID, []string{"report-template.gslide", "report-template"}, gapi.MimePresentation, &l.ReportTemplateID},
		{rootID, []string{"entities.csv", "entities"}, gapi.MimeCSV, &l.EntitiesFileID},
	}
	for _, f := range files {
		file, err := FindChild(ctx, r.drive, f.parent, f.mime, f.names...)
		if err != nil {
			return nil, err
		}
		*f.dst = file.ID
	}

	r.logger.Debug("layout_resolved",
		zap.String("root", l.RootID),
		zap.String("data_template", l.DataTemplateID),
		zap.String("report_template", l.ReportTemplateID))
	return l, nil
}

// FindChild returns the first file under parentID matching any of names, tried in order.
func FindChild(ctx context.Context, drive gapi.Drive, parentID, mimeType string, names ...string) (*gapi.File, error) {
	for _, name := range names {
		q := gapi.Query{ParentID: parentID, Name: name}
		if mimeType == gapi.MimeFolder {
			q.FoldersOnly = true
		} else if mimeType != "" {
			q.MimeTypes = []string{mimeType}
		}
		files, err := drive.ListFiles(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %q: %w", name, err)
		}
		if len(files) > 0 {
			return &files[0], nil
		}
	}
	kind := "file"
	if mimeType == gapi.MimeFolder {
		kind = "folder"
	}
	return nil, &deck.NotFoundError{Kind: kind, Name: names[0], Parent: parentID}
}

// FindOrCreateFolder returns the ID of the folder named name under parentID, creating it if absent.
func FindOrCreateFolder(ctx context.Context, drive gapi.Drive, parentID, name string) (string, error) {
	f, err := FindChild(ctx, drive, parentID, gapi.MimeFolder, name)
	if err == nil {
		return f.ID, nil
	}
	if !deck.IsNotFound(err) {
		return "", err
	}
	created, err := drive.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return created.ID, nil
}
