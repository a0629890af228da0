// Package gapi defines the narrow Drive, Sheets and Slides surfaces the
// pipeline uses, plus rate-limited, retrying implementations backed by the
// Google API client libraries.
package gapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"
)

// Drive MIME types.
const (
	MimeFolder       = "application/vnd.google-apps.folder"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeCSV          = "text/csv"
	MimeXLSX         = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImageMimeTypes lists the image formats copied from L0 and usable as pictures.
var ImageMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/svg+xml",
}

// IsImage reports whether mimeType is one of ImageMimeTypes.
func IsImage(mimeType string) bool {
	for _, m := range ImageMimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

// File is the Drive metadata the pipeline reads.
type File struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string

	// Pixel dimensions, set for images only.
	Width  int64
	Height int64
}

// Query selects non-trashed files.
type Query struct {
	ParentID    string
	Name        string
	MimeTypes   []string
	FoldersOnly bool
}

// String renders the query in Drive search syntax.
func (q Query) String() string {
	clauses := []string{"trashed=false"}
	if q.ParentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escape(q.ParentID)))
	}
	if q.Name != "" {
		clauses = append(clauses, fmt.Sprintf("name='%s'", escape(q.Name)))
	}
	if q.FoldersOnly {
		clauses = append(clauses, fmt.Sprintf("mimeType='%s'", MimeFolder))
	} else if len(q.MimeTypes) == 1 {
		clauses = append(clauses, fmt.Sprintf("mimeType='%s'", escape(q.MimeTypes[0])))
	} else if len(q.MimeTypes) > 1 {
		ors := make([]string, len(q.MimeTypes))
		for i, m := range q.MimeTypes {
			ors[i] = fmt.Sprintf("mimeType='%s'", escape(m))
		}
		clauses = append(clauses, "("+strings.Join(ors, " or ")+")")
	}
	return strings.Join(clauses, " and ")
}

// Matches reports whether f satisfies the query. Used by in-memory fakes.
func (q Query) Matches(f File) bool {
	if q.ParentID != "" {
		found := false
		for _, p := range f.Parents {
			if p == q.ParentID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Name != "" && f.Name != q.Name {
		return false
	}
	if q.FoldersOnly {
		return f.MimeType == MimeFolder
	}
	if len(q.MimeTypes) > 0 {
		for _, m := range q.MimeTypes {
			if m == f.MimeType {
				return true
			}
		}
		return false
	}
	return true
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// PublicDownloadURL is the URL Slides fetches a shared Drive image from.
func PublicDownloadURL(fileID string) string {
	return "https://drive.google.com/uc?export=download&id=" + url.QueryEscape(fileID)
}

// FileIDFromURL extracts the id parameter from a PublicDownloadURL.
func FileIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

// Drive is the file surface the pipeline needs.
type Drive interface {
	ListFiles(ctx context.Context, q Query) ([]File, error)
	GetFile(ctx context.Context, fileID string) (*File, error)
	CopyFile(ctx context.Context, fileID, name, parentID string) (*File, error)
	CreateFolder(ctx context.Context, name, parentID string) (*File, error)
	DeleteFile(ctx context.Context, fileID string) error
	Download(ctx context.Context, fileID string) ([]byte, error)

	// ShareAnyoneReader grants link access and returns the new permission ID.
	// It returns "" when the file was already readable by anyone.
	ShareAnyoneReader(ctx context.Context, fileID string) (string, error)
	RevokePermission(ctx context.Context, fileID, permissionID string) error
}

// Sheets is the spreadsheet surface the pipeline needs.
type Sheets interface {
	GetSpreadsheet(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error)
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	ClearValues(ctx context.Context, spreadsheetID, rng string) error
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
}

// Slides is the presentation surface the pipeline needs.
type Slides interface {
	GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error)
	BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) error
}

// TabRange quotes a sheet title for A1 notation.
func TabRange(title, cells string) string {
	quoted := "'" + strings.ReplaceAll(title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// ParseTabRange splits an A1 range into its sheet title and cell part.
func ParseTabRange(rng string) (title, cells string) {
	if strings.HasPrefix(rng, "'") {
		end := 1
		for end < len(rng) {
			if rng[end] == '\'' {
				if end+1 < len(rng) && rng[end+1] == '\'' {
					end += 2
					continue
				}
				break
			}
			end++
		}
		title = strings.ReplaceAll(rng[1:end], "''", "'")
		rest := rng[min(end+1, len(rng)):]
		return title, strings.TrimPrefix(rest, "!")
	}
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		return rng[:i], rng[i+1:]
	}
	return rng, ""
}
