package gapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/dyluth/deckhand/internal/ratelimit"
	"github.com/dyluth/deckhand/internal/retry"
)

const fileFields = "id, name, mimeType, parents, imageMediaMetadata(width, height)"

// DriveClient implements Drive over drive/v3.
type DriveClient struct {
	svc    *drive.Service
	bucket *ratelimit.Bucket
	policy retry.Policy
}

// NewDriveClient wraps svc with the given limiter and retry policy.
func NewDriveClient(svc *drive.Service, bucket *ratelimit.Bucket, policy retry.Policy) *DriveClient {
	return &DriveClient{svc: svc, bucket: bucket, policy: policy}
}

func fromDrive(f *drive.File) File {
	out := File{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
	}
	if f.ImageMediaMetadata != nil {
		out.Width = f.ImageMediaMetadata.Width
		out.Height = f.ImageMediaMetadata.Height
	}
	return out
}

// ListFiles returns every file matching q, following pagination.
func (c *DriveClient) ListFiles(ctx context.Context, q Query) ([]File, error) {
	return call(ctx, c.bucket, ratelimit.Read, c.policy, "drive.files.list", q.ParentID, func(ctx context.Context) ([]File, error) {
		var files []File
		err := c.svc.Files.List().
			Q(q.String()).
			Fields(googleapi.Field("nextPageToken, files("+fileFields+")")).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			PageSize(100).
			Pages(ctx, func(page *drive.FileList) error {
				for _, f := range page.Files {
					files = append(files, fromDrive(f))
				}
				return nil
			})
		return files, err
	})
}

// GetFile fetches metadata for one file.
func (c *DriveClient) GetFile(ctx context.Context, fileID string) (*File, error) {
	return call(ctx, c.bucket, ratelimit.Read, c.policy, "drive.files.get", fileID, func(ctx context.Context) (*File, error) {
		f, err := c.svc.Files.Get(fileID).
			Fields(googleapi.Field(fileFields)).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		out := fromDrive(f)
		return &out, nil
	})
}

// CopyFile copies fileID into parentID under name. The source is never modified.
func (c *DriveClient) CopyFile(ctx context.Context, fileID, name, parentID string) (*File, error) {
	return call(ctx, c.bucket, ratelimit.Write, c.policy, "drive.files.copy", fileID, func(ctx context.Context) (*File, error) {
		f, err := c.svc.Files.Copy(fileID, &drive.File{Name: name, Parents: []string{parentID}}).
			Fields(googleapi.Field(fileFields)).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		out := fromDrive(f)
		return &out, nil
	})
}

// CreateFolder creates a folder under parentID.
func (c *DriveClient) CreateFolder(ctx context.Context, name, parentID string) (*File, error) {
	return call(ctx, c.bucket, ratelimit.Write, c.policy, "drive.files.create", name, func(ctx context.Context) (*File, error) {
		f, err := c.svc.Files.Create(&drive.File{Name: name, MimeType: MimeFolder, Parents: []string{parentID}}).
			Fields(googleapi.Field(fileFields)).
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		out := fromDrive(f)
		return &out, nil
	})
}

// DeleteFile permanently deletes a file.
func (c *DriveClient) DeleteFile(ctx context.Context, fileID string) error {
	_, err := call(ctx, c.bucket, ratelimit.Write, c.policy, "drive.files.delete", fileID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.svc.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do()
	})
	return err
}

// Download returns a file's content. Google Sheets are exported as CSV.
func (c *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	meta, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return call(ctx, c.bucket, ratelimit.Read, c.policy, "drive.files.download", meta.Name, func(ctx context.Context) ([]byte, error) {
		var (
			resp *http.Response
			err  error
		)
		if meta.MimeType == MimeSpreadsheet {
			resp, err = c.svc.Files.Export(fileID, MimeCSV).Context(ctx).Download()
		} else {
			resp, err = c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		}
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", meta.Name, err)
		}
		return data, nil
	})
}

// ShareAnyoneReader grants anyone-with-link read access.
func (c *DriveClient) ShareAnyoneReader(ctx context.Context, fileID string) (string, error) {
	existing, err := call(ctx, c.bucket, ratelimit.Read, c.policy, "drive.permissions.list", fileID, func(ctx context.Context) ([]*drive.Permission, error) {
		list, err := c.svc.Permissions.List(fileID).
			Fields("permissions(id, type, role)").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		return list.Permissions, nil
	})
	if err != nil {
		return "", err
	}
	for _, p := range existing {
		if p.Type == "anyone" {
			return "", nil
		}
	}

	return call(ctx, c.bucket, ratelimit.Write, c.policy, "drive.permissions.create", fileID, func(ctx context.Context) (string, error) {
		p, err := c.svc.Permissions.Create(fileID, &drive.Permission{Type: "anyone", Role: "reader"}).
			Fields("id").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return "", err
		}
		return p.Id, nil
	})
}

// RevokePermission deletes a permission created by ShareAnyoneReader.
func (c *DriveClient) RevokePermission(ctx context.Context, fileID, permissionID string) error {
	_, err := call(ctx, c.bucket, ratelimit.Write, c.policy, "drive.permissions.delete", fileID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.svc.Permissions.Delete(fileID, permissionID).SupportsAllDrives(true).Context(ctx).Do()
	})
	return err
}
