package assets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const driveSearchPageSize = 10

// DriveStore resolves images from a Google Drive folder.
type DriveStore struct {
	svc      *drive.Service
	folderId string
}

func NewDriveStore(ctx context.Context, folderId string) (*DriveStore, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	if credJSON := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON")); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init drive service: %w", err)
	}
	return &DriveStore{svc: svc, folderId: folderId}, nil
}

func (s *DriveStore) Search(ctx context.Context, baseName string) ([]RemoteFile, error) {
	query := fmt.Sprintf(
		"'%s' in parents and trashed=false and mimeType contains 'image/' and name contains '%s'",
		s.folderId, strings.ReplaceAll(baseName, "'", `\'`),
	)
	res, err := s.svc.Files.List().
		Q(query).
		OrderBy("modifiedTime desc").
		Fields("files(id, name, mimeType)").
		PageSize(driveSearchPageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	files := make([]RemoteFile, 0, len(res.Files))
	for _, f := range res.Files {
		files = append(files, RemoteFile{ID: f.Id, Name: f.Name})
	}
	return files, nil
}

func (s *DriveStore) EnsurePublicReadable(ctx context.Context, id string) error {
	perms, err := s.svc.Permissions.List(id).Fields("permissions(type, role)").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, p := range perms.Permissions {
		if p.Type == "anyone" && (p.Role == "reader" || p.Role == "commenter" || p.Role == "writer") {
			return nil
		}
	}
	_, err = s.svc.Permissions.Create(id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	return err
}

func (s *DriveStore) DownloadURL(id string) string {
	return "https://drive.google.com/uc?export=download&id=" + id
}
