package assets

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const gcsSearchLimit = 10

// GCSStore resolves images from a Cloud Storage bucket prefix. The object
// name doubles as the file id.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	var (
		client *storage.Client
		err    error
	)
	if credJSON := strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_JSON")); credJSON != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("init storage client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(os.Getenv("GCS_IMAGE_PREFIX")), "/"),
	}, nil
}

func (s *GCSStore) Search(ctx context.Context, baseName string) ([]RemoteFile, error) {
	type candidate struct {
		file    RemoteFile
		updated time.Time
	}

	query := &storage.Query{}
	if s.prefix != "" {
		query.Prefix = s.prefix + "/"
	}

	var matches []candidate
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(attrs.ContentType, "image/") {
			continue
		}
		name := attrs.Name
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if !strings.Contains(strings.ToLower(name), strings.ToLower(baseName)) {
			continue
		}
		matches = append(matches, candidate{
			file:    RemoteFile{ID: attrs.Name, Name: name},
			updated: attrs.Updated,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].updated.After(matches[j].updated)
	})
	if len(matches) > gcsSearchLimit {
		matches = matches[:gcsSearchLimit]
	}

	files := make([]RemoteFile, 0, len(matches))
	for _, m := range matches {
		files = append(files, m.file)
	}
	return files, nil
}

func (s *GCSStore) EnsurePublicReadable(ctx context.Context, id string) error {
	acl := s.client.Bucket(s.bucket).Object(id).ACL()
	rules, err := acl.List(ctx)
	if err != nil {
		return err
	}
	for _, rule := range rules {
		if rule.Entity == storage.AllUsers && (rule.Role == storage.RoleReader || rule.Role == storage.RoleOwner) {
			return nil
		}
	}
	return acl.Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (s *GCSStore) DownloadURL(id string) string {
	return "https://storage.googleapis.com/" + s.bucket + "/" + id
}
