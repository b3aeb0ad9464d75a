package assets

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/promoimperio/broadcast_backend/models"
	"github.com/sirupsen/logrus"
)

type ImageKind string

const (
	ImageKindRemote ImageKind = "remote"
	ImageKindLocal  ImageKind = "local"
)

// ImageRef points at the image to attach to one send attempt. Remote refs
// carry a public download URL, local refs a filesystem path. Built fresh per
// attempt, never persisted.
type ImageRef struct {
	Kind ImageKind
	URL  string
	Path string
	Name string
}

type RemoteFile struct {
	ID   string
	Name string
}

// RemoteStore is the remote image backend: Drive in production, GCS as the
// alternate, fakes in tests.
type RemoteStore interface {
	// Search returns image files whose name contains baseName, most recently
	// modified first, capped at a small page size.
	Search(ctx context.Context, baseName string) ([]RemoteFile, error)
	// EnsurePublicReadable grants anyone-with-the-link read access.
	// Idempotent.
	EnsurePublicReadable(ctx context.Context, id string) error
	// DownloadURL builds the deterministic direct-download URL for a file.
	DownloadURL(id string) string
}

type Resolver struct {
	Remote   RemoteStore
	LocalDir string
	Logger   *logrus.Logger
}

// BaseName extracts the lookup stem from a catalog image hint: directory
// components and the extension are stripped.
func BaseName(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return ""
	}
	name := filepath.Base(hint)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Resolve finds the image for a product: remote store first, local directory
// as fallback. A nil result with nil error means no image exists anywhere —
// an expected business outcome, not a failure. Remote backend errors degrade
// to the local tier instead of aborting.
func (r *Resolver) Resolve(ctx context.Context, p models.Product) *ImageRef {
	base := BaseName(p.ImageHint)
	if base == "" {
		return nil
	}

	if r.Remote != nil {
		if ref := r.resolveRemote(ctx, base); ref != nil {
			return ref
		}
	}

	if path, name, ok := FindLocal(r.LocalDir, base); ok {
		return &ImageRef{Kind: ImageKindLocal, Path: path, Name: name}
	}
	return nil
}

func (r *Resolver) resolveRemote(ctx context.Context, base string) *ImageRef {
	files, err := r.Remote.Search(ctx, base)
	if err != nil {
		r.Logger.WithFields(logrus.Fields{
			"module":   "assets",
			"funcName": "resolveRemote",
			"baseName": base,
		}).Warn("remote image search failed: " + err.Error())
		return nil
	}
	if len(files) == 0 {
		return nil
	}

	// Prefer an exact-prefix match; otherwise the most recently modified.
	chosen := files[0]
	for _, f := range files {
		if strings.HasPrefix(strings.ToLower(f.Name), strings.ToLower(base)) {
			chosen = f
			break
		}
	}

	if err := r.Remote.EnsurePublicReadable(ctx, chosen.ID); err != nil {
		// Tolerated: the link may already be shared, and a failed grant must
		// not sink the whole slot.
		r.Logger.WithFields(logrus.Fields{
			"module":   "assets",
			"funcName": "resolveRemote",
			"fileId":   chosen.ID,
		}).Warn("failed to ensure public access: " + err.Error())
	}

	return &ImageRef{
		Kind: ImageKindRemote,
		URL:  r.Remote.DownloadURL(chosen.ID),
		Name: chosen.Name,
	}
}
