package assets

import (
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// maxSendEdge caps the longest edge of a locally sourced image. The messaging
// gateway rejects very large uploads.
const maxSendEdge = 1600

// FindLocal globs dir for "<baseName>.*" and returns the first match.
func FindLocal(dir string, baseName string) (path string, name string, ok bool) {
	if dir == "" || baseName == "" {
		return "", "", false
	}
	matches, err := filepath.Glob(filepath.Join(dir, baseName+".*"))
	if err != nil || len(matches) == 0 {
		return "", "", false
	}
	return matches[0], filepath.Base(matches[0]), true
}

// PrepareLocalImage downscales an oversized image to a temp file and returns
// its path. Images already within bounds are returned untouched.
func PrepareLocalImage(path string) (string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxSendEdge && bounds.Dy() <= maxSendEdge {
		return path, nil
	}

	var resized image.Image
	if bounds.Dx() >= bounds.Dy() {
		resized = imaging.Resize(img, maxSendEdge, 0, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, 0, maxSendEdge, imaging.Lanczos)
	}

	out, err := os.CreateTemp("", "broadcast-*.jpg")
	if err != nil {
		return "", err
	}
	defer out.Close()

	if err := imaging.Encode(out, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		os.Remove(out.Name())
		return "", err
	}
	return out.Name(), nil
}
