package upload

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// ThumbnailPath returns the path of the derivative for path: "<name>_thumbnail<ext>".
func ThumbnailPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_thumbnail" + ext
}

// Thumbnail writes a proportionally scaled copy of a stored image next to the original,
// with its longest side at most size pixels. It returns the thumbnail's stored path,
// or "" if the image could not be decoded or written.
func (s *Store) Thumbnail(path string, size int) string {
	full, err := s.resolve(path)
	if err != nil {
		s.log.Error(err, "Failed to resolve image for thumbnail")
		return ""
	}
	if err := writeThumbnail(full, ThumbnailPath(full), size); err != nil {
		s.log.Error(err, fmt.Sprintf("Failed to create thumbnail for %s", path))
		return ""
	}
	return ThumbnailPath(path)
}

func writeThumbnail(src, dst string, size int) error {
	if size <= 0 {
		return fmt.Errorf("invalid thumbnail size %d", size)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	img, format, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > size || h > size {
		if w >= h {
			h = max(1, h*size/w)
			w = size
		} else {
			w = max(1, w*size/h)
			h = size
		}
	}
	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, b, draw.Over, nil)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	switch format {
	case "jpeg":
		err = jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85})
	case "gif":
		err = gif.Encode(out, thumb, nil)
	default:
		err = png.Encode(out, thumb)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}
