package services

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/fotodepo/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ThumbnailService keeps a JPEG thumbnail cache keyed by photo id, outside
// the mirrored upload tree so album renames and moves never invalidate it.
// Every operation is best-effort; a failed thumbnail never fails an upload.
type ThumbnailService struct {
	Root    string
	MaxEdge uint
}

func NewThumbnailService(root string, maxEdge int) *ThumbnailService {
	if maxEdge <= 0 {
		maxEdge = 320
	}
	return &ThumbnailService{Root: root, MaxEdge: uint(maxEdge)}
}

func (t *ThumbnailService) Path(photoID uuid.UUID) string {
	return filepath.Join(t.Root, photoID.String()+".jpg")
}

func (t *ThumbnailService) Generate(photoID uuid.UUID, sourcePath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return err
	}

	thumb := resize.Thumbnail(t.MaxEdge, t.MaxEdge, img, resize.Lanczos3)

	if err := os.MkdirAll(t.Root, 0o755); err != nil {
		return err
	}

	out, err := os.Create(t.Path(photoID))
	if err != nil {
		return err
	}

	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (t *ThumbnailService) Remove(photoID uuid.UUID) {
	if err := os.Remove(t.Path(photoID)); err != nil && !os.IsNotExist(err) {
		logger.Warn("thumbnail_remove_failed", map[string]interface{}{
			"photo_id": photoID.String(),
			"error":    err.Error(),
		})
	}
}
