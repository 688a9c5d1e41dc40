package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	mirror *mirror.Mirror
	locks  *TreeLocks
	albums *AlbumService
	photos *PhotoService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &models.Album{}, &models.Photo{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	m := mirror.New(t.TempDir(), 5*time.Second)
	locks := NewTreeLocks()
	thumbs := NewThumbnailService(t.TempDir(), 64)
	photos := NewPhotoService(db, m, locks, thumbs, nil, 10*1024*1024)
	albums := NewAlbumService(db, m, locks, photos, true)

	return &testEnv{db: db, mirror: m, locks: locks, albums: albums, photos: photos}
}

// pngBytes encodes a solid-color PNG so uploads pass content sniffing and
// carry real dimensions.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed encoding test png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("failed encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

// stageUpload drops content into a fresh temp file, mimicking a received
// multipart part waiting to be placed.
func stageUpload(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "staged-upload")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed staging upload: %v", err)
	}
	return path
}

func uploadTestPhoto(t *testing.T, env *testEnv, name string, albumID uuid.UUID) *models.Photo {
	t.Helper()

	content := pngBytes(t, 8, 6)
	photo, err := env.photos.Upload(context.Background(), stageUpload(t, content), name, albumID, int64(len(content)))
	if err != nil {
		t.Fatalf("failed uploading test photo %q: %v", name, err)
	}
	return photo
}
