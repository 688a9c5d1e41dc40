package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fotodepo/backend/internal/apperrors"
	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/internal/slug"
	"github.com/fotodepo/backend/internal/storage"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PhotoService owns the photo catalog and the files it mirrors. Photo
// mutations hold the tree lock shared, which keeps album paths stable while
// they run, plus the per-album naming mutex around the
// uniqueness-check-then-write window. Thumbs and Replica are optional; a nil
// value disables that side channel.
type PhotoService struct {
	DB           *gorm.DB
	Mirror       *mirror.Mirror
	Locks        *TreeLocks
	Thumbs       *ThumbnailService
	Replica      *storage.MinIOClient
	MaxFileBytes int64
}

func NewPhotoService(db *gorm.DB, m *mirror.Mirror, locks *TreeLocks, thumbs *ThumbnailService, replica *storage.MinIOClient, maxFileBytes int64) *PhotoService {
	if maxFileBytes <= 0 {
		maxFileBytes = 10 * 1024 * 1024
	}
	return &PhotoService{
		DB:           db,
		Mirror:       m,
		Locks:        locks,
		Thumbs:       thumbs,
		Replica:      replica,
		MaxFileBytes: maxFileBytes,
	}
}

// UploadInput describes one already-received file sitting at a temporary
// path outside the upload tree.
type UploadInput struct {
	TempPath     string
	OriginalName string
	SizeBytes    int64
}

type BatchItemResult struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Name    string     `json:"name,omitempty"`
	Success bool       `json:"success"`
	Kind    string     `json:"kind,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// BatchResult aggregates independent per-item outcomes; one failed item
// never aborts the rest of a batch.
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

func (r *BatchResult) add(item BatchItemResult) {
	if item.Success {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Results = append(r.Results, item)
}

func failedItem(id *uuid.UUID, name string, err error) BatchItemResult {
	return BatchItemResult{
		ID:      id,
		Name:    name,
		Success: false,
		Kind:    string(apperrors.KindOf(err)),
		Error:   apperrors.MessageOf(err),
	}
}

func (s *PhotoService) Upload(ctx context.Context, tempPath, originalName string, albumID uuid.UUID, sizeBytes int64) (*models.Photo, error) {
	if sizeBytes > s.MaxFileBytes {
		return nil, apperrors.Validation(fmt.Sprintf("file exceeds the %d byte upload limit", s.MaxFileBytes))
	}

	mimeType, err := sniffMimeType(tempPath)
	if err != nil {
		return nil, apperrors.IO("failed reading uploaded file", err)
	}
	if !allowedMimeTypes[mimeType] {
		return nil, apperrors.Validation("unsupported file type; only JPEG, PNG, GIF and WebP images are accepted")
	}

	s.Locks.RLockTree()
	defer s.Locks.RUnlockTree()

	album, err := s.albumByID(albumID)
	if err != nil {
		return nil, err
	}

	naming := s.Locks.Album(albumID)
	naming.Lock()
	defer naming.Unlock()

	candidate := slug.SanitizeFilename(originalName)
	filename, err := s.makeUniqueFilename(candidate, albumID, nil)
	if err != nil {
		return nil, err
	}

	if err := s.Mirror.EnsureDirectory(ctx, album.Path); err != nil {
		return nil, apperrors.IO("failed creating album directory", err)
	}
	rel := album.Path + "/" + filename
	if err := s.Mirror.PlaceFile(ctx, tempPath, rel); err != nil {
		return nil, apperrors.IO("failed storing uploaded file", err)
	}

	absPath, err := s.Mirror.AbsPath(rel)
	if err != nil {
		return nil, apperrors.IO("failed resolving stored file path", err)
	}
	width, height := probeDimensions(absPath)

	// When the stored name got a uniqueness suffix, the display name carries
	// it too so the user sees why the name changed.
	displayName := originalName
	if filename != candidate {
		displayName = strings.TrimSuffix(filename, filepath.Ext(filename)) + filepath.Ext(originalName)
	}

	photo := &models.Photo{
		AlbumID:     albumID,
		Filename:    filename,
		DisplayName: displayName,
		SizeBytes:   sizeBytes,
		Width:       width,
		Height:      height,
	}
	if err := s.DB.Create(photo).Error; err != nil {
		// The file stays on disk for reconciliation rather than being rolled
		// back; the catalog is the source of truth for what exists.
		return nil, apperrors.Inconsistent("photo file stored but catalog insert failed", err)
	}

	if s.Thumbs != nil {
		if thumbErr := s.Thumbs.Generate(photo.ID, absPath); thumbErr != nil {
			logger.Warn("thumbnail_generate_failed", map[string]interface{}{
				"photo_id": photo.ID.String(),
				"error":    thumbErr.Error(),
			})
		}
	}
	s.replicate(ctx, photo, absPath, mimeType)

	logger.Info("photo_uploaded", map[string]interface{}{
		"photo_id": photo.ID.String(),
		"album_id": albumID.String(),
		"filename": filename,
		"size":     sizeBytes,
	})
	return photo, nil
}

func (s *PhotoService) UploadBatch(ctx context.Context, inputs []UploadInput, albumID uuid.UUID) BatchResult {
	var result BatchResult
	for _, in := range inputs {
		photo, err := s.Upload(ctx, in.TempPath, in.OriginalName, albumID, in.SizeBytes)
		if err != nil {
			result.add(failedItem(nil, in.OriginalName, err))
			continue
		}
		id := photo.ID
		result.add(BatchItemResult{ID: &id, Name: photo.DisplayName, Success: true})
	}
	return result
}

func (s *PhotoService) Rename(ctx context.Context, id uuid.UUID, newName string) (*models.Photo, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperrors.Validation("photo name cannot be empty")
	}

	s.Locks.RLockTree()
	defer s.Locks.RUnlockTree()

	photo, err := s.byID(id)
	if err != nil {
		return nil, err
	}
	album, err := s.albumByID(photo.AlbumID)
	if err != nil {
		return nil, err
	}

	naming := s.Locks.Album(photo.AlbumID)
	naming.Lock()
	defer naming.Unlock()

	// A new name without an extension keeps the current one.
	displayName := newName
	if filepath.Ext(newName) == "" {
		displayName = newName + filepath.Ext(photo.Filename)
	}

	candidate := slug.SanitizeFilename(displayName)
	filename, err := s.makeUniqueFilename(candidate, photo.AlbumID, &photo.ID)
	if err != nil {
		return nil, err
	}
	if filename != candidate {
		displayName = strings.TrimSuffix(filename, filepath.Ext(filename)) + filepath.Ext(displayName)
	}

	renamed := filename != photo.Filename
	if renamed {
		if err := s.Mirror.RenameFile(ctx, album.Path+"/"+photo.Filename, album.Path+"/"+filename); err != nil {
			return nil, apperrors.IO("failed renaming photo file", err)
		}
	}

	updates := map[string]interface{}{"filename": filename, "display_name": displayName}
	if err := s.DB.Model(&models.Photo{}).Where("id = ?", photo.ID).Updates(updates).Error; err != nil {
		if renamed {
			return nil, apperrors.Inconsistent("photo file renamed but catalog update failed", err)
		}
		return nil, apperrors.IO("failed updating photo catalog entry", err)
	}
	photo.Filename, photo.DisplayName = filename, displayName

	logger.Info("photo_renamed", map[string]interface{}{
		"photo_id": photo.ID.String(),
		"filename": filename,
	})
	return photo, nil
}

func (s *PhotoService) Move(ctx context.Context, id, targetAlbumID uuid.UUID) (*models.Photo, error) {
	s.Locks.RLockTree()
	defer s.Locks.RUnlockTree()

	photo, err := s.byID(id)
	if err != nil {
		return nil, err
	}
	if photo.AlbumID == targetAlbumID {
		return nil, apperrors.Conflict("photo is already in this album")
	}

	source, err := s.albumByID(photo.AlbumID)
	if err != nil {
		return nil, err
	}
	target, err := s.albumByID(targetAlbumID)
	if err != nil {
		return nil, err
	}

	unlock := s.Locks.LockAlbumPair(photo.AlbumID, targetAlbumID)
	defer unlock()

	filename, err := s.makeUniqueFilename(photo.Filename, targetAlbumID, nil)
	if err != nil {
		return nil, err
	}
	displayName := photo.DisplayName
	if filename != photo.Filename {
		displayName = strings.TrimSuffix(filename, filepath.Ext(filename)) + filepath.Ext(photo.DisplayName)
	}

	if err := s.Mirror.EnsureDirectory(ctx, target.Path); err != nil {
		return nil, apperrors.IO("failed creating target album directory", err)
	}
	if err := s.Mirror.MoveFile(ctx, source.Path+"/"+photo.Filename, target.Path+"/"+filename); err != nil {
		return nil, apperrors.IO("failed moving photo file", err)
	}

	updates := map[string]interface{}{
		"album_id":     targetAlbumID,
		"filename":     filename,
		"display_name": displayName,
	}
	if err := s.DB.Model(&models.Photo{}).Where("id = ?", photo.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Inconsistent("photo file moved but catalog update failed", err)
	}
	photo.AlbumID, photo.Filename, photo.DisplayName = targetAlbumID, filename, displayName

	logger.Info("photo_moved", map[string]interface{}{
		"photo_id":  photo.ID.String(),
		"album_id":  targetAlbumID.String(),
		"filename":  filename,
		"from_path": source.Path,
	})
	return photo, nil
}

func (s *PhotoService) MoveBatch(ctx context.Context, ids []uuid.UUID, targetAlbumID uuid.UUID) BatchResult {
	var result BatchResult
	for _, id := range ids {
		photoID := id
		photo, err := s.Move(ctx, id, targetAlbumID)
		if err != nil {
			result.add(failedItem(&photoID, "", err))
			continue
		}
		result.add(BatchItemResult{ID: &photoID, Name: photo.DisplayName, Success: true})
	}
	return result
}

func (s *PhotoService) Delete(ctx context.Context, id uuid.UUID) error {
	s.Locks.RLockTree()
	defer s.Locks.RUnlockTree()

	photo, err := s.byID(id)
	if err != nil {
		return err
	}
	album, err := s.albumByID(photo.AlbumID)
	if err != nil {
		return err
	}

	naming := s.Locks.Album(photo.AlbumID)
	naming.Lock()
	defer naming.Unlock()

	if err := s.purge(ctx, album, photo, false); err != nil {
		return err
	}

	logger.Info("photo_deleted", map[string]interface{}{
		"photo_id": id.String(),
		"album_id": album.ID.String(),
	})
	return nil
}

func (s *PhotoService) DeleteBatch(ctx context.Context, ids []uuid.UUID) BatchResult {
	var result BatchResult
	for _, id := range ids {
		photoID := id
		if err := s.Delete(ctx, id); err != nil {
			result.add(failedItem(&photoID, "", err))
			continue
		}
		result.add(BatchItemResult{ID: &photoID, Success: true})
	}
	return result
}

// purge removes one photo's file, side channels and catalog row. A missing
// file is tolerated; a failing removal aborts unless bestEffort is set, in
// which case it is logged and the catalog row is still removed.
func (s *PhotoService) purge(ctx context.Context, album *models.Album, photo *models.Photo, bestEffort bool) error {
	rel := album.Path + "/" + photo.Filename
	if err := s.Mirror.RemoveFile(ctx, rel); err != nil {
		if !bestEffort {
			return apperrors.IO("failed removing photo file", err)
		}
		logger.Warn("photo_file_delete_failed", map[string]interface{}{
			"photo_id": photo.ID.String(),
			"path":     rel,
			"error":    err.Error(),
		})
	}

	if s.Thumbs != nil {
		s.Thumbs.Remove(photo.ID)
	}
	if s.Replica != nil {
		_ = s.Replica.Delete(ctx, replicaKey(photo.ID))
	}

	if err := s.DB.Delete(&models.Photo{}, "id = ?", photo.ID).Error; err != nil {
		return apperrors.Inconsistent("photo file removed but catalog delete failed", err)
	}
	return nil
}

func (s *PhotoService) ByID(id uuid.UUID) (*models.Photo, error) {
	return s.byIDWith(id, true)
}

func (s *PhotoService) ByAlbum(albumID uuid.UUID) ([]models.Photo, error) {
	if _, err := s.albumByID(albumID); err != nil {
		return nil, err
	}

	var photos []models.Photo
	if err := s.DB.Where("album_id = ?", albumID).Order("uploaded_at DESC").Find(&photos).Error; err != nil {
		return nil, apperrors.IO("failed listing photos", err)
	}
	return photos, nil
}

func (s *PhotoService) All() ([]models.Photo, error) {
	var photos []models.Photo
	if err := s.DB.Preload("Album").Order("uploaded_at DESC").Find(&photos).Error; err != nil {
		return nil, apperrors.IO("failed listing photos", err)
	}
	return photos, nil
}

// URLFor builds the public file URL from the album's materialized path, so
// URLs follow the tree without any per-photo bookkeeping.
func URLFor(photo *models.Photo, album *models.Album) string {
	return "/uploads/" + album.Path + "/" + photo.Filename
}

// makeUniqueFilename resolves sibling filename collisions by appending -1,
// -2, ... before the extension until the name is free in the album. The
// caller holds the album's naming mutex across this check and the write that
// follows it.
func (s *PhotoService) makeUniqueFilename(name string, albumID uuid.UUID, excludeID *uuid.UUID) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for counter := 1; ; counter++ {
		query := s.DB.Model(&models.Photo{}).Where("album_id = ? AND filename = ?", albumID, candidate)
		if excludeID != nil {
			query = query.Where("id <> ?", *excludeID)
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return "", apperrors.IO("failed checking filename uniqueness", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", base, counter, ext)
	}
}

func (s *PhotoService) replicate(ctx context.Context, photo *models.Photo, absPath, mimeType string) {
	if s.Replica == nil {
		return
	}

	src, err := os.Open(absPath)
	if err != nil {
		logger.Warn("replica_source_open_failed", map[string]interface{}{
			"photo_id": photo.ID.String(),
			"error":    err.Error(),
		})
		return
	}
	defer src.Close()

	// Upload failures are logged by the client; the photo is already durable
	// on local disk.
	_ = s.Replica.Upload(ctx, replicaKey(photo.ID), src, photo.SizeBytes, mimeType)
}

func replicaKey(id uuid.UUID) string {
	return "photos/" + id.String()
}

func (s *PhotoService) byID(id uuid.UUID) (*models.Photo, error) {
	return s.byIDWith(id, false)
}

func (s *PhotoService) byIDWith(id uuid.UUID, withAlbum bool) (*models.Photo, error) {
	query := s.DB
	if withAlbum {
		query = query.Preload("Album")
	}

	var photo models.Photo
	if err := query.First(&photo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("photo not found")
		}
		return nil, apperrors.IO("failed loading photo", err)
	}
	return &photo, nil
}

func (s *PhotoService) albumByID(id uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := s.DB.First(&album, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("album not found")
		}
		return nil, apperrors.IO("failed loading album", err)
	}
	return &album, nil
}

func sniffMimeType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return http.DetectContentType(buf[:n]), nil
}

// probeDimensions is best-effort; an undecodable image stores zero
// dimensions rather than failing the upload.
func probeDimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
