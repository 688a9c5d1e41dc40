package services

import (
	"context"
	"errors"
	"strings"

	"github.com/fotodepo/backend/internal/apperrors"
	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/internal/slug"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlbumService owns the album tree: catalog rows, materialized paths and the
// mirrored directory layout. Structural mutations hold the tree lock
// exclusively for their full duration, including the physical operation.
type AlbumService struct {
	DB     *gorm.DB
	Mirror *mirror.Mirror
	Locks  *TreeLocks
	Photos *PhotoService

	// BestEffortDelete keeps a cascading delete going past individual
	// photo-file failures. This matches the original system's observed
	// behavior and is deliberately configurable rather than silent.
	BestEffortDelete bool
}

func NewAlbumService(db *gorm.DB, m *mirror.Mirror, locks *TreeLocks, photos *PhotoService, bestEffortDelete bool) *AlbumService {
	return &AlbumService{
		DB:               db,
		Mirror:           m,
		Locks:            locks,
		Photos:           photos,
		BestEffortDelete: bestEffortDelete,
	}
}

// computePath materializes an album path: the slug itself at the root,
// otherwise the parent's path extended by the slug.
func computePath(albumSlug string, parent *models.Album) string {
	if parent == nil {
		return albumSlug
	}
	return parent.Path + "/" + albumSlug
}

func (s *AlbumService) Create(ctx context.Context, name string, parentID *uuid.UUID) (*models.Album, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("album name cannot be empty")
	}

	s.Locks.LockTree()
	defer s.Locks.UnlockTree()

	var parent *models.Album
	if parentID != nil {
		var err error
		parent, err = s.byID(*parentID)
		if err != nil {
			return nil, err
		}
	}

	albumSlug := slug.Make(name, slug.AlbumFallback)
	path := computePath(albumSlug, parent)

	if err := s.Mirror.EnsureDirectory(ctx, path); err != nil {
		return nil, apperrors.IO("failed creating album directory", err)
	}

	album := &models.Album{Name: name, Slug: albumSlug, Path: path, ParentID: parentID}
	if err := s.DB.Create(album).Error; err != nil {
		return nil, apperrors.Inconsistent("album directory created but catalog insert failed", err)
	}

	logger.Info("album_created", map[string]interface{}{
		"album_id": album.ID.String(),
		"path":     album.Path,
	})
	return album, nil
}

func (s *AlbumService) Rename(ctx context.Context, id uuid.UUID, newName string) (*models.Album, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperrors.Validation("album name cannot be empty")
	}

	s.Locks.LockTree()
	defer s.Locks.UnlockTree()

	album, err := s.byID(id)
	if err != nil {
		return nil, err
	}

	var parent *models.Album
	if album.ParentID != nil {
		if parent, err = s.byID(*album.ParentID); err != nil {
			return nil, err
		}
	}

	newSlug := slug.Make(newName, slug.AlbumFallback)
	newPath := computePath(newSlug, parent)

	if newPath != album.Path {
		if err := s.Mirror.RenameDirectory(ctx, album.Path, newPath); err != nil {
			return nil, apperrors.IO("failed renaming album directory", err)
		}
	}

	updates := map[string]interface{}{"name": newName, "slug": newSlug, "path": newPath}
	if err := s.DB.Model(&models.Album{}).Where("id = ?", album.ID).Updates(updates).Error; err != nil {
		if newPath != album.Path {
			return nil, apperrors.Inconsistent("album directory renamed but catalog update failed", err)
		}
		return nil, apperrors.IO("failed updating album catalog entry", err)
	}
	album.Name, album.Slug, album.Path = newName, newSlug, newPath

	if err := s.cascadePaths(ctx, album); err != nil {
		return nil, err
	}

	logger.Info("album_renamed", map[string]interface{}{
		"album_id": album.ID.String(),
		"path":     album.Path,
	})
	return album, nil
}

func (s *AlbumService) Move(ctx context.Context, id uuid.UUID, newParentID *uuid.UUID) (*models.Album, error) {
	if newParentID != nil && *newParentID == id {
		return nil, apperrors.Conflict("album cannot be its own parent")
	}

	s.Locks.LockTree()
	defer s.Locks.UnlockTree()

	album, err := s.byID(id)
	if err != nil {
		return nil, err
	}

	var newParent *models.Album
	if newParentID != nil {
		if newParent, err = s.byID(*newParentID); err != nil {
			return nil, err
		}
		inSubtree, err := s.isDescendant(id, *newParentID)
		if err != nil {
			return nil, err
		}
		if inSubtree {
			return nil, apperrors.Conflict("album cannot be moved inside its own subtree")
		}
	}

	newPath := computePath(album.Slug, newParent)

	if newPath != album.Path {
		if err := s.Mirror.RenameDirectory(ctx, album.Path, newPath); err != nil {
			return nil, apperrors.IO("failed moving album directory", err)
		}
	}

	updates := map[string]interface{}{"parent_id": newParentID, "path": newPath}
	if err := s.DB.Model(&models.Album{}).Where("id = ?", album.ID).Updates(updates).Error; err != nil {
		if newPath != album.Path {
			return nil, apperrors.Inconsistent("album directory moved but catalog update failed", err)
		}
		return nil, apperrors.IO("failed updating album catalog entry", err)
	}
	album.ParentID, album.Path = newParentID, newPath

	if err := s.cascadePaths(ctx, album); err != nil {
		return nil, err
	}

	logger.Info("album_moved", map[string]interface{}{
		"album_id": album.ID.String(),
		"path":     album.Path,
	})
	return album, nil
}

// cascadePaths recomputes every descendant's path after parent's own path
// changed, pre-order: a child's new path depends on the parent's new one.
// The parent's directory rename already moved the subtree on disk, so the
// per-child directory rename is usually a no-op; the mirror tolerates the
// missing source, which keeps the cascade idempotent.
func (s *AlbumService) cascadePaths(ctx context.Context, parent *models.Album) error {
	var children []models.Album
	if err := s.DB.Where("parent_id = ?", parent.ID).Find(&children).Error; err != nil {
		return apperrors.IO("failed loading child albums", err)
	}

	for i := range children {
		child := &children[i]
		newPath := parent.Path + "/" + child.Slug

		if newPath != child.Path {
			if err := s.Mirror.RenameDirectory(ctx, child.Path, newPath); err != nil {
				return apperrors.IO("failed relocating child album directory", err)
			}
			if err := s.DB.Model(&models.Album{}).Where("id = ?", child.ID).Update("path", newPath).Error; err != nil {
				return apperrors.Inconsistent("child album directory relocated but catalog update failed", err)
			}
			child.Path = newPath
		}

		if err := s.cascadePaths(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

// isDescendant reports whether candidate sits in the subtree rooted at
// ancestorID, walking candidate's parent chain through the catalog.
func (s *AlbumService) isDescendant(ancestorID, candidateID uuid.UUID) (bool, error) {
	current := candidateID
	for {
		if current == ancestorID {
			return true, nil
		}

		var album models.Album
		err := s.DB.Select("id", "parent_id").First(&album, "id = ?", current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, apperrors.IO("failed walking album ancestry", err)
		}
		if album.ParentID == nil {
			return false, nil
		}
		current = *album.ParentID
	}
}

func (s *AlbumService) Delete(ctx context.Context, id uuid.UUID) error {
	s.Locks.LockTree()
	defer s.Locks.UnlockTree()

	album, err := s.byID(id)
	if err != nil {
		return err
	}

	if err := s.deleteRecursive(ctx, album); err != nil {
		return err
	}

	logger.Info("album_deleted", map[string]interface{}{
		"album_id": id.String(),
		"path":     album.Path,
	})
	return nil
}

// deleteRecursive destroys a subtree bottom-up: descendant albums first,
// then the album's own photos, then its directory, then its row.
func (s *AlbumService) deleteRecursive(ctx context.Context, album *models.Album) error {
	var children []models.Album
	if err := s.DB.Where("parent_id = ?", album.ID).Find(&children).Error; err != nil {
		return apperrors.IO("failed loading child albums", err)
	}
	for i := range children {
		if err := s.deleteRecursive(ctx, &children[i]); err != nil {
			return err
		}
	}

	var photos []models.Photo
	if err := s.DB.Where("album_id = ?", album.ID).Find(&photos).Error; err != nil {
		return apperrors.IO("failed loading album photos", err)
	}
	for i := range photos {
		if err := s.Photos.purge(ctx, album, &photos[i], s.BestEffortDelete); err != nil {
			return err
		}
	}

	if err := s.Mirror.DeleteDirectoryRecursive(ctx, album.Path); err != nil {
		return apperrors.IO("failed removing album directory", err)
	}

	if err := s.DB.Delete(&models.Album{}, "id = ?", album.ID).Error; err != nil {
		return apperrors.Inconsistent("album directory removed but catalog delete failed", err)
	}
	return nil
}

func (s *AlbumService) ByID(id uuid.UUID) (*models.Album, error) {
	album, err := s.byID(id)
	if err != nil {
		return nil, err
	}
	if err := s.decorateCounts([]*models.Album{album}); err != nil {
		return nil, err
	}
	return album, nil
}

func (s *AlbumService) Roots() ([]models.Album, error) {
	var albums []models.Album
	if err := s.DB.Where("parent_id IS NULL").Order("name ASC").Find(&albums).Error; err != nil {
		return nil, apperrors.IO("failed listing root albums", err)
	}
	if err := s.decorateCountsSlice(albums); err != nil {
		return nil, err
	}
	return albums, nil
}

func (s *AlbumService) Children(parentID uuid.UUID) ([]models.Album, error) {
	if _, err := s.byID(parentID); err != nil {
		return nil, err
	}

	var albums []models.Album
	if err := s.DB.Where("parent_id = ?", parentID).Order("name ASC").Find(&albums).Error; err != nil {
		return nil, apperrors.IO("failed listing child albums", err)
	}
	if err := s.decorateCountsSlice(albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// All returns the flat album list ordered by path, which reads as a
// depth-first tree walk; consumers use it for move-target dropdowns.
func (s *AlbumService) All() ([]models.Album, error) {
	var albums []models.Album
	if err := s.DB.Order("path ASC").Find(&albums).Error; err != nil {
		return nil, apperrors.IO("failed listing albums", err)
	}
	return albums, nil
}

// Breadcrumbs returns the ancestor chain root→id inclusive.
func (s *AlbumService) Breadcrumbs(id uuid.UUID) ([]models.Album, error) {
	chain := make([]models.Album, 0)
	current := id
	for {
		album, err := s.byID(current)
		if err != nil {
			if len(chain) == 0 {
				return nil, err
			}
			// A dangling parent reference ends the walk instead of failing
			// the whole breadcrumb.
			break
		}
		chain = append(chain, *album)
		if album.ParentID == nil {
			break
		}
		current = *album.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *AlbumService) Stats(id uuid.UUID) (*models.AlbumStats, error) {
	if _, err := s.byID(id); err != nil {
		return nil, err
	}

	stats := &models.AlbumStats{}
	if err := s.DB.Model(&models.Album{}).Where("parent_id = ?", id).Count(&stats.AlbumCount).Error; err != nil {
		return nil, apperrors.IO("failed counting child albums", err)
	}
	if err := s.DB.Model(&models.Photo{}).Where("album_id = ?", id).Count(&stats.PhotoCount).Error; err != nil {
		return nil, apperrors.IO("failed counting photos", err)
	}
	if err := s.DB.Model(&models.Photo{}).Where("album_id = ?", id).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&stats.TotalSize).Error; err != nil {
		return nil, apperrors.IO("failed summing photo sizes", err)
	}
	return stats, nil
}

func (s *AlbumService) byID(id uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := s.DB.First(&album, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("album not found")
		}
		return nil, apperrors.IO("failed loading album", err)
	}
	return &album, nil
}

func (s *AlbumService) decorateCountsSlice(albums []models.Album) error {
	refs := make([]*models.Album, len(albums))
	for i := range albums {
		refs[i] = &albums[i]
	}
	return s.decorateCounts(refs)
}

// decorateCounts fills the live child/photo counters with two grouped
// queries; counts are computed at read time, never stored.
func (s *AlbumService) decorateCounts(albums []*models.Album) error {
	if len(albums) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(albums))
	for i, album := range albums {
		ids[i] = album.ID
	}

	type grouped struct {
		Key   uuid.UUID
		Count int64
	}

	var childRows []grouped
	if err := s.DB.Model(&models.Album{}).
		Select("parent_id AS key, COUNT(*) AS count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&childRows).Error; err != nil {
		return apperrors.IO("failed counting child albums", err)
	}

	var photoRows []grouped
	if err := s.DB.Model(&models.Photo{}).
		Select("album_id AS key, COUNT(*) AS count").
		Where("album_id IN ?", ids).
		Group("album_id").
		Scan(&photoRows).Error; err != nil {
		return apperrors.IO("failed counting photos", err)
	}

	childCounts := make(map[uuid.UUID]int64, len(childRows))
	for _, row := range childRows {
		childCounts[row.Key] = row.Count
	}
	photoCounts := make(map[uuid.UUID]int64, len(photoRows))
	for _, row := range photoRows {
		photoCounts[row.Key] = row.Count
	}

	for _, album := range albums {
		album.ChildCount = childCounts[album.ID]
		album.PhotoCount = photoCounts[album.ID]
	}
	return nil
}
