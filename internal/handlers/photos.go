package handlers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/internal/services"
	"github.com/fotodepo/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PhotosHandler struct {
	Photos *services.PhotoService
	Albums *services.AlbumService
	Mirror *mirror.Mirror
	Thumbs *services.ThumbnailService
}

func NewPhotosHandler(photos *services.PhotoService, albums *services.AlbumService, m *mirror.Mirror, thumbs *services.ThumbnailService) *PhotosHandler {
	return &PhotosHandler{Photos: photos, Albums: albums, Mirror: m, Thumbs: thumbs}
}

type photoResponse struct {
	models.Photo
	URL string `json:"url"`
}

func (h *PhotosHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid multipart form")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no files provided")
	}

	albumID, err := parseUUID(c.FormValue("albumID"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid albumID")
	}

	// Each part lands in a temp file outside the upload tree; the service
	// moves it into place, so only failed uploads leave a temp behind.
	inputs := make([]services.UploadInput, 0, len(headers))
	tempPaths := make([]string, 0, len(headers))
	for _, header := range headers {
		tempPath := filepath.Join(os.TempDir(), "fotodepo-upload-"+uuid.New().String())
		if err := c.SaveFile(header, tempPath); err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed receiving uploaded file")
		}
		tempPaths = append(tempPaths, tempPath)
		inputs = append(inputs, services.UploadInput{
			TempPath:     tempPath,
			OriginalName: header.Filename,
			SizeBytes:    header.Size,
		})
	}
	defer func() {
		for _, tempPath := range tempPaths {
			_ = os.Remove(tempPath)
		}
	}()

	result := h.Photos.UploadBatch(c.Context(), inputs, albumID)
	return utils.Success(c, fiber.StatusOK, result)
}

// List returns one album's photos when albumID is given, otherwise the
// global recency feed across all albums.
func (h *PhotosHandler) List(c *fiber.Ctx) error {
	albumIDRaw := strings.TrimSpace(c.Query("albumID"))
	if albumIDRaw == "" {
		photos, err := h.Photos.All()
		if err != nil {
			return respondError(c, err)
		}

		responses := make([]photoResponse, 0, len(photos))
		for i := range photos {
			responses = append(responses, photoResponse{
				Photo: photos[i],
				URL:   services.URLFor(&photos[i], photos[i].Album),
			})
		}
		return utils.Success(c, fiber.StatusOK, responses)
	}

	albumID, err := parseUUID(albumIDRaw)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid albumID")
	}

	album, err := h.Albums.ByID(albumID)
	if err != nil {
		return respondError(c, err)
	}
	photos, err := h.Photos.ByAlbum(albumID)
	if err != nil {
		return respondError(c, err)
	}

	responses := make([]photoResponse, 0, len(photos))
	for i := range photos {
		responses = append(responses, photoResponse{
			Photo: photos[i],
			URL:   services.URLFor(&photos[i], album),
		})
	}
	return utils.Success(c, fiber.StatusOK, responses)
}

func (h *PhotosHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	photo, err := h.Photos.ByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, photoResponse{
		Photo: *photo,
		URL:   services.URLFor(photo, photo.Album),
	})
}

type renamePhotoRequest struct {
	Name string `json:"name"`
}

func (h *PhotosHandler) Rename(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	var req renamePhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	photo, err := h.Photos.Rename(c.Context(), id, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, photo)
}

type movePhotoRequest struct {
	AlbumID string `json:"albumID"`
}

func (h *PhotosHandler) Move(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	var req movePhotoRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	albumID, err := parseUUID(req.AlbumID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid albumID")
	}

	photo, err := h.Photos.Move(c.Context(), id, albumID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, photo)
}

type batchMoveRequest struct {
	IDs     []string `json:"ids"`
	AlbumID string   `json:"albumID"`
}

func (h *PhotosHandler) BatchMove(c *fiber.Ctx) error {
	var req batchMoveRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no photo ids provided")
	}
	albumID, err := parseUUID(req.AlbumID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid albumID")
	}

	ids, err := parseUUIDList(req.IDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id in list")
	}

	result := h.Photos.MoveBatch(c.Context(), ids, albumID)
	return utils.Success(c, fiber.StatusOK, result)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *PhotosHandler) BatchDelete(c *fiber.Ctx) error {
	var req batchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "no photo ids provided")
	}

	ids, err := parseUUIDList(req.IDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id in list")
	}

	result := h.Photos.DeleteBatch(c.Context(), ids)
	return utils.Success(c, fiber.StatusOK, result)
}

func (h *PhotosHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	if err := h.Photos.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *PhotosHandler) File(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	photo, err := h.Photos.ByID(id)
	if err != nil {
		return respondError(c, err)
	}

	absPath, err := h.Mirror.AbsPath(photo.Album.Path + "/" + photo.Filename)
	if err != nil {
		return respondError(c, err)
	}
	if _, statErr := os.Stat(absPath); statErr != nil {
		return utils.Error(c, fiber.StatusNotFound, "photo file not found")
	}

	c.Set("Content-Disposition", `inline; filename="`+photo.DisplayName+`"`)
	return c.SendFile(absPath)
}

// Thumbnail serves the cached thumbnail, falling back to the original file
// when the cache entry is missing or the cache is disabled.
func (h *PhotosHandler) Thumbnail(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid photo id")
	}

	if h.Thumbs != nil {
		thumbPath := h.Thumbs.Path(id)
		if _, statErr := os.Stat(thumbPath); statErr == nil {
			return c.SendFile(thumbPath)
		}
	}
	return h.File(c)
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		id, err := parseUUID(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
