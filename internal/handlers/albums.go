package handlers

import (
	"strings"

	"github.com/fotodepo/backend/internal/services"
	"github.com/fotodepo/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AlbumsHandler struct {
	Albums *services.AlbumService
}

func NewAlbumsHandler(albums *services.AlbumService) *AlbumsHandler {
	return &AlbumsHandler{Albums: albums}
}

type createAlbumRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentID"`
}

func (h *AlbumsHandler) Create(c *fiber.Ctx) error {
	var req createAlbumRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parsed, err := parseUUID(*req.ParentID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
		}
		parentID = &parsed
	}

	album, err := h.Albums.Create(c.Context(), req.Name, parentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, album)
}

// List returns root albums by default; ?all=true returns the flat tree
// ordered by path for move-target pickers.
func (h *AlbumsHandler) List(c *fiber.Ctx) error {
	if c.Query("all") == "true" {
		albums, err := h.Albums.All()
		if err != nil {
			return respondError(c, err)
		}
		return utils.Success(c, fiber.StatusOK, albums)
	}

	albums, err := h.Albums.Roots()
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, albums)
}

func (h *AlbumsHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	album, err := h.Albums.ByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, album)
}

func (h *AlbumsHandler) Children(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	children, err := h.Albums.Children(id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, children)
}

func (h *AlbumsHandler) Path(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	chain, err := h.Albums.Breadcrumbs(id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, chain)
}

func (h *AlbumsHandler) Stats(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	stats, err := h.Albums.Stats(id)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

type renameAlbumRequest struct {
	Name string `json:"name"`
}

func (h *AlbumsHandler) Rename(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	var req renameAlbumRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	album, err := h.Albums.Rename(c.Context(), id, req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, album)
}

type moveAlbumRequest struct {
	ParentID *string `json:"parentID"`
}

func (h *AlbumsHandler) Move(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	var req moveAlbumRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parsed, err := parseUUID(*req.ParentID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid parentID")
		}
		parentID = &parsed
	}

	album, err := h.Albums.Move(c.Context(), id, parentID)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, album)
}

func (h *AlbumsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid album id")
	}

	if err := h.Albums.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
