package handlers

import (
	"net/http"
	"testing"

	"github.com/fotodepo/backend/internal/models"
)

func TestAuthEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "admin@test.com", "password123", models.UserRoleAdmin)

	t.Run("POST /api/auth/login succeeds with valid credentials", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"email":    "admin@test.com",
			"password": "password123",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if token, _ := data["token"].(string); token == "" {
			t.Fatal("expected a token in the login response")
		}
	})

	t.Run("POST /api/auth/login rejects bad password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/auth/login", map[string]any{
			"email":    "admin@test.com",
			"password": "wrong",
		}, nil)
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusUnauthorized)
		assertEnvelopeError(t, body, "invalid credentials")
	})

	t.Run("GET /api/auth/me requires a token", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/auth/me", nil, nil)
		assertStatus(t, resp, http.StatusUnauthorized)
	})
}

func TestAlbumEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "albums@test.com", "password123", models.UserRoleAdmin)

	var rootID string
	var childID string

	t.Run("POST /api/albums creates a root album", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/albums/", map[string]any{
			"name": "Yaz Tatili 2024",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		data := body["data"].(map[string]any)
		rootID = data["id"].(string)
		if data["path"].(string) != "yaz-tatili-2024" {
			t.Fatalf("unexpected path %v", data["path"])
		}
		if !env.mirror.DirectoryExists("yaz-tatili-2024") {
			t.Fatal("expected mirrored directory to exist")
		}
	})

	t.Run("POST /api/albums creates a nested album", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/albums/", map[string]any{
			"name":     "Plaj",
			"parentID": rootID,
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusCreated)
		data := body["data"].(map[string]any)
		childID = data["id"].(string)
		if data["path"].(string) != "yaz-tatili-2024/plaj" {
			t.Fatalf("unexpected path %v", data["path"])
		}
	})

	t.Run("POST /api/albums rejects empty name", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/albums/", map[string]any{
			"name": "  ",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorKind(t, body, "validation")
	})

	t.Run("GET /api/albums lists roots", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected one root album, got %d", len(data))
		}
	})

	t.Run("GET /api/albums?all=true lists the flat tree", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/?all=true", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 2 {
			t.Fatalf("expected two albums, got %d", len(data))
		}
	})

	t.Run("GET /api/albums/:id/children lists children", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/"+rootID+"/children", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 1 {
			t.Fatalf("expected one child, got %d", len(data))
		}
	})

	t.Run("GET /api/albums/:id/path returns breadcrumbs", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/"+childID+"/path", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].([]any)
		if len(data) != 2 {
			t.Fatalf("expected two breadcrumb entries, got %d", len(data))
		}
	})

	t.Run("GET /api/albums/:id/stats aggregates", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/"+rootID+"/stats", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["albumCount"].(float64) != 1 {
			t.Fatalf("expected one child album, got %v", data["albumCount"])
		}
	})

	t.Run("PUT /api/albums/:id renames and recomputes paths", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/albums/"+rootID, map[string]any{
			"name": "Kış Tatili",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["path"].(string) != "kis-tatili" {
			t.Fatalf("unexpected path %v", data["path"])
		}

		var child models.Album
		if err := env.db.First(&child, "id = ?", childID).Error; err != nil {
			t.Fatalf("failed reloading child album: %v", err)
		}
		if child.Path != "kis-tatili/plaj" {
			t.Fatalf("expected cascaded child path, got %q", child.Path)
		}
	})

	t.Run("POST /api/albums/:id/move rejects cycles", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/albums/"+rootID+"/move", map[string]any{
			"parentID": childID,
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusConflict)
		assertErrorKind(t, body, "conflict")
	})

	t.Run("POST /api/albums/:id/move reparents to root", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/albums/"+childID+"/move", map[string]any{}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		data := body["data"].(map[string]any)
		if data["path"].(string) != "plaj" {
			t.Fatalf("unexpected path %v", data["path"])
		}
	})

	t.Run("DELETE /api/albums/:id removes the subtree", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/albums/"+rootID, nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		if env.mirror.DirectoryExists("kis-tatili") {
			t.Fatal("expected directory to be removed")
		}
	})

	t.Run("GET /api/albums/:id unknown id is 404", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/"+rootID, nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "album not found")
	})

	t.Run("GET /api/albums/:id invalid uuid is 400", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/albums/not-a-uuid", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusBadRequest)
	})
}
