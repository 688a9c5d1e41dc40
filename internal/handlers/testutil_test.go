package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fotodepo/backend/internal/middleware"
	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/models"
	"github.com/fotodepo/backend/internal/services"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/fotodepo/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	mirror *mirror.Mirror
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
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

	uploadMirror := mirror.New(t.TempDir(), 5*time.Second)
	locks := services.NewTreeLocks()
	thumbs := services.NewThumbnailService(t.TempDir(), 64)
	photoService := services.NewPhotoService(db, uploadMirror, locks, thumbs, nil, 10*1024*1024)
	albumService := services.NewAlbumService(db, uploadMirror, locks, photoService, true)

	authHandler := NewAuthHandler(db)
	albumsHandler := NewAlbumsHandler(albumService)
	photosHandler := NewPhotosHandler(photoService, albumService, uploadMirror, thumbs)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 20 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	albumRoutes := api.Group("/albums", authMiddleware.RequireAuth)
	albumRoutes.Post("/", albumsHandler.Create)
	albumRoutes.Get("/", albumsHandler.List)
	albumRoutes.Get("/:id/children", albumsHandler.Children)
	albumRoutes.Get("/:id/path", albumsHandler.Path)
	albumRoutes.Get("/:id/stats", albumsHandler.Stats)
	albumRoutes.Post("/:id/move", albumsHandler.Move)
	albumRoutes.Get("/:id", albumsHandler.Get)
	albumRoutes.Put("/:id", albumsHandler.Rename)
	albumRoutes.Delete("/:id", albumsHandler.Delete)

	photoRoutes := api.Group("/photos", authMiddleware.RequireAuth)
	photoRoutes.Post("/upload", photosHandler.Upload)
	photoRoutes.Get("/", photosHandler.List)
	photoRoutes.Post("/batch-move", photosHandler.BatchMove)
	photoRoutes.Post("/batch-delete", photosHandler.BatchDelete)
	photoRoutes.Get("/:id/file", photosHandler.File)
	photoRoutes.Get("/:id/thumbnail", photosHandler.Thumbnail)
	photoRoutes.Post("/:id/move", photosHandler.Move)
	photoRoutes.Put("/:id", photosHandler.Rename)
	photoRoutes.Get("/:id", photosHandler.Get)
	photoRoutes.Delete("/:id", photosHandler.Delete)

	return &testEnv{app: app, db: db, mirror: uploadMirror}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{Email: email, PasswordHash: hash, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}
	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}
	return performRequest(t, app, method, path, body, requestHeaders)
}

// performUpload posts named PNG parts under the "files" field plus the
// albumID form value.
func performUpload(t *testing.T, app *fiber.App, albumID string, filenames []string, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("albumID", albumID); err != nil {
		t.Fatalf("failed writing albumID field: %v", err)
	}
	for _, filename := range filenames {
		part, err := writer.CreateFormFile("files", filename)
		if err != nil {
			t.Fatalf("failed creating form file: %v", err)
		}
		if _, err := part.Write(testPNGBytes(t)); err != nil {
			t.Fatalf("failed writing form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	return performRequest(t, app, http.MethodPost, "/api/photos/upload", &buf, requestHeaders)
}

func testPNGBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 160, B: 220, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed encoding test png: %v", err)
	}
	return buf.Bytes()
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}
	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func assertErrorKind(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["kind"].(string); got != expected {
		t.Fatalf("expected error kind %q, got %q (%+v)", expected, got, body)
	}
}
