package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fotodepo/backend/internal/config"
	"github.com/fotodepo/backend/internal/database"
	"github.com/fotodepo/backend/internal/handlers"
	"github.com/fotodepo/backend/internal/middleware"
	"github.com/fotodepo/backend/internal/mirror"
	"github.com/fotodepo/backend/internal/services"
	"github.com/fotodepo/backend/internal/storage"
	"github.com/fotodepo/backend/pkg/logger"
	"github.com/fotodepo/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := os.MkdirAll(cfg.Uploads.Root, 0o755); err != nil {
		log.Fatalf("upload root initialization failed: %v", err)
	}
	uploadMirror := mirror.New(cfg.Uploads.Root, cfg.Uploads.FSTimeout)

	var replica *storage.MinIOClient
	if cfg.MinIO.Enabled {
		replica, err = storage.NewMinIOClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("minio initialization failed: %v", err)
		}
		if err := replica.EnsureBucket(context.Background()); err != nil {
			log.Fatalf("failed ensuring minio bucket: %v", err)
		}
	}

	locks := services.NewTreeLocks()
	thumbs := services.NewThumbnailService(cfg.Uploads.ThumbnailRoot, cfg.Uploads.ThumbnailEdge)
	photoService := services.NewPhotoService(db, uploadMirror, locks, thumbs, replica, cfg.Uploads.MaxFileBytes)
	albumService := services.NewAlbumService(db, uploadMirror, locks, photoService, cfg.Uploads.BestEffortDelete)

	authHandler := handlers.NewAuthHandler(db)
	albumsHandler := handlers.NewAlbumsHandler(albumService)
	photosHandler := handlers.NewPhotosHandler(photoService, albumService, uploadMirror, thumbs)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: int(cfg.Uploads.MaxFileBytes) * 2})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.Static("/uploads", cfg.Uploads.Root)

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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":        cfg.Server.Port,
		"address":     listenAddr,
		"upload_root": cfg.Uploads.Root,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
