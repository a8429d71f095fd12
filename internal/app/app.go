package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"picserve/internal/config"
	"picserve/internal/handlers"
	"picserve/internal/imaging"
	"picserve/internal/logger"
	"picserve/internal/middleware"
	"picserve/internal/models"
	"picserve/internal/partition"
	"picserve/internal/rendercache"
	"picserve/internal/repositories"
	"picserve/internal/routes"
	"picserve/internal/selection"
	"picserve/internal/services"
	"picserve/internal/tagger"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Run boots the service: config, logger, database, router.
func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	db, err := OpenDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to open database", "error", err, "path", cfg.Database.Path)
	}
	logger.Info("Database ready", "path", cfg.Database.Path)

	router, err := SetupRouter(cfg, db)
	if err != nil {
		logger.Fatal("Failed to set up router", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := router.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// OpenDatabase opens (creating if needed) the SQLite store and migrates
// the schema.
func OpenDatabase(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	err = db.AutoMigrate(
		&models.Partition{},
		&models.Image{},
		&models.Tag{},
		&models.ImageTag{},
		&models.RandomPick{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// SetupRouter constructs every component from the config and returns the
// assembled gin engine. Everything is wired explicitly here; no component
// reads global state.
func SetupRouter(cfg *config.Config, db *gorm.DB) (*gin.Engine, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	processor := imaging.NewProcessor(cfg.Images.JPEGQuality)
	visualTagger := tagger.New()

	imageRepo := repositories.NewImageRepository()
	partitionRepo := repositories.NewPartitionRepository()
	tagRepo := repositories.NewTagRepository()
	pickRepo := repositories.NewRandomPickRepository()

	allocator := partition.NewAllocator(partitionRepo, imageRepo, cfg.Storage.UploadDir, cfg.Images.PartitionSize)
	engine := selection.NewEngine(imageRepo, pickRepo, time.Duration(cfg.Images.RandomTTL)*time.Second, nil)
	cache, err := rendercache.NewCache(cfg.Storage.CacheDir, processor)
	if err != nil {
		return nil, err
	}

	imageService := services.NewImageService(imageRepo, tagRepo, allocator, visualTagger, processor, cfg.Storage.UploadDir)

	appHandlers := &handlers.AppHandlers{
		Delivery: handlers.NewDeliveryHandler(engine, cache, imageService, cfg.Storage.FallbackImage, cfg.Images.CacheMaxAge),
		Images:   handlers.NewImageHandler(imageService),
		Tags:     handlers.NewTagHandler(imageRepo, tagRepo),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.DBMiddleware(db))

	routes.RegisterRoutes(router, appHandlers)
	return router, nil
}
