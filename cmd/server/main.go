package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yorunoba/nightdesk-backend/config"
	"github.com/yorunoba/nightdesk-backend/internal/ai"
	"github.com/yorunoba/nightdesk-backend/internal/app/controller"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/db"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	"github.com/yorunoba/nightdesk-backend/internal/router"
	"github.com/yorunoba/nightdesk-backend/internal/scheduler"
	"github.com/yorunoba/nightdesk-backend/internal/storage"
	"github.com/yorunoba/nightdesk-backend/internal/tablebrowser"
	"github.com/yorunoba/nightdesk-backend/internal/websocket"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"github.com/yorunoba/nightdesk-backend/pkg/redis"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting NightDesk Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Token revocation lives in Redis when enabled so every instance sees logouts
	revoker := redis.NewMemoryRevoker()
	if cfg.Redis.Enabled {
		client, err := redis.Connect(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, keeping revoked tokens in memory", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			revoker = redis.NewRevoker(client)
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("Failed to close redis connection", err)
				}
			}()
		}
	}

	loc := util.LoadLocation(cfg.Display.Timezone)
	conn := db.GetDB()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	browser := tablebrowser.New(conn, tablebrowser.DefaultTables(), loc, cfg.Display.TablePageSize)

	var objects storage.ObjectStorage
	if cfg.S3.Bucket != "" {
		objects = storage.NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL)
	} else {
		logger.Warn("S3 bucket not set, uploads are disabled")
	}

	backends := loadAIBackends(cfg.AI)

	// Initialize repositories
	storeRepo := repository.NewStoreRepository(conn)
	accountRepo := repository.NewAccountRepository(conn)
	profileRepo := repository.NewProfileRepository(conn)
	menuRepo := repository.NewMenuRepository(conn)
	bottleRepo := repository.NewBottleKeepRepository(conn)
	commentRepo := repository.NewCommentRepository(conn)
	shiftRepo := repository.NewShiftRepository(conn)
	attendanceRepo := repository.NewAttendanceRepository(conn)
	snsRepo := repository.NewSNSRepository(conn)

	// Initialize services
	authService := service.NewAuthService(
		storeRepo,
		accountRepo,
		profileRepo,
		revoker,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	storeService := service.NewStoreService(storeRepo, browser)
	profileService := service.NewProfileService(profileRepo, accountRepo, browser)
	menuService := service.NewMenuService(menuRepo, browser)
	bottleService := service.NewBottleKeepService(bottleRepo, profileRepo, menuRepo, hub, browser, loc)
	commentService := service.NewCommentService(commentRepo, profileRepo, bottleRepo, shiftRepo, browser)
	shiftService := service.NewShiftService(shiftRepo, hub, browser)
	attendanceService := service.NewAttendanceService(attendanceRepo, shiftRepo, profileRepo, hub, browser, loc)
	snsService := service.NewSNSService(snsRepo, nil, backends.Text, browser, loc)
	aiService := service.NewAIService(backends, objects)
	dashboardService := service.NewDashboardService(profileRepo, bottleRepo, shiftRepo, attendanceRepo, snsRepo, menuRepo, loc)
	uploadService := service.NewUploadService(objects)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, revoker)

	// Setup router
	r := router.NewRouter(router.Controllers{
		Auth:       controller.NewAuthController(authService),
		Store:      controller.NewStoreController(storeService),
		Profile:    controller.NewProfileController(profileService),
		Menu:       controller.NewMenuController(menuService),
		BottleKeep: controller.NewBottleKeepController(bottleService),
		Comment:    controller.NewCommentController(commentService),
		Shift:      controller.NewShiftController(shiftService),
		Attendance: controller.NewAttendanceController(attendanceService),
		Table:      controller.NewTableController(browser),
		SNS:        controller.NewSNSController(snsService),
		AI:         controller.NewAIController(aiService),
		Dashboard:  controller.NewDashboardController(dashboardService),
		Upload:     controller.NewUploadController(uploadService),
		Event:      controller.NewEventController(hub, cfg.CORS.AllowedOrigins),
	}, authMiddleware, cfg)
	engine := r.Setup()

	if cfg.Scheduler.Enabled {
		jobs := scheduler.New(scheduler.Config{
			SNSSpec:          cfg.Scheduler.SNSPublishSpec,
			BottleExpirySpec: cfg.Scheduler.BottleExpirySpec,
			Location:         loc,
		}, snsService, bottleService)
		if err := jobs.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", err)
		}
		defer jobs.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}

// loadAIBackends wires whichever providers have keys. Missing ones stay nil
// and the matching endpoints answer 503.
func loadAIBackends(cfg config.AIConfig) service.AIBackends {
	var backends service.AIBackends

	gemini, err := ai.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ImageModel)
	switch {
	case err == nil:
		backends.Text = gemini
		backends.Vision = gemini
		backends.Images = gemini
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("Gemini API key not set, AI menu and image features are disabled")
	default:
		logger.Error("Failed to create Gemini client", err)
	}

	if cfg.TextProvider == "openai" {
		openAI, err := ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Warn("OpenAI text provider unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			backends.Text = openAI
		}
	}

	return backends
}
