package main

import (
	"context"
	"errors"
	"flag"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llamachat/internal/config"
	"llamachat/internal/infrastructure"
	"llamachat/internal/interfaces/http"
	"llamachat/internal/repository"
	"llamachat/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file when present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	dev := flag.Bool("dev", false, "use development defaults for JWT_SECRET and DATABASE_URL")
	flag.Parse()

	loadConfig := config.Load
	if *dev {
		log.Println("WARNING: running with development defaults")
		loadConfig = config.LoadWithDefaults
	}
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Starting with %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL and apply the schema
	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	// Initialize Repositories
	userRepo := repository.NewUserRepository(pgClient.Pool)
	sessionRepo := repository.NewChatSessionRepository(pgClient.Pool)
	messageRepo := repository.NewMessageRepository(pgClient.Pool)
	settingsRepo := repository.NewSettingsRepository(pgClient.Pool)
	usageRepo := repository.NewUsageRepository(pgClient.Pool)

	// Initialize Usecases & Services
	settings := usecases.NewSettingsService(settingsRepo)
	if err := settings.SeedDefaults(ctx); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	authUsecase := usecases.NewAuthUsecase(userRepo, settings, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	created, err := authUsecase.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}
	if created {
		log.Printf("Created default admin user %q", cfg.Auth.AdminUsername)
	}

	ollama := infrastructure.NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Timeout)
	chatService := usecases.NewChatService(sessionRepo, messageRepo, usageRepo, ollama, settings)

	if cfg.Archive.Enabled() {
		archiver, err := infrastructure.NewS3Archiver(ctx, infrastructure.S3Config{
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Region:    cfg.Archive.Region,
			Bucket:    cfg.Archive.Bucket,
			Endpoint:  cfg.Archive.Endpoint,
			Prefix:    cfg.Archive.Prefix,
		})
		if err != nil {
			log.Fatalf("Failed to initialize transcript archive: %v", err)
		}
		chatService.SetArchiver(archiver)
		log.Printf("Transcript archive enabled (bucket %s)", cfg.Archive.Bucket)
	}

	dashboardUsecase := usecases.NewDashboardUsecase(userRepo, sessionRepo, messageRepo, settings)

	// Idle-session janitor
	janitor := usecases.NewSessionJanitor(sessionRepo, chatService, settings)
	scheduler := infrastructure.NewScheduler()
	if err := scheduler.AddJob("session janitor", cfg.Janitor.Schedule, janitor.Run); err != nil {
		log.Fatalf("Failed to schedule janitor: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	limiter := infrastructure.NewMessageRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer limiter.Close()
	authMiddleware := http.NewMiddleware(cfg.Auth.JWTSecret, authUsecase, limiter)

	// Telegram bridge (optional)
	var telegramHandler *http.TelegramHandler
	if cfg.Telegram.BotToken != "" {
		tgManager, err := infrastructure.NewTelegramBotManager(cfg.Telegram.BotToken)
		if err != nil {
			log.Printf("Telegram disabled: %v", err)
		} else {
			linker := usecases.NewTelegramLinker(userRepo)
			tracker := infrastructure.NewChatTracker(infrastructure.DebounceWindow)
			telegramHandler = http.NewTelegramHandler(tgManager, linker, chatService, tracker)
			tgManager.MessageHandler = telegramHandler.HandleUpdate
			tgManager.Start()
			defer tgManager.Stop()
			log.Printf("Telegram Bot Connected (@%s)", tgManager.BotName())
		}
	} else {
		log.Println("Telegram disabled (TELEGRAM_BOT_TOKEN not set)")
	}

	// Setup HTTP server
	r := gin.Default()
	http.SetupRoutes(r, http.RouterDeps{
		Chat:        chatService,
		Auth:        authUsecase,
		Dashboard:   dashboardUsecase,
		Usage:       usageRepo,
		Middleware:  authMiddleware,
		Telegram:    telegramHandler,
		TokenTTL:    cfg.Auth.TokenTTL,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &nethttp.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("FAILED to start HTTP Server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
}
