package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecopoints/config"
	"ecopoints/database"
	"ecopoints/handlers"
	"ecopoints/metrics"
	"ecopoints/middleware"
	"ecopoints/rabbitmq"
	"ecopoints/service"
	"ecopoints/session"
	"ecopoints/verifier"
	ws "ecopoints/websocket"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Infof(".env file not found, using system environment variables")
	}

	cfg := config.Load()

	log.SetHandler(text.New(os.Stderr))
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	metrics.Register()

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	opts := []service.Option{
		service.WithNotifier(hub),
		service.WithTasksLimit(cfg.TasksLimit),
	}

	classifier := verifier.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.VerifyTimeout)
	if classifier.Enabled() {
		opts = append(opts, service.WithClassifier(classifier))
		log.Infof("Image verification enabled with model %s", cfg.GeminiModel)
	} else {
		log.Warn("GEMINI_API_KEY not set, image analysis and verification are disabled")
	}

	publisher, err := rabbitmq.NewPublisher(cfg.GetAMQPURL(), cfg.AMQPExchange)
	if err != nil {
		log.Warnf("Failed to initialize RabbitMQ publisher: %v", err)
		log.Warn("Domain events will not be published. Continuing without RabbitMQ...")
	} else {
		opts = append(opts, service.WithPublisher(publisher))
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warnf("Failed to close RabbitMQ publisher: %v", err)
			}
		}()
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}
	sessions := session.NewManager(secret, cfg.SessionTTL)

	if err := middleware.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	svc := service.New(db, opts...)
	h := handlers.NewHandlers(svc, sessions, hub, db)
	router := handlers.NewRouter(h, middleware.NewRateLimiter(cfg.VerifyRatePerMinute, cfg.VerifyBurst))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
