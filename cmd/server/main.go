package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/config"
	"planpal-backend/internal/database"
	"planpal-backend/internal/handlers"
	"planpal-backend/internal/middleware"
	"planpal-backend/internal/repository"
	"planpal-backend/internal/router"
	"planpal-backend/internal/services"
	"planpal-backend/internal/websocket"
	"planpal-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting PlanPal Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if cfg.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	taskRepo := repository.NewTaskRepo(pool)
	reminderRepo := repository.NewReminderRepo(pool)

	// ──── Step 5: Initialize Planner ────
	planner, err := services.NewPlanner(cfg)
	if err != nil {
		log.Fatalf("✗ Planner initialization failed: %v", err)
	}
	if closer, ok := planner.(io.Closer); ok {
		defer closer.Close()
	}
	log.WithField("provider", cfg.LLMProvider).Println("✓ Planner initialized")

	// ──── Initialize Services ────
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	publisher := services.NewRedisPublisher(redisClients.Queue)

	// ──── Step 6: Start Reminder Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		reminderRepo,
		emailService,
		publisher,
		cfg.ReminderRecipient,
		cfg.ReminderWorkers,
	)

	resyncCtx, cancelResync := context.WithTimeout(context.Background(), 30*time.Second)
	if n, err := workerPool.Resync(resyncCtx); err != nil {
		log.Warnf("⚠ Reminder resync failed: %v", err)
	} else if n > 0 {
		log.Printf("✓ Re-queued %d unsent reminders", n)
	}
	cancelResync()

	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.ReminderWorkers)

	agentService := services.NewAgentService(
		planner,
		taskRepo,
		reminderRepo,
		workerPool,
		publisher,
		cfg.Location(),
		cfg.DemoMode,
	)
	if cfg.DemoMode {
		log.Println("✓ Demo mode: reminders fire 60 seconds after planning")
	}

	// ──── Initialize Handlers ────
	agentHandler := handlers.NewAgentHandler(agentService)
	taskHandler := handlers.NewTaskHandler(taskRepo, reminderRepo, cfg.Location())

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, services.UpdatesChannel, cfg.FrontendURL)
	wsHub.Start()
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	planLimiter := middleware.NewRateLimiter(10, time.Minute)
	health := func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return redisClients.Ping(ctx)
	}
	r := router.New(agentHandler, taskHandler, wsHub, planLimiter, health, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // plan-day waits on the LLM
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		wsHub.Stop()
		planLimiter.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ PlanPal Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
