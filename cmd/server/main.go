// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annolab/annolab/internal/api/routes"
	"github.com/annolab/annolab/internal/config"
	"github.com/annolab/annolab/internal/engine"
	"github.com/annolab/annolab/internal/mailer"
	"github.com/annolab/annolab/internal/notifier"
	"github.com/annolab/annolab/internal/queue"
	"github.com/annolab/annolab/internal/storage/leveldb"
	"github.com/annolab/annolab/internal/storage/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize PostgreSQL client
	db, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize LevelDB template cache
	cache, err := leveldb.NewClient(cfg.LevelDB, 15*time.Minute)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cache.Close()

	// Initialize RabbitMQ client
	mq, err := queue.NewRabbitMQ(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mq.Close()

	// Create the lifecycle engine and the notification dispatcher
	eng := engine.New(db, mq)
	dispatcher := notifier.NewDispatcher(cfg, db, db, db, cache, mailer.New(cfg.SMTP), mq)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the dispatcher
	go func() {
		if err := dispatcher.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Notification dispatcher stopped with error: %v", err)
			cancel()
		}
	}()

	// Start the HTTP server
	router := routes.SetupRouter(cfg, eng, mq)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server stopped with error: %v", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received shutdown signal: %v", sig)
	case <-ctx.Done():
	}

	// Initiate shutdown
	shutdownTimeout := time.Duration(cfg.Worker.ShutdownTimeout) * time.Second

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if err := dispatcher.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Error during dispatcher shutdown: %v", err)
	}

	log.Println("Server shutdown complete")
}
