package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/adapters/primary/http/handlers"
	"github.com/camthink-ai/AIToolStack/internal/adapters/primary/http/middleware"
	"github.com/camthink-ai/AIToolStack/internal/adapters/primary/mqtt"
	"github.com/camthink-ai/AIToolStack/internal/adapters/secondary/fsstore"
	"github.com/camthink-ai/AIToolStack/internal/adapters/secondary/postgres"
	"github.com/camthink-ai/AIToolStack/internal/adapters/secondary/ws"
	"github.com/camthink-ai/AIToolStack/internal/config"
	"github.com/camthink-ai/AIToolStack/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Create database pool
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("parse db config: %v", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		log.Fatalf("create db pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("ping db: %v", err)
	}
	log.Info("database connection established")

	// Secondary adapters
	projectRepo := postgres.NewProjectRepository(pool)
	imageRepo := postgres.NewImageRepository(pool)
	classRepo := postgres.NewClassRepository(pool)
	annotationRepo := postgres.NewAnnotationRepository(pool)
	store := fsstore.New(cfg.Storage.DatasetsRoot)
	hub := ws.NewHub()
	defer hub.Close()

	// Core services
	snapshotSvc := services.NewSnapshotService(projectRepo, imageRepo, classRepo, annotationRepo)
	importSvc := services.NewImportService(projectRepo, imageRepo, classRepo, annotationRepo, store)
	exportSvc := services.NewExportService(store)

	// Ingestion transport (optional - based on config)
	var client *mqtt.Client
	var ingestSvc *services.IngestionService
	if cfg.MQTT.Enabled {
		// The client needs the handler and the handler acks through the
		// client; build the service against the client before connecting.
		ingestSvc = services.NewIngestionService(projectRepo, imageRepo, store, nil, hub, cfg.Storage.MaxImageSizeMB)
		client = mqtt.NewClient(cfg.MQTT, ingestSvc)
		ingestSvc.SetAckPublisher(client)
		if err := client.Start(); err != nil {
			log.Warnf("MQTT connect failed (auto-reconnect continues in background): %v", err)
		}
		defer client.Stop()
	} else {
		log.Info("MQTT ingestion disabled")
	}

	// Primary adapter (HTTP)
	var statuser handlers.IngestStatuser
	if client != nil {
		statuser = &ingestStatus{client: client, svc: ingestSvc}
	}
	h := handlers.New(importSvc, exportSvc, snapshotSvc, statuser, hub, cfg.Storage.DatasetsRoot)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)
	router.GET("/ws/projects/:id", h.ServeWS)

	// Health check with DB ping
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

// ingestStatus merges transport and gateway statistics for the status
// endpoint.
type ingestStatus struct {
	client *mqtt.Client
	svc    *services.IngestionService
}

func (s *ingestStatus) Status() map[string]interface{} {
	conn := s.client.Status()
	stats := s.svc.Stats()
	return map[string]interface{}{
		"connection": conn,
		"messages":   stats,
	}
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
