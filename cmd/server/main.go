// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/coder/quartz"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tilewire/mahjong/internal/audit"
	"github.com/tilewire/mahjong/internal/auth"
	"github.com/tilewire/mahjong/internal/cache"
	"github.com/tilewire/mahjong/internal/config"
	"github.com/tilewire/mahjong/internal/database"
	"github.com/tilewire/mahjong/internal/handlers"
	"github.com/tilewire/mahjong/internal/middleware"
	"github.com/tilewire/mahjong/internal/rules"
	"github.com/tilewire/mahjong/internal/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SessionPrivateKeyPath != "" {
		if err := auth.InitFromPath(cfg.SessionPrivateKeyPath, cfg.SessionPublicKeyPath); err != nil {
			log.Fatalf("session keys: %v", err)
		}
	} else {
		auth.Init()
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Audit entries always live on the in-process chain; Postgres and Redis
	// sinks are wired in when configured.
	var sinks []audit.Sink
	if cfg.PostgresDSN != "" {
		pool, err := database.Connect(context.Background(), cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		sink, err := database.NewAuditSink(context.Background(), pool)
		if err != nil {
			log.Fatalf("audit schema: %v", err)
		}
		sinks = append(sinks, sink)
		logger.Info("postgres audit sink enabled")
	}
	if cfg.RedisAddr != "" {
		sink, err := cache.ConnectStream(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		sinks = append(sinks, sink)
		logger.Info("redis audit stream enabled")
	}
	if len(sinks) == 0 {
		sinks = append(sinks, audit.NewMemorySink())
	}

	manager := table.NewManager(logger, cfg, quartz.NewReal(), rules.Permissive{}, sinks...)
	srv := handlers.NewServer(logger, manager)

	mux := http.NewServeMux()
	mux.Handle("/table/ws", middleware.LogMiddleware(logger)(srv.TableWSHandler()))
	mux.HandleFunc("/health", srv.HealthHandler())

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
