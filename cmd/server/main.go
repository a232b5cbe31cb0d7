package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/config"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/db"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/logger"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	if *migrateOnlyFlag {
		if _, err := db.ConnectAndMigrate(); err != nil {
			log.Fatalf("migrate-only failed: %v", err)
		}
		log.Println("migrations completed; exiting as requested")
		return
	}

	cfg := config.Load()
	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	dbConn, err := db.ConnectAndMigrate()
	if err != nil {
		zl.Fatal("erreur connexion DB", zap.Error(err))
	}
	zl.Info("starting server", zap.String("env", cfg.Env), zap.String("port", cfg.Port))

	handler := server.New(dbConn, zl, server.Options{Metrics: cfg.Metrics})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}

	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
	zl.Info("server gracefully stopped")
}
