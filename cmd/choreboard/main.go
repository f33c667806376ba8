package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahochma/choreboard/internal/backup"
	"github.com/ahochma/choreboard/internal/database"
	"github.com/ahochma/choreboard/internal/logging"
	"github.com/ahochma/choreboard/internal/seed"
	"github.com/ahochma/choreboard/internal/server"
	"github.com/ahochma/choreboard/internal/store"
)

func main() {
	logger := logging.Setup(os.Getenv("CHOREBOARD_LOG_LEVEL"), os.Getenv("CHOREBOARD_LOG_FORMAT"))

	port := os.Getenv("CHOREBOARD_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "choreboard.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seed.IfNeeded(store.NewPersonStore(db), store.NewChoreStore(db)); err != nil {
		logger.Error("seed database", "error", err)
		os.Exit(1)
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("CHOREBOARD_S3_ENDPOINT"),
			Bucket:    os.Getenv("CHOREBOARD_S3_BUCKET"),
			Region:    os.Getenv("CHOREBOARD_S3_REGION"),
			AccessKey: os.Getenv("CHOREBOARD_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("CHOREBOARD_S3_SECRET_KEY"),
		},
		Passphrase: os.Getenv("CHOREBOARD_BACKUP_PASSPHRASE"),
	}
	if raw := os.Getenv("CHOREBOARD_BACKUP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			backupCfg.Interval = d
		} else {
			logger.Warn("invalid backup interval, using default", "value", raw)
		}
	}

	srv := server.New(db, backupCfg, logger)

	backupMgr := srv.BackupManager()
	backupMgr.Start(context.Background())
	defer backupMgr.Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("choreboard running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
