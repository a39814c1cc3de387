package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"docshare/internal/db"
	"docshare/internal/server"
)

func main() {
	addr := getenvDefault("DS_ADDR", ":8080")
	baseURL := getenvDefault("DS_BASE_URL", "http://localhost:8080")

	build := server.BuildInfo{
		Version: getenvDefault("DS_VERSION", "dev"),
		Commit:  getenvDefault("DS_COMMIT", "unknown"),
	}

	// Safety: refuse to start without the signing secret. Every capability
	// token and session depends on it.
	secret := os.Getenv("DS_SECRET_KEY")
	if secret == "" {
		log.Printf("service=backend msg=%q", "missing DS_SECRET_KEY")
		os.Exit(1)
	}

	// Database
	dbConn, err := server.OpenDB(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	log.Printf("service=backend msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=backend msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=backend msg=%q", "migrations_complete")

	// Blob storage
	blobs, err := server.NewMinioStore(context.Background())
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "minio_init_failed", err)
		os.Exit(1)
	}

	// Email
	emailSvc := server.NewEmailService(server.LoadEmailConfig())

	cfg := server.Config{
		Addr:    addr,
		BaseURL: baseURL,
		Build:   build,

		SecretKey:        []byte(secret),
		SessionTTL:       getenvDuration("DS_SESSION_TTL", 12*time.Hour),
		VerifyTokenTTL:   getenvDuration("DS_VERIFY_TOKEN_TTL", 24*time.Hour),
		DownloadTokenTTL: getenvDuration("DS_DOWNLOAD_TOKEN_TTL", time.Hour),
		MaxUploadBytes:   getenvInt64("DS_MAX_UPLOAD_BYTES", 0),

		Users:    &server.PostgresUserStore{DB: dbConn},
		Files:    &server.PostgresFileStore{DB: dbConn},
		Blobs:    blobs,
		Notifier: emailSvc,
	}

	// Optional stricter deployment: every download link redeems once.
	if os.Getenv("DS_SINGLE_USE_DOWNLOADS") == "true" {
		cfg.Replay = server.NewSingleUsePolicy(cfg.DownloadTokenTTL)
	}

	srv := server.New(cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s err=%v", "bad_duration", key, err)
		os.Exit(1)
	}
	return d
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("service=backend msg=%q key=%s err=%v", "bad_integer", key, err)
		os.Exit(1)
	}
	return n
}
