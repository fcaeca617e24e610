package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tunedeck/tunedeck/internal/catalog"
	"github.com/tunedeck/tunedeck/internal/database"
	"github.com/tunedeck/tunedeck/internal/diagnostics"
	"github.com/tunedeck/tunedeck/internal/geoip"
	"github.com/tunedeck/tunedeck/internal/library"
	"github.com/tunedeck/tunedeck/internal/metrics"
	"github.com/tunedeck/tunedeck/internal/mpv"
	"github.com/tunedeck/tunedeck/internal/notify"
	"github.com/tunedeck/tunedeck/internal/playback"
	"github.com/tunedeck/tunedeck/internal/server"
	"github.com/tunedeck/tunedeck/internal/storage"
	"github.com/tunedeck/tunedeck/internal/webhook"
)

func main() {
	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	var exports library.ExportStorage
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:       getEnv("S3_ENDPOINT", "http://localhost:3900"),
			PublicEndpoint: os.Getenv("S3_PUBLIC_ENDPOINT"),
			Bucket:         bucket,
			AccessKey:      os.Getenv("S3_ACCESS_KEY"),
			SecretKey:      os.Getenv("S3_SECRET_KEY"),
			Region:         getEnv("S3_REGION", "eu-central-1"),
		})
		if err != nil {
			log.Fatalf("storage initialization failed: %v", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			log.Fatalf("storage bucket check failed: %v", err)
		}
		exports = store
		log.Println("storage bucket ready, playlist export enabled")
	} else {
		log.Println("S3_BUCKET not set, playlist export disabled")
	}

	geoResolver, err := geoip.New(os.Getenv("GEOIP_DB_PATH"))
	if err != nil {
		log.Fatalf("geoip initialization failed: %v", err)
	}
	defer geoResolver.Close()

	var webFS fs.FS
	if dir := os.Getenv("WEB_DIR"); dir != "" {
		webFS = os.DirFS(dir)
		log.Printf("serving web player from %s", dir)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var searcher catalog.Searcher
	if apiKey := os.Getenv("YT_API_KEY"); apiKey != "" {
		searcher = catalog.NewClient(os.Getenv("YT_API_BASE_URL"), apiKey)
	} else {
		log.Println("YT_API_KEY not set, search disabled")
	}

	var (
		player   *playback.Player
		factory  *mpv.Factory
		recorder *diagnostics.Recorder
		notifier *webhook.TrackNotifier
	)
	playerCtx, playerCancel := context.WithCancel(context.Background())
	defer playerCancel()

	if getEnv("PLAYER_ENABLED", "true") == "true" {
		socketDir := getEnv("MPV_SOCKET_DIR", filepath.Join(os.TempDir(), "tunedeck"))
		if err := os.MkdirAll(socketDir, 0o700); err != nil {
			log.Fatalf("mpv socket directory: %v", err)
		}

		binary := getEnv("MPV_BINARY", "mpv")
		factory = mpv.NewFactory(binary)
		factory.SocketWait = getEnvDuration("MPV_SOCKET_WAIT", 5*time.Second)

		player = playback.NewPlayer(factory, mpv.SocketHost{Dir: socketDir}, recoveryConfig(), clockwork.NewRealClock())

		recorder = diagnostics.NewRecorder(db.Pool)
		observers := []playback.Observer{metrics.NewPlayback(registry), recorder}
		if url := os.Getenv("NOW_PLAYING_WEBHOOK_URL"); url != "" {
			notifier = webhook.NewTrackNotifier(webhook.New(db.Pool, url, os.Getenv("NOW_PLAYING_WEBHOOK_SECRET")))
			observers = append(observers, notifier)
			log.Println("now-playing webhook enabled")
		}
		player.SetObserver(notify.NewMultiObserver(observers...))
		player.Start(playerCtx, playback.NewLoader(mpv.Probe(binary)))
		log.Printf("host player enabled (binary: %s)", binary)
	}

	cfg := server.Config{
		DB:                db.Pool,
		Pinger:            db,
		Storage:           exports,
		Catalog:           searcher,
		Geo:               geoResolver,
		Metrics:           registry,
		WebFS:             webFS,
		AllowedOrigins:    server.ParseOrigins(os.Getenv("ALLOWED_ORIGINS")),
		BaseURL:           getEnv("BASE_URL", "http://localhost:"+port),
		S3PublicEndpoint:  os.Getenv("S3_PUBLIC_ENDPOINT"),
		JWTSecret:         os.Getenv("AUTH_SECRET"),
		OwnerPasswordHash: os.Getenv("OWNER_PASSWORD_HASH"),
	}
	if player != nil {
		cfg.Player = player
	}
	srv := server.New(cfg)

	if cfg.JWTSecret != "" && cfg.OwnerPasswordHash != "" {
		log.Println("owner authentication enabled")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("tunedeck listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown failed: %v", err)
	}
	srv.Wait()

	if player != nil {
		playerCancel()
		if err := player.Close(shutdownCtx); err != nil {
			log.Printf("player shutdown failed: %v", err)
		}
		factory.Wait()
		recorder.Wait()
		if notifier != nil {
			notifier.Wait()
		}
	}
	log.Println("shutdown complete")
}

func recoveryConfig() playback.Config {
	d := playback.DefaultConfig()
	return playback.Config{
		MaxRecoveryAttempts: int(getEnvInt64("RECOVERY_MAX_ATTEMPTS", int64(d.MaxRecoveryAttempts))),
		RecreateThreshold:   int(getEnvInt64("RECOVERY_RECREATE_THRESHOLD", int64(d.RecreateThreshold))),
		BackoffStep:         getEnvDuration("RECOVERY_BACKOFF_STEP", d.BackoffStep),
		SettleDelay:         getEnvDuration("RECOVERY_SETTLE_DELAY", d.SettleDelay),
		RebuildDelay:        getEnvDuration("RECOVERY_REBUILD_DELAY", d.RebuildDelay),
		ShortPauseLimit:     int(getEnvInt64("RECOVERY_SHORT_PAUSE_LIMIT", int64(d.ShortPauseLimit))),
		PrematureWindow:     getEnvDuration("RECOVERY_PREMATURE_WINDOW", d.PrematureWindow),
		PrematurePosition:   d.PrematurePosition,
		PollInterval:        getEnvDuration("POSITION_POLL_INTERVAL", d.PollInterval),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
