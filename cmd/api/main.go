package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"upasthiti/internal/attendance"
	"upasthiti/internal/auth"
	"upasthiti/internal/config"
	"upasthiti/internal/faceclient"
	"upasthiti/internal/geo"
	"upasthiti/internal/handler"
	"upasthiti/internal/httpmiddleware"
	"upasthiti/internal/metrics"
	"upasthiti/internal/queue"
	"upasthiti/internal/roster"
	"upasthiti/internal/schedule"
	"upasthiti/internal/seed"
	"upasthiti/internal/snapshot"
	"upasthiti/internal/store"
	"upasthiti/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()
	log.Printf("store backend: %s", cfg.StoreBackend)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	teachers := auth.NewDirectory(kv)
	students := roster.NewDirectory(kv, q)
	if cfg.SeedDemo {
		if _, err := seed.Teachers(ctx, teachers); err != nil {
			log.Printf("warning: seed demo teachers: %v", err)
		}
	}

	def := geo.Coordinates{Lat: cfg.GeoDefaultLat, Lng: cfg.GeoDefaultLng}
	locator := geo.WithFallback(geo.NewCached(geo.NewHTTPLocator(cfg.LocationURL, cfg.LocationSkip), 5*time.Minute), def, cfg.GeoTimeout)
	locator.OnFallback = func(string, error) { metrics.GeoFallbacks.Inc() }

	opts := attendance.Options{
		QRSeconds: cfg.QRSeconds(),
		Locator:   locator,
		Students:  students,
		Events:    q,
	}
	if cfg.FaceSkip {
		log.Println("face verification disabled (FACE_SKIP=true)")
	} else {
		face := faceclient.New(cfg.FaceServiceURL, false)
		if err := face.Health(ctx); err != nil {
			log.Printf("warning: face service not available: %v", err)
		}
		opts.Faces = face
	}

	registry := attendance.NewRegistry(kv, opts)
	go registry.Run(ctx, time.Second)

	// With an in-memory queue nothing else can consume, so the worker runs here.
	if cfg.QueueBackend == "memory" {
		w := worker.New(kv, students, teachers)
		go func() {
			if err := w.Run(ctx, q); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
		sweep, err := worker.Schedule(cfg.AlertSweepSchedule, w)
		if err != nil {
			log.Printf("warning: %v", err)
		} else {
			sweep.Start()
			defer sweep.Stop()
		}
	}

	var snaps handler.SnapshotStore
	if cdn := snapshot.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder); cdn != nil {
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
		snaps = cdn
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	h := handler.New(handler.Deps{
		KV:         kv,
		Sessions:   registry,
		Teachers:   teachers,
		Students:   students,
		Schedule:   schedule.NewStore(kv),
		Snapshots:  snaps,
		SigningKey: cfg.JWTSigningKey,
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		SeedDemo:   cfg.SeedDemo,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r, httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}
	cancel()

	log.Println("Server exited")
	return nil
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
