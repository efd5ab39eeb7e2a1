package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"timesheet/internal/attendance"
	"timesheet/internal/auth"
	"timesheet/internal/config"
	"timesheet/internal/controller"
	"timesheet/internal/directory"
	"timesheet/internal/handler"
	"timesheet/internal/httpmiddleware"
	"timesheet/internal/paging"
	"timesheet/internal/prefs"
	"timesheet/internal/queue"
	"timesheet/internal/store"
)

func main() {
	cfg := config.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App, log *logrus.Logger) error {
	ctx := context.Background()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	db, err := store.OpenDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("journal db not reachable, journal listing disabled")
	}
	defer db.Close()

	prefStore, err := prefs.Open(cfg.PrefsBackend, prefs.Options{
		Path:      cfg.PrefsPath,
		Namespace: cfg.PrefsNamespace,
		Redis:     redisClient.Client,
	}, log)
	if err != nil {
		return err
	}
	defer prefStore.Close()
	log.WithField("backend", cfg.PrefsBackend).Info("preference store ready")

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	writer := prefs.NewWriter(log, 64)
	defer writer.Close()
	preferences := prefs.NewPreferences(prefStore, log)

	client := directory.New(cfg.DirectoryURL, cfg.DirectoryTimeout)
	recorder := attendance.NewRecorder(client, preferences, writer, log)
	if cfg.QueueBackend != "memory" || db != nil {
		recorder.Journal = q
	}

	ctrl := controller.New(ctx, controller.Deps{
		Source:   paging.NewSource(client, log),
		Searcher: client,
		Recorder: recorder,
		Prefs:    preferences,
		Writer:   writer,
		Log:      log,
	}, controller.Config{
		LocationID:       cfg.LocationID,
		Debounce:         cfg.SearchDebounce,
		PrefetchDistance: cfg.PrefetchDistance,
	})
	defer ctrl.Close()

	var journal handler.Journal
	if db != nil {
		repo := attendance.NewRepository(db.Client)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.WithError(err).Warn("journal schema")
		}
		journal = repo
		if cfg.QueueBackend == "memory" {
			consumeCtx, stopConsumer := context.WithCancel(ctx)
			defer stopConsumer()
			go func() {
				if err := attendance.ConsumeJournal(consumeCtx, q, repo, log); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("journal consumer stopped")
				}
			}()
		}
	}
	issuer := auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
	h := handler.New(ctrl, issuer, journal, log)
	h.AddHealthCheck("redis", redisClient.Healthy)
	h.AddHealthCheck("db", db.Healthy)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(securityHeaders())

	limiter := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r, limiter.Middleware(log))

	// No write timeout: /v1/stream stays open for the life of the kiosk.
	baseCtx, stopStreams := context.WithCancel(ctx)
	srv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(stopStreams)

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}
	if err := writer.Flush(shutdownCtx); err != nil {
		log.WithError(err).Warn("pending preference writes not flushed")
	}
	log.Info("server exited")
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
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
