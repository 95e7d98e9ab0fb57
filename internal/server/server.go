// Package server wires config, store, auth, the HTTP API, and the realtime
// hub into a running fillserver instance, shared by cmd/fillserver and
// fillctl's serve subcommand.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoverbird/ingrid-core/internal/api"
	"github.com/hoverbird/ingrid-core/internal/auth"
	"github.com/hoverbird/ingrid-core/internal/config"
	"github.com/hoverbird/ingrid-core/internal/middleware"
	"github.com/hoverbird/ingrid-core/internal/realtime"
	"github.com/hoverbird/ingrid-core/internal/store"
	"github.com/hoverbird/ingrid-core/pkg/wordlist"
)

// Run builds the fillserver, starts listening, and blocks until SIGINT or
// SIGTERM, then shuts down gracefully.
func Run(cfg *config.Config) error {
	words, err := wordlist.LoadBrodaWordlist(cfg.WordlistPath)
	if err != nil {
		return fmt.Errorf("server: failed to load wordlist: %w", err)
	}
	log.Printf("server: loaded %d words from %s", words.Size(), cfg.WordlistPath)

	st, err := store.New(cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("server: failed to connect to store: %w", err)
	}
	defer st.Close()

	if err := st.InitSchema(); err != nil {
		return fmt.Errorf("server: failed to initialize schema: %w", err)
	}
	log.Println("server: store connected and schema initialized")

	authService := auth.NewAuthService(cfg.JWTSecret)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	handlers := api.NewHandlers(st, authService, words)
	hub := realtime.NewHub()
	go hub.Run()
	handlers.SetHub(hub)

	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.PerformanceMonitor())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, middleware.GetMetrics())
	})

	apiGroup := router.Group("/api")
	{
		runsGroup := apiGroup.Group("/runs")
		runsGroup.Use(authMiddleware.RequireAuth())
		{
			runsGroup.POST("", authMiddleware.RequireWrite(), handlers.SubmitRun)
			runsGroup.GET("", handlers.ListRuns)
			runsGroup.GET("/:id", handlers.GetRun)
			runsGroup.POST("/:id/cancel", authMiddleware.RequireWrite(), handlers.CancelRun)
		}

		// The websocket handshake carries no Authorization header, so this
		// route sits outside runsGroup's RequireAuth and validates its own
		// token query parameter instead.
		apiGroup.GET("/runs/:id/ws", handlers.ServeRunProgress)

		router.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not found",
				"message": "API endpoint does not exist",
				"path":    c.Request.URL.Path,
			})
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: failed to listen: %v", err)
		}
	}()
	log.Printf("server: listening on port %s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("server: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: forced shutdown: %w", err)
	}

	log.Println("server: exited")
	return nil
}
