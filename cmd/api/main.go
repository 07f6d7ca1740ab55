package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Darkthan/AffichApp/internal/auth"
	"github.com/Darkthan/AffichApp/internal/config"
	"github.com/Darkthan/AffichApp/internal/handlers"
	middlewareCustom "github.com/Darkthan/AffichApp/internal/middleware"
	"github.com/Darkthan/AffichApp/internal/repositories"
	"github.com/Darkthan/AffichApp/internal/routes"
	"github.com/Darkthan/AffichApp/internal/services"
	pkghttp "github.com/Darkthan/AffichApp/pkg/http"
	pkglogger "github.com/Darkthan/AffichApp/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	// Load configuration; a missing production JWT secret is fatal here
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput(cfg.Server.LogFile), nil))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("data_dir", cfg.Server.DataDir))

	// Initialize repositories
	userRepo := repositories.NewUserRepository(cfg.Server.DataDir, logger)
	fail2banRepo := repositories.NewFail2BanRepository(cfg.Server.DataDir, logger)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Initialize services
	auditLogger := pkglogger.NewAuditLogger(logger)
	fail2banService := services.NewFail2BanService(fail2banRepo, logger, auditLogger)
	userService := services.NewUserService(userRepo, logger)
	authService := services.NewAuthService(userRepo, fail2banService, tokenManager, logger, auditLogger)

	// Bootstrap first admin user if the store is empty
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.SeedAdminIfEmpty(ctx, cfg.Auth.AdminDefaultEmail, cfg.Auth.AdminDefaultPassword); err != nil {
		logger.Error("failed to seed admin user", slog.Any("error", err))
	}
	cancel()

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, userService, ipConfig)
	userHandler := handlers.NewUserHandler(userService)
	fail2banHandler := handlers.NewFail2BanHandler(fail2banService)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, userHandler, fail2banHandler, tokenManager, userRepo)

	startedAt := time.Now()
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"uptime": time.Since(startedAt).Seconds(),
		})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// logOutput returns stdout, or a rotating file writer tee'd with stdout
// when LOG_FILE is configured.
func logOutput(logFile string) io.Writer {
	if logFile == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	})
}
