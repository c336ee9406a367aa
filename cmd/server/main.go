package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agrisite-api/internal/auth"
	"agrisite-api/internal/config"
	"agrisite-api/internal/data"
	"agrisite-api/internal/handler"
	"agrisite-api/internal/logger"
	"agrisite-api/internal/middleware"
	"agrisite-api/internal/service"
	"agrisite-api/internal/upload"
)

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, os.Stdout)

	// --- Pre-flight Checks ---
	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == config.DefaultSecret {
		log.Fatal(errors.New("jwt secret not set"), "Please set a secure AGRI_AUTH_JWT_SECRET environment variable.")
	}

	// --- Database Initialization and Migration ---
	log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(cfg.DB); err != nil {
		log.Fatal(err, "Failed to apply migrations")
	}
	log.Info("Migrations applied successfully.")

	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()
	log.Info("Database connection successful.")

	// --- Upload Storage ---
	store, err := upload.New(cfg.Upload, log.With(map[string]interface{}{"component": "upload"}))
	if err != nil {
		log.Fatal(err, "Failed to initialize upload storage")
	}

	// --- Dependency Injection ---
	userRepository := data.NewUserRepository(db)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	userService := service.NewUserService(userRepository, tokens, cfg.Auth.MaxAdmins, log)
	catalog := service.NewCatalog(db, store, log)

	// --- Authorization Setup ---
	log.Info("Initializing authorization...")
	enforcer, err := auth.NewEnforcer(auth.NewSQLAdapter(cfg.DB.Driver, cfg.DB.DSN))
	if err != nil {
		log.Fatal(err, "Failed to initialize enforcer")
	}
	if err := auth.SeedPolicies(enforcer, handler.DefaultPolicies(catalog.Infos()), log); err != nil {
		log.Fatal(err, "Failed to seed policies")
	}
	gate := auth.NewGate(userRepository)

	authnMiddleware := middleware.Authenticate(tokens)
	authzMiddleware := middleware.Authorizer(enforcer, gate, log)
	errorMiddleware := middleware.Error(log)

	// --- Router Setup ---
	apiHandlers := append([]handler.Mounter{handler.NewAuthHandler(userService, cfg.Upload.MaxSize)},
		handler.ResourceHandlers(catalog, cfg.Upload.MaxSize, log)...)
	router := handler.NewRouter(handler.NewHealthHandler(db, log), apiHandlers, authnMiddleware, authzMiddleware, errorMiddleware)

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
