package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/digitalstore/internal/auth"
	"github.com/vasiliy-maslov/digitalstore/internal/catalog"
	"github.com/vasiliy-maslov/digitalstore/internal/config"
	"github.com/vasiliy-maslov/digitalstore/internal/db"
	storeHttp "github.com/vasiliy-maslov/digitalstore/internal/handler/http"
	"github.com/vasiliy-maslov/digitalstore/internal/order"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "digitalstore").Logger()

	log.Info().Msg("Digitalstore starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	tokenManager := auth.NewTokenManager(cfg.App.JWTSecret, cfg.App.JWTTTL)

	userRepository := user.NewRepository(dbConn.Pool)
	userSvc := user.NewService(userRepository)

	catalogRepository := catalog.NewRepository(dbConn.Pool)
	catalogSvc := catalog.NewService(catalogRepository)

	orderRepository := order.NewRepository(dbConn.Pool)
	orderSvc := order.NewService(orderRepository, userSvc, catalogRepository)

	authHandler := storeHttp.NewAuthHandler(userSvc, tokenManager)
	userHandler := storeHttp.NewUserHandler(userSvc, tokenManager)
	catalogHandler := storeHttp.NewCatalogHandler(catalogSvc)
	orderHandler := storeHttp.NewOrderHandler(orderSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(tokenManager.Authenticator)
			userHandler.RegisterRoutes(r)
			catalogHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}

	dbConn.Close()

	log.Info().Msg("Digitalstore stopped gracefully.")
}
