package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/avadoshop/backend/internal/config"
	"github.com/avadoshop/backend/internal/es"
	"github.com/avadoshop/backend/internal/handlers"
	"github.com/avadoshop/backend/internal/handlers/cart"
	"github.com/avadoshop/backend/internal/handlers/checkout"
	"github.com/avadoshop/backend/internal/logging"
	"github.com/avadoshop/backend/internal/mykafka"
	"github.com/avadoshop/backend/internal/principal"
	httpserver "github.com/avadoshop/backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, events disabled")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = es.NewClient(configuration)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
			esClient = nil
		}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	resolver := &principal.Resolver{
		DB:         db,
		Secret:     []byte(configuration.JWT_SECRET),
		Production: configuration.Production(),
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		Resolver:        resolver,
		AuthHandler:     &handlers.AuthHandler{DB: db, Resolver: resolver, Producer: prod},
		ProductHandler:  &handlers.ProductHandler{DB: db, ES: esClient, Index: "products", Producer: prod},
		SearchHandler:   &handlers.SearchHandler{ES: esClient, Index: "products"},
		OrdersHandler:   &handlers.OrdersHandler{DB: db, Resolver: resolver},
		CMSHandler:      &handlers.CMSHandler{DB: db},
		CartHandler:     &cart.CartHandler{DB: db, Producer: prod},
		CheckoutHandler: &checkout.CheckoutHandler{DB: db, Resolver: resolver, Producer: prod},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.PORT)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
