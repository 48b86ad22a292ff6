// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shopgraph/catalog-backend/internal/cache"
	"github.com/shopgraph/catalog-backend/internal/config"
	"github.com/shopgraph/catalog-backend/internal/database"
	"github.com/shopgraph/catalog-backend/internal/graph"
	"github.com/shopgraph/catalog-backend/internal/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Relational store holds the category table
	db, err := database.Initialize(cfg.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Document store holds the product documents
	mongoClient, err := database.ConnectMongo(cfg.Mongo)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer database.CloseMongo(mongoClient)

	// Graph store holds the relationship edges
	graphDB, err := graph.Connect(cfg.Neo4j)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Neo4j")
	}
	defer graphDB.Close(context.Background())

	// Cache holds product snapshots and the view ranking
	productCache, err := cache.Connect(cfg.Redis, cfg.Cache)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer productCache.Close()

	r := router.Initialize(db, mongoClient, graphDB, productCache, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
