// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/apexchain/apex-backend/internal/analyzer"
	"github.com/apexchain/apex-backend/internal/config"
	"github.com/apexchain/apex-backend/internal/database"
	"github.com/apexchain/apex-backend/internal/i18n"
	"github.com/apexchain/apex-backend/internal/metadata"
	"github.com/apexchain/apex-backend/internal/metrics"
	"github.com/apexchain/apex-backend/internal/router"
	"github.com/apexchain/apex-backend/internal/services"
	"github.com/apexchain/apex-backend/internal/wallet"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logrus.Fatal("Failed to initialize i18n: ", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		logrus.Fatal("Failed to register metrics: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authAnalyzer, err := analyzer.New(ctx, cfg.Vision)
	if err != nil {
		logrus.Fatal("Failed to initialize analyzer: ", err)
	}

	provider, closeProvider, err := wallet.ProviderFromConfig(ctx, cfg.Blockchain)
	if err != nil {
		logrus.Fatal("Failed to connect wallet provider: ", err)
	}
	defer closeProvider()
	if provider == nil {
		logrus.Warn("No wallet provider configured; certificates will be minted in simulated mode")
	}

	session := wallet.NewSession(provider, cfg.Blockchain.ContractAddress,
		wallet.WithReceiptPoll(cfg.Blockchain.ReceiptPoll))
	if provider != nil {
		if account, chainID, err := session.Connect(ctx); err != nil {
			logrus.WithError(err).Warn("Wallet not connected at startup")
		} else {
			logrus.WithFields(logrus.Fields{"account": account, "chain_id": chainID}).Info("Wallet connected")
		}
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.Fatal("Failed to initialize storage: ", err)
	}

	// Initialize router
	r := router.Initialize(db, cfg, router.Dependencies{
		Metrics:  m,
		Analyzer: authAnalyzer,
		Wallet:   session,
		Pinner:   metadata.New(cfg.IPFS),
		Storage:  storage,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}
	session.Disconnect()

	logrus.Info("Server exited")
}
