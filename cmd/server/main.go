package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"correspondence/internal/app"
	dirModels "correspondence/internal/directory/models"
	dirService "correspondence/internal/directory/service"
	"correspondence/internal/platform/config"
	"correspondence/internal/platform/kafka"
	"correspondence/internal/platform/logger"
	id "correspondence/pkg/domain"
)

// main loads configuration, builds the application graph and runs it until
// SIGINT or SIGTERM. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, int32(cfg.Kafka.Partitions)); err != nil {
			log.Error("ensure kafka topic", "topic", cfg.Kafka.Topic, "error", err)
			os.Exit(1)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.InMemory() {
		seedDemo(ctx, a.Directory, log)
	}

	if err := a.Run(ctx); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// seedDemo gives the in-memory deployment an institution to route between.
func seedDemo(ctx context.Context, directory *dirService.Service, log *slog.Logger) {
	accounts, err := dirService.Seed(ctx, directory, "Gobierno Autonomo Municipal", "GAM", map[string]dirModels.Officer{
		"Secretaria General": {ID: id.NewOfficerID(), FullName: "Ana Quispe", JobTitle: "Secretaria"},
		"Asesoria Legal":     {ID: id.NewOfficerID(), FullName: "Luis Mamani", JobTitle: "Asesor legal"},
		"Finanzas":           {ID: id.NewOfficerID(), FullName: "Rosa Flores", JobTitle: "Jefa de finanzas"},
	})
	if err != nil {
		log.Warn("seed demo directory", "error", err)
		return
	}
	for dependency, acc := range accounts {
		log.Info("demo account", "dependency", dependency, "account_id", acc.ID.String())
	}
}
