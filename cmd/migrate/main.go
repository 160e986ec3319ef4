package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/cleanbook/internal/config"
	"github.com/joshua-takyi/cleanbook/internal/database"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Applying migrations", "path", cfg.MigrationsPath)
	if err := database.Migrate(cfg.MigrationsPath, cfg.MigrationURL()); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")
}
