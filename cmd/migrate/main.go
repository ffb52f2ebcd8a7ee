package main

import (
	"flag"
	"log"

	"quiz-tex/internal/config"
	"quiz-tex/internal/database"
	"quiz-tex/internal/logger"

	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", database.DefaultMigrationsDir, "directory holding *.up.sql files")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer logger.Sync()

	if !cfg.DBConfigured() {
		l.Fatal("Database is not configured")
	}

	db, err := database.NewMigrateOracleDB(cfg.GetDSN())
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db, *dir); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err))
	}
}
