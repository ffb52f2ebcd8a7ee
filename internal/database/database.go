package database

import (
	"fmt"

	"quiz-tex/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // Oracle driver, registered as "oracle"
	"go.uber.org/zap"
)

// NewSQLXOracleDB connects to Oracle through go-ora and verifies the
// connection with a ping.
func NewSQLXOracleDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Oracle database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	logger.Get().Info("Connected to Oracle database", zap.Int("max_open_conns", db.Stats().MaxOpenConnections))
	return db, nil
}
