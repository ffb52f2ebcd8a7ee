package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quiz-tex/internal/logger"

	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"
)

// DefaultMigrationsDir is relative to the repository root.
const DefaultMigrationsDir = "database/migrations"

// Execer is the part of *sql.DB the migrator needs.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// RunMigrations applies every *.up.sql file in dir in name order. Oracle
// takes one statement per call, so each file is split at semicolons that
// end a line.
func RunMigrations(db Execer, dir string) error {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("could not read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	log := logger.Get()

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}
		for i, stmt := range SplitStatements(string(content)) {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("could not execute statement %d of migration %s: %w", i+1, name, err)
			}
		}
		log.Info("Executed migration", zap.String("file", name))
	}

	log.Info("Migrations completed", zap.Int("files", len(files)))
	return nil
}

// SplitStatements splits a script at semicolons that end a line, dropping
// blank statements and "--" comment lines.
func SplitStatements(script string) []string {
	var stmts []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			cur.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t"), ";"))
			flush()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	return stmts
}

func NewMigrateOracleDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}

	return db, nil
}
