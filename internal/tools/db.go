package tools

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migration/*
var migrationFiles embed.FS

// ConnectSqlite opens the readings database and applies the embedded migrations.
// In-memory databases are pinned to a single connection so every query sees
// the same schema.
func ConnectSqlite(filePath string) (*sql.DB, error) {
	db, err := connectWithBackoff("sqlite3", filePath, 3, 3*time.Second)
	if err != nil {
		return nil, err
	}
	if strings.Contains(filePath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	err = RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations executes every file under migration/ in name order.
// Each migration must be safe to re-run.
func RunMigrations(db *sql.DB) error {
	dirEntries, err := fs.ReadDir(migrationFiles, "migration")
	if err != nil {
		return err
	}
	for _, entry := range dirEntries {
		fileName := path.Join("migration", entry.Name())
		fileData, err := fs.ReadFile(migrationFiles, fileName)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(fileData)); err != nil {
			return fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func connectWithBackoff(driver string, connStr string, maxRetries int, step time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open(driver, connStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				return db, nil
			}
			db.Close()
		}
		logrus.WithFields(logrus.Fields{
			"driver":  driver,
			"attempt": i + 1,
		}).WithError(err).Warn("Failed attempt to connect to database")
		if i < maxRetries-1 {
			time.Sleep(time.Duration(i+1) * step)
		}
	}
	return nil, err
}
