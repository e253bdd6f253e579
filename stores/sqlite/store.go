package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"recipe-server/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database and its collections table. Each collection is
// one row whose data column holds the whole JSON array.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps writes ordered and lets ":memory:" databases work.
	db.SetMaxOpenConns(1)

	tableStmt := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		data BLOB,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err = db.Exec(tableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create collections table: %w", err)
	}

	return &sqliteStore{db}, nil
}

func (s *sqliteStore) ReadAll(ctx context.Context, c core.Collection) ([]json.RawMessage, error) {
	log := logrus.WithField("collection", c)

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM collections WHERE name = ?", string(c)).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug("Collection row does not exist, returning empty collection")
		} else {
			log.WithError(err).Warn("Failed to read collection row, returning empty collection")
		}
		return []json.RawMessage{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil || records == nil {
		log.Warn("Collection row is not a JSON array, returning empty collection")
		return []json.RawMessage{}, nil
	}
	return records, nil
}

func (s *sqliteStore) WriteAll(ctx context.Context, c core.Collection, records []json.RawMessage) error {
	log := logrus.WithFields(logrus.Fields{"collection": c, "records": len(records)})

	if records == nil {
		records = []json.RawMessage{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		string(c), data)
	if err != nil {
		log.WithError(err).Error("Failed to write collection")
		return err
	}

	log.Debug("Collection written")
	return nil
}

// SetRaw stores data for a collection without validating it.
func (s *sqliteStore) SetRaw(ctx context.Context, c core.Collection, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collections (name, data) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data`, string(c), data)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
