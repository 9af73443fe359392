package repository

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cardfraud/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS models (
    key        TEXT PRIMARY KEY,
    algo       TEXT NOT NULL,
    schema     TEXT NOT NULL,
    blob       BLOB NOT NULL,
    created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS training_log (
    id         TEXT PRIMARY KEY,
    model_key  TEXT NOT NULL,
    algo       TEXT NOT NULL,
    train_rows INTEGER,
    test_rows  INTEGER,
    accuracy   REAL,
    precision  REAL,
    recall     REAL,
    f1         REAL,
    trained_at DATETIME NOT NULL
);`

// SQLiteRepository stores artifacts as blobs and keeps a log of training runs.
type SQLiteRepository struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database failed: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) Save(key string, a *models.Artifact) error {
	return r.save(key, a, nil)
}

// SaveWithRun upserts the model and appends run to training_log in one transaction.
func (r *SQLiteRepository) SaveWithRun(key string, a *models.Artifact, run RunRecord) error {
	return r.save(key, a, &run)
}

func (r *SQLiteRepository) save(key string, a *models.Artifact, run *RunRecord) error {
	if err := checkKey(key); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := a.Encode(&buf); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO models (key, algo, schema, blob, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET algo = excluded.algo, schema = excluded.schema,
			blob = excluded.blob, created_at = excluded.created_at`,
		key, a.Algo, a.Schema, buf.Bytes(), a.TrainedAt)
	if err != nil {
		return fmt.Errorf("save model %q: %w", key, err)
	}
	if run != nil {
		_, err = tx.Exec(`
			INSERT INTO training_log (id, model_key, algo, train_rows, test_rows, accuracy, precision, recall, f1, trained_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, key, run.Algo, run.TrainRows, run.TestRows,
			run.Accuracy, run.Precision, run.Recall, run.F1, run.TrainedAt)
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Load(key string) (*models.Artifact, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var blob []byte
	err := r.db.QueryRow(`SELECT blob FROM models WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", key, err)
	}
	return models.DecodeArtifact(bytes.NewReader(blob))
}

// Runs returns the most recent training runs, newest first.
func (r *SQLiteRepository) Runs(limit int) ([]RunRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, model_key, algo, train_rows, test_rows, accuracy, precision, recall, f1, trained_at
		FROM training_log ORDER BY trained_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var run RunRecord
		var at time.Time
		if err := rows.Scan(&run.ID, &run.Key, &run.Algo, &run.TrainRows, &run.TestRows,
			&run.Accuracy, &run.Precision, &run.Recall, &run.F1, &at); err != nil {
			return nil, err
		}
		run.TrainedAt = at
		out = append(out, run)
	}
	return out, rows.Err()
}
