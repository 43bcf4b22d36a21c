package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/passguard/passguard-oss/pkg/domain"
)

//go:embed sql/*
var ddl embed.FS

// SQLiteStore persists model generations in a single sqlite file, which
// keeps deployment to one artifact and lets a separate training process
// hand models to a serving process through the filesystem.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and if needed creates) the store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path not specified")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open model store %s: %w", path, err)
	}

	b, err := ddl.ReadFile("sql/ddl.sql")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(b)); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the sqlite file location, used by the store watcher.
func (s *SQLiteStore) Path() string {
	return s.path
}

// SaveGeneration replaces the stored generation in one transaction.
func (s *SQLiteStore) SaveGeneration(ctx context.Context, scaler json.RawMessage, models []domain.TrainedModel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts`); err != nil {
		return fmt.Errorf("clear previous generation: %w", err)
	}

	const insert = `INSERT INTO artifacts (name, schema_version, payload, metrics, trained_at) VALUES (?, ?, ?, ?, ?)`

	if _, err := tx.ExecContext(ctx, insert, scalerArtifact, domain.FeatureSchemaVersion, []byte(scaler), nil, nil); err != nil {
		return fmt.Errorf("save scaler: %w", err)
	}

	for _, model := range models {
		metrics, err := json.Marshal(model.Metrics)
		if err != nil {
			return fmt.Errorf("encode %s metrics: %w", model.Kind, err)
		}
		_, err = tx.ExecContext(ctx, insert,
			string(model.Kind),
			model.SchemaVersion,
			[]byte(model.Params),
			string(metrics),
			model.Metrics.TrainedAt.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("save %s: %w", model.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit generation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadScaler(ctx context.Context) (json.RawMessage, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM artifacts WHERE name = ?`, scalerArtifact).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}
	return payload, nil
}

func (s *SQLiteStore) LoadModels(ctx context.Context) ([]domain.TrainedModel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, schema_version, payload, metrics FROM artifacts WHERE name != ? ORDER BY name`,
		scalerArtifact)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}
	defer rows.Close()

	var models []domain.TrainedModel
	for rows.Next() {
		var (
			name          string
			schemaVersion int
			payload       []byte
			metricsJSON   sql.NullString
		)
		if err := rows.Scan(&name, &schemaVersion, &payload, &metricsJSON); err != nil {
			return nil, fmt.Errorf("scan model row: %w", err)
		}
		model := domain.TrainedModel{
			Kind:          domain.ModelKind(name),
			SchemaVersion: schemaVersion,
			Params:        payload,
		}
		if metricsJSON.Valid {
			if err := json.Unmarshal([]byte(metricsJSON.String), &model.Metrics); err != nil {
				return nil, fmt.Errorf("decode %s metrics: %w", name, err)
			}
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	return models, nil
}

func (s *SQLiteStore) Metrics(ctx context.Context) (map[domain.ModelKind]domain.ModelMetrics, error) {
	models, err := s.LoadModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ModelKind]domain.ModelMetrics, len(models))
	for _, model := range models {
		out[model.Kind] = model.Metrics
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
