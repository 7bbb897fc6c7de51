package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/urban-simulation-core/pkg/models"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS simulation_runs (
		id                 TEXT PRIMARY KEY,
		created_at_unix_ns BIGINT NOT NULL,
		parameters         TEXT NOT NULL,
		results            TEXT NOT NULL,
		metadata           TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS simulation_runs_created_idx
		ON simulation_runs (created_at_unix_ns)`,
}

// SQLStore persists runs in PostgreSQL or SQLite through sqlx
type SQLStore struct {
	db *sqlx.DB
}

type runRow struct {
	ID         string         `db:"id"`
	CreatedAt  int64          `db:"created_at_unix_ns"`
	Parameters string         `db:"parameters"`
	Results    string         `db:"results"`
	Metadata   sql.NullString `db:"metadata"`
}

// OpenSQL connects with driver ("postgres" or "sqlite") and migrates the schema
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// a single connection keeps :memory: databases shared and avoids writer contention
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	store, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open connection and migrates the schema
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate simulation_runs: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Save(ctx context.Context, run models.SimulationRun) (string, error) {
	if run.ID != "" {
		return "", fmt.Errorf("%w: %s", ErrAlreadyPersisted, run.ID)
	}

	row, err := toRow(run.WithID(newRunID()))
	if err != nil {
		return "", err
	}

	const query = `
		INSERT INTO simulation_runs (id, created_at_unix_ns, parameters, results, metadata)
		VALUES (:id, :created_at_unix_ns, :parameters, :results, :metadata)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return row.ID, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.SimulationRun, error) {
	query := s.db.Rebind(`
		SELECT id, created_at_unix_ns, parameters, results, metadata
		FROM simulation_runs
		WHERE id = ?`)

	var row runRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SimulationRun{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.SimulationRun{}, fmt.Errorf("failed to query run %s: %w", id, err)
	}
	return fromRow(row)
}

func (s *SQLStore) List(ctx context.Context, filter Filter) ([]models.SimulationRun, error) {
	var (
		where strings.Builder
		args  []any
	)
	if !filter.Since.IsZero() {
		where.WriteString("WHERE created_at_unix_ns >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	args = append(args, filter.limit(), filter.offset())

	query := s.db.Rebind(fmt.Sprintf(`
		SELECT id, created_at_unix_ns, parameters, results, metadata
		FROM simulation_runs
		%s
		ORDER BY created_at_unix_ns DESC, id DESC
		LIMIT ? OFFSET ?`, where.String()))

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]models.SimulationRun, 0, len(rows))
	for _, row := range rows {
		run, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toRow(run models.SimulationRun) (runRow, error) {
	params, err := json.Marshal(run.Parameters)
	if err != nil {
		return runRow{}, fmt.Errorf("encode parameters: %w", err)
	}
	results, err := json.Marshal(run.Results)
	if err != nil {
		return runRow{}, fmt.Errorf("encode results: %w", err)
	}

	row := runRow{
		ID:         run.ID,
		CreatedAt:  run.CreatedAt.UnixNano(),
		Parameters: string(params),
		Results:    string(results),
	}
	if run.Metadata != nil {
		md, err := json.Marshal(run.Metadata)
		if err != nil {
			return runRow{}, fmt.Errorf("encode metadata: %w", err)
		}
		row.Metadata = sql.NullString{String: string(md), Valid: true}
	}
	return row, nil
}

func fromRow(row runRow) (models.SimulationRun, error) {
	run := models.SimulationRun{
		ID:        row.ID,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Parameters), &run.Parameters); err != nil {
		return models.SimulationRun{}, fmt.Errorf("decode parameters of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Results), &run.Results); err != nil {
		return models.SimulationRun{}, fmt.Errorf("decode results of %s: %w", row.ID, err)
	}
	if row.Metadata.Valid {
		if err := json.Unmarshal([]byte(row.Metadata.String), &run.Metadata); err != nil {
			return models.SimulationRun{}, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
		}
	}
	return run, nil
}
