package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// SQLiteStore implements Store backed by a single SQLite database.
// The driver is selected at build time (see build_cgo.go and
// build_purego.go); everything here is plain database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the database at dbPath
// and applies pending migrations. Use ":memory:" for an ephemeral
// store.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time keeps SQLite locking out of the picture.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSchema inserts or updates a schema record. A missing ID is
// generated, a zero ContentHash is computed from Content. Saving the
// first schema in an empty store marks it active.
func (s *SQLiteStore) SaveSchema(ctx context.Context, rec *SchemaRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ContentHash == ([32]byte{}) {
		rec.ContentHash = sha256.Sum256(rec.Content)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schemas").Scan(&count); err != nil {
		return fmt.Errorf("failed to count schemas: %w", err)
	}
	if count == 0 {
		rec.Active = true
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schemas (id, name, version, description, content, content_hash, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET
			description = excluded.description,
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = CURRENT_TIMESTAMP`,
		rec.ID, rec.Name, rec.Version, rec.Description, rec.Content, rec.ContentHash[:], rec.Active)
	if err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}

	// The upsert may have kept an existing row's id; read it back so
	// the caller holds the canonical one.
	return s.db.QueryRowContext(ctx,
		"SELECT id FROM schemas WHERE name = ? AND version = ?",
		rec.Name, rec.Version).Scan(&rec.ID)
}

// GetSchema retrieves a schema record by id
func (s *SQLiteStore) GetSchema(ctx context.Context, id string) (*SchemaRecord, error) {
	return s.scanSchema(s.db.QueryRowContext(ctx, `
		SELECT id, name, version, description, content, content_hash, active, created_at, updated_at
		FROM schemas WHERE id = ?`, id))
}

// GetActiveSchema retrieves the currently active schema record
func (s *SQLiteStore) GetActiveSchema(ctx context.Context) (*SchemaRecord, error) {
	return s.scanSchema(s.db.QueryRowContext(ctx, `
		SELECT id, name, version, description, content, content_hash, active, created_at, updated_at
		FROM schemas WHERE active = 1 ORDER BY updated_at DESC LIMIT 1`))
}

func (s *SQLiteStore) scanSchema(row *sql.Row) (*SchemaRecord, error) {
	var rec SchemaRecord
	var hash []byte
	err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Description,
		&rec.Content, &hash, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}
	copy(rec.ContentHash[:], hash)
	return &rec, nil
}

// ListSchemas returns all stored schemas, newest first
func (s *SQLiteStore) ListSchemas(ctx context.Context) ([]*SchemaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, version, description, content, content_hash, active, created_at, updated_at
		FROM schemas ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	var out []*SchemaRecord
	for rows.Next() {
		var rec SchemaRecord
		var hash []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Description,
			&rec.Content, &hash, &rec.Active, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}
		copy(rec.ContentHash[:], hash)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ActivateSchema marks the given schema active and deactivates every
// other one.
func (s *SQLiteStore) ActivateSchema(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE schemas SET active = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to activate schema: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check activation: %w", err)
	}
	if affected == 0 {
		return types.ErrSnapshotNotFound
	}

	if _, err := tx.ExecContext(ctx, "UPDATE schemas SET active = 0 WHERE id != ?", id); err != nil {
		return fmt.Errorf("failed to deactivate schemas: %w", err)
	}
	return tx.Commit()
}

// DeleteSchema removes a schema and, via cascade, its examples
func (s *SQLiteStore) DeleteSchema(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM schemas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return types.ErrSnapshotNotFound
	}
	return nil
}

// SaveExample inserts or replaces a worked example
func (s *SQLiteStore) SaveExample(ctx context.Context, rec *ExampleRecord) error {
	concepts, fields, values, variants, err := marshalLists(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO examples (id, schema_id, question, query, concepts, fields, field_values, variants)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SchemaID, rec.Question, rec.Query, concepts, fields, values, variants)
	if err != nil {
		return fmt.Errorf("failed to save example: %w", err)
	}
	return nil
}

// GetExample retrieves one example by schema and example id
func (s *SQLiteStore) GetExample(ctx context.Context, schemaID, exampleID string) (*ExampleRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, schema_id, question, query, concepts, fields, field_values, variants, created_at
		FROM examples WHERE schema_id = ? AND id = ?`, schemaID, exampleID)

	rec, err := scanExample(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrExampleNotFound
	}
	return rec, err
}

// ListExamples returns all examples for a schema in insertion order
func (s *SQLiteStore) ListExamples(ctx context.Context, schemaID string) ([]*ExampleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_id, question, query, concepts, fields, field_values, variants, created_at
		FROM examples WHERE schema_id = ? ORDER BY created_at, id`, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}
	defer rows.Close()

	var out []*ExampleRecord
	for rows.Next() {
		rec, err := scanExample(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteExample removes one example
func (s *SQLiteStore) DeleteExample(ctx context.Context, schemaID, exampleID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM examples WHERE schema_id = ? AND id = ?", schemaID, exampleID)
	if err != nil {
		return fmt.Errorf("failed to delete example: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return types.ErrExampleNotFound
	}
	return nil
}

// LogQuery appends one retrieval to the query log
func (s *SQLiteStore) LogQuery(ctx context.Context, rec *QueryRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (schema_id, question, strategy, field_count, endpoint_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SchemaID, rec.Question, rec.Strategy, rec.FieldCount, rec.EndpointCount, rec.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to log query: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// RecentQueries returns the most recent log entries, newest first
func (s *SQLiteStore) RecentQueries(ctx context.Context, limit int) ([]*QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, schema_id, question, strategy, field_count, endpoint_count, duration_ms, created_at
		FROM query_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read query log: %w", err)
	}
	defer rows.Close()

	var out []*QueryRecord
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(&rec.ID, &rec.SchemaID, &rec.Question, &rec.Strategy,
			&rec.FieldCount, &rec.EndpointCount, &rec.DurationMs, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Status reports store-level statistics
func (s *SQLiteStore) Status(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{DatabaseAccessible: true}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schemas").Scan(&status.SchemaCount); err != nil {
		return nil, fmt.Errorf("failed to count schemas: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM examples").Scan(&status.ExampleCount); err != nil {
		return nil, fmt.Errorf("failed to count examples: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_log").Scan(&status.QueryCount); err != nil {
		return nil, fmt.Errorf("failed to count queries: %w", err)
	}

	err := s.db.QueryRowContext(ctx, "SELECT id FROM schemas WHERE active = 1 LIMIT 1").Scan(&status.ActiveSchemaID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read active schema: %w", err)
	}
	return status, nil
}

func marshalLists(rec *ExampleRecord) (concepts, fields, values, variants string, err error) {
	encode := func(list []string) (string, error) {
		if len(list) == 0 {
			return "[]", nil
		}
		data, err := json.Marshal(list)
		return string(data), err
	}
	if concepts, err = encode(rec.Concepts); err != nil {
		return
	}
	if fields, err = encode(rec.Fields); err != nil {
		return
	}
	if values, err = encode(rec.Values); err != nil {
		return
	}
	variants, err = encode(rec.Variants)
	return
}

func scanExample(scan func(...any) error) (*ExampleRecord, error) {
	var rec ExampleRecord
	var concepts, fields, values, variants string
	if err := scan(&rec.ID, &rec.SchemaID, &rec.Question, &rec.Query,
		&concepts, &fields, &values, &variants, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan example: %w", err)
	}
	for dst, src := range map[*[]string]string{
		&rec.Concepts: concepts,
		&rec.Fields:   fields,
		&rec.Values:   values,
		&rec.Variants: variants,
	} {
		if src == "" || src == "[]" {
			continue
		}
		if err := json.Unmarshal([]byte(src), dst); err != nil {
			return nil, fmt.Errorf("failed to decode example lists: %w", err)
		}
	}
	return &rec, nil
}
