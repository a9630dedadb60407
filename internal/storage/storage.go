package storage

import (
	"context"
	"time"
)

// Store persists schema documents, worked examples, and a query log
// across server restarts. The retrieval engine itself is in-memory;
// the store exists so a restarted server can reload the last active
// schema and its accumulated examples without re-registration.
type Store interface {
	// Schema operations
	SaveSchema(ctx context.Context, rec *SchemaRecord) error
	GetSchema(ctx context.Context, id string) (*SchemaRecord, error)
	GetActiveSchema(ctx context.Context) (*SchemaRecord, error)
	ListSchemas(ctx context.Context) ([]*SchemaRecord, error)
	ActivateSchema(ctx context.Context, id string) error
	DeleteSchema(ctx context.Context, id string) error

	// Example operations
	SaveExample(ctx context.Context, rec *ExampleRecord) error
	GetExample(ctx context.Context, schemaID, exampleID string) (*ExampleRecord, error)
	ListExamples(ctx context.Context, schemaID string) ([]*ExampleRecord, error)
	DeleteExample(ctx context.Context, schemaID, exampleID string) error

	// Query log operations
	LogQuery(ctx context.Context, rec *QueryRecord) error
	RecentQueries(ctx context.Context, limit int) ([]*QueryRecord, error)

	// Status operations
	Status(ctx context.Context) (*StoreStatus, error)

	Close() error
}

// SchemaRecord is one stored schema document version. Content holds
// the raw YAML so a reload round-trips through the same parser and
// validation as a fresh registration.
type SchemaRecord struct {
	ID          string
	Name        string
	Version     string
	Description string
	Content     []byte
	ContentHash [32]byte
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExampleRecord is a persisted worked example attached to a schema
type ExampleRecord struct {
	ID        string
	SchemaID  string
	Question  string
	Query     string
	Concepts  []string
	Fields    []string
	Values    []string
	Variants  []string
	CreatedAt time.Time
}

// QueryRecord is one logged retrieval, kept for offline tuning of
// fusion weights
type QueryRecord struct {
	ID            int64
	SchemaID      string
	Question      string
	Strategy      string
	FieldCount    int
	EndpointCount int
	DurationMs    int64
	CreatedAt     time.Time
}

// StoreStatus contains store-level statistics
type StoreStatus struct {
	SchemaCount        int
	ExampleCount       int
	QueryCount         int
	ActiveSchemaID     string
	DatabaseAccessible bool
}
