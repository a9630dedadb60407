package types

import "errors"

// Domain errors shared across the engine. Queries that find nothing
// return empty results, not errors; these cover structural problems
// and misconfiguration only.
var (
	ErrEmptySchema      = errors.New("schema document is empty")
	ErrUnknownStrategy  = errors.New("unknown retrieval strategy")
	ErrNoSchemaLoaded   = errors.New("no schema loaded")
	ErrDuplicateExample = errors.New("example id already exists")
	ErrExampleNotFound  = errors.New("example not found")
	ErrSnapshotNotFound = errors.New("schema snapshot not found")
)
