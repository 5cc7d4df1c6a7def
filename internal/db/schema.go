package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates the blog tables when they are missing. Safe to run on every start.
func ApplySchema(ctx context.Context, q Querier) error {
	if q == nil {
		return fmt.Errorf("apply schema: no database")
	}
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
