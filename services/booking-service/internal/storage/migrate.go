package storage

import (
	"context"
	_ "embed"

	"github.com/md-rashed-zaman/reserva/libs/db"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema. Multiple statements go through the
// simple protocol because no arguments are passed.
func Migrate(ctx context.Context, pool *db.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
