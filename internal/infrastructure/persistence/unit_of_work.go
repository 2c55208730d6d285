package persistence

import (
	"context"

	"gorm.io/gorm"
)

// txKey carries the active transaction handle through a context
type txKey struct{}

// InTransaction runs fn inside a single database transaction. Repository
// calls made with the context passed to fn all share that transaction, so
// either every write in fn commits or none do. The connection is opened
// with SkipDefaultTransaction, which makes this the only way multi-write
// operations get atomicity.
func (d *Database) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		// Already inside a transaction; join it instead of nesting.
		return fn(ctx)
	}
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// session returns the transaction bound to ctx when one is active,
// otherwise the repository's own handle
func session(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
