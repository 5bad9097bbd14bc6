// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, embedded goose migrations, a health probe, and a couple
// of error classification helpers.
//
// Typical wiring:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, cfg, notification.Migrations, log); err != nil { ... }
package pg
