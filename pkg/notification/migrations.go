package notification

import "embed"

// Migrations holds the embedded schema migrations for the Postgres store,
// applied at startup via pg.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
