// Package migrations holds the Postgres schema for the scoring store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the ordered set registered by the files in this package.
// Each file registers a Go migration named after its file name; there are
// no SQL files to discover, so the set never touches the filesystem.
var Migrations = migrate.NewMigrations()
