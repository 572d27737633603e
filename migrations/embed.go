// Package migrations embeds the SQL migration files so server bootstrap
// can apply them through the goose programmatic API without depending on
// a migrations directory existing at runtime.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
