// Package migrations holds the notification schema, applied at startup by db.Migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
