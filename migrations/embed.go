// Package migrations holds the goose-format SQL migrations. Only the Up
// sections are applied by the server.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
