// Package migrations embeds the SQL schema migrations of the urls table.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
