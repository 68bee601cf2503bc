// Package migrations embeds the entity store schema files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
