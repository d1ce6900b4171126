// Package migrations embeds the battle record schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
