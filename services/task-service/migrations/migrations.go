// Package migrations embeds the task-service schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
