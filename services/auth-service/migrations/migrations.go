// Package migrations embeds the auth-service schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
