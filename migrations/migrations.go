// Package migrations embeds the engine schema so the server binary carries
// the SQL it applies at boot.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
