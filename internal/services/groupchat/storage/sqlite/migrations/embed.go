// Package migrations embeds the SQL schema for the SQLite journal and read model.
package migrations

import "embed"

//go:embed journal/*.sql
var JournalFS embed.FS

//go:embed readmodel/*.sql
var ReadModelFS embed.FS
