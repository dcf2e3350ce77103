// Package migrations embeds the SQL schema files into the binary.
//
// Importing this package (blank import from main) registers the
// embedded filesystem with the database layer, so deployments never
// depend on loose .sql files next to the binary.
package migrations

import (
	"embed"

	"github.com/damirbriga107-creator/agrisense-core/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
