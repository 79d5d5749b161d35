// Package migrations embeds the SQL migration files into the binary so
// clinicauth can bring a fresh database file up to date on start.
package migrations

import (
	"embed"

	"github.com/nerrad567/clinic-auth/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
