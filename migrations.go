package earnapp

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// Migrations returns the SQL files rooted at the migrations directory.
func Migrations() (fs.FS, error) {
	return fs.Sub(MigrationsFS, "migrations")
}
