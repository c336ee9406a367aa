package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql mysql/*.sql
var migrationFS embed.FS

// FS provides access to the embedded migration files, one directory per database driver.
var FS fs.FS = migrationFS
