// Package resources bundles the files shipped with the panel: starter
// content fixtures and engine-specific SQL.
package resources

import (
	"embed"
	"io/fs"
)

//go:embed starter_content/*.concerto.json
var starterContent embed.FS

//go:embed sql/postgresql_customization.sql
var PostgresCustomization string

// StarterContent returns the bundled fixtures, rooted at their directory.
func StarterContent() fs.FS {
	sub, err := fs.Sub(starterContent, "starter_content")
	if err != nil {
		panic(err) // directory is embedded at build time
	}
	return sub
}
