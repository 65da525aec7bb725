//go:build ui_embed

package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

// Build with: go build -tags ui_embed .
// Requires the front-end build output in ui/dist.

//go:embed all:dist
var distFS embed.FS

// Handler serves the front-end build in dir when present, otherwise the
// copy embedded at build time.
func Handler(dir string) (http.Handler, error) {
	if fsys, ok := dirFS(dir); ok {
		return spaHandler(fsys), nil
	}
	fsys, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil, err
	}
	return spaHandler(fsys), nil
}
