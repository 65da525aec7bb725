//go:build !ui_embed

package ui

import (
	"net/http"
)

// Handler serves the front-end build in dir, or redirects to the API docs
// when dir has no index.html.
func Handler(dir string) (http.Handler, error) {
	if fsys, ok := dirFS(dir); ok {
		return spaHandler(fsys), nil
	}
	return docsRedirect(), nil
}
