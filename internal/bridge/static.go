package bridge

import (
	"embed"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/klauspost/compress/gzhttp"
)

//go:embed assets/client.js assets/client.css
var assetFS embed.FS

// staticAssets is the fixed set of bootstrap files under /static/.
var staticAssets = []string{"client.js", "client.css"}

// staticHandlers returns a gzip-aware handler per asset name.
func staticHandlers() (map[string]http.Handler, error) {
	handlers := make(map[string]http.Handler, len(staticAssets))
	for _, name := range staticAssets {
		data, err := assetFS.ReadFile(path.Join("assets", name))
		if err != nil {
			return nil, fmt.Errorf("failed to load static asset %s: %w", name, err)
		}
		handlers[name] = gzhttp.GzipHandler(serveAsset(mime.TypeByExtension(path.Ext(name)), data))
	}
	return handlers, nil
}

func serveAsset(contentType string, data []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}
