package docstore

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes a store over HTTP:
//
//	GET /docs/{name} fetches a document (404 when absent)
//	PUT /docs/{name} stores the request body as the document
//
// Mount it on a chi router:
//
//	r.Mount("/docs", docstore.Handler(store, logger))
func Handler(store Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "docstore")

	r := chi.NewRouter()

	r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		data, err := store.Fetch(req.Context(), name)
		if err != nil {
			logger.Error("fetch failed", "name", name, "error", err)
			http.Error(w, "fetch failed", http.StatusInternalServerError)
			return
		}
		if data == nil {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	r.Put("/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		data, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}
		if err := store.Put(req.Context(), name, data); err != nil {
			logger.Error("store failed", "name", name, "error", err)
			http.Error(w, "store failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
