package api

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/sendit-labs/sendit-server/internal/api/handlers"
	"github.com/sendit-labs/sendit-server/internal/api/middleware"
	"github.com/sendit-labs/sendit-server/internal/config"
)

// NewRouter wires the transfer and cleanup endpoints behind CORS and
// request logging.
func NewRouter(transfers *handlers.TransferHandler, cleanup *handlers.CleanupHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	mux.HandleFunc("POST /api/v1/transfers", transfers.Upload)
	mux.HandleFunc("GET /api/v1/transfers/{code}", transfers.Get)
	mux.HandleFunc("GET /api/v1/transfers/{code}/files/{index}", transfers.DownloadFile)
	mux.HandleFunc("GET /api/v1/transfers/{code}/archive", transfers.DownloadArchive)

	mux.HandleFunc("POST /api/v1/cleanup", cleanup.Trigger)

	c := cors.New(config.Envs.CorsConfig)
	handler := c.Handler(mux)
	handler = middleware.Logger(handler)
	return handler
}
