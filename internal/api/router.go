package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yegorian/legendary-empire/internal/api/response"
	"github.com/yegorian/legendary-empire/internal/middleware"
	"github.com/yegorian/legendary-empire/internal/services/admin"
)

// RouterConfig holds configuration for the ops router
type RouterConfig struct {
	Logger *slog.Logger
	Admin  *admin.Service
}

// NewRouter creates the ops endpoint router: liveness plus the same
// aggregate stats the in-chat admin panel shows
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger, panicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", statsHandler(cfg.Admin)).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statsHandler(service *admin.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := service.Stats(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "failed to collect stats")
			return
		}
		response.JSON(w, http.StatusOK, stats)
	}
}

func panicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	response.Error(w, http.StatusInternalServerError, "internal error")
}
