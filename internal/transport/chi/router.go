package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/facetdex/internal/metrics"
)

// RouterConfig holds the middleware settings of the HTTP API.
type RouterConfig struct {
	APIKeys        Keys
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter wires the middleware chain and the routes of s.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chimw.RequestID)
	r.Use(WideEventMiddleware(logger))
	r.Use(CORSMiddleware(cfg.AllowedOrigins))
	r.Use(APIKeyMiddleware(cfg.APIKeys))
	r.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/indexes", func(r chi.Router) {
		r.Post("/", s.CreateIndex)
		r.Get("/", s.ListIndexes)
		r.Route("/{index}", func(r chi.Router) {
			r.Get("/", s.GetIndex)
			r.Delete("/", s.DeleteIndex)
			r.Get("/stats", s.IndexStats)
			r.Put("/settings/facet-ordering", s.SetFacetOrdering)
			r.Post("/search", s.Search)
			r.Post("/refine", s.Refine)
			r.Post("/records/batch", s.BatchRecords)
			r.Put("/records/{objectID}", s.PutRecord)
			r.Get("/records/{objectID}", s.GetRecord)
			r.Delete("/records/{objectID}", s.DeleteRecord)
		})
	})

	return r
}
