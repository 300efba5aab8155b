package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaspardpetit/promptrelay/internal/api"
	"github.com/gaspardpetit/promptrelay/internal/config"
	"github.com/gaspardpetit/promptrelay/internal/inflight"
	"github.com/gaspardpetit/promptrelay/internal/metrics"
	"github.com/gaspardpetit/promptrelay/internal/relay"
	"github.com/gaspardpetit/promptrelay/internal/serverstate"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Relay    http.Handler
	Tracker  *serverstate.Tracker
	Inflight *inflight.Counter
	Registry *prometheus.Registry
	Version  string
}

// New constructs the HTTP handler for the server.
func New(cfg config.ServerConfig, d Deps) http.Handler {
	if d.Tracker == nil {
		d.Tracker = serverstate.NewTracker(nil)
	}
	if d.Inflight == nil {
		d.Inflight = &inflight.Counter{}
	}
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}

	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", api.RequestIDHeader},
			ExposedHeaders: []string{api.RequestIDHeader},
		}))
	}
	for _, m := range api.MiddlewareChain() {
		r.Use(m)
	}

	state := &api.StateHandler{Tracker: d.Tracker, Inflight: d.Inflight}
	r.Get("/healthz", state.GetHealthz)
	if cfg.MetricsOnMainPort() {
		r.Handle("/metrics", MetricsHandler(d.Registry))
	}

	relayRoutes := func(rr chi.Router) {
		rr.Use(api.ClientKeyMiddleware(cfg.ClientKey))
		rr.Use(d.Inflight.Middleware)
		rr.Use(inflightGauge)
		// every method reaches the relay so it answers 405 itself
		rr.Handle("/", d.Relay)
	}
	r.Route("/api", func(ar chi.Router) {
		ar.Route("/chat", relayRoutes)
		ar.Get("/state", state.GetState)
		ar.Get("/openapi.json", api.OpenAPIHandler(d.Version))
		ar.Get("/docs", api.SwaggerHandler())
	})
	r.Route("/.netlify/functions/chat", relayRoutes)
	return r
}

// NewRegistry returns a Prometheus registry with the relay and Go runtime
// collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)
	return reg
}

// MetricsHandler exposes reg in the Prometheus text format.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func inflightGauge(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncInflight()
		defer metrics.DecInflight()
		next.ServeHTTP(w, r)
	})
}

// NewRelay builds the relay handler from cfg around gen.
func NewRelay(cfg config.ServerConfig, gen relay.Generator) *relay.Handler {
	return relay.New(gen, relay.WithTimeout(cfg.RequestTimeout), relay.WithModel(cfg.GeminiModel))
}
