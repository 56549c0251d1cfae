package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trackersms/internal/ratelimit"
)

type Server struct {
	Mux *mux.Router
}

func New() *Server {
	m := mux.NewRouter()
	m.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, ErrRouteNotFound)
	})
	return &Server{Mux: m}
}

type Options struct {
	APIKey      string
	CORSOrigins []string
	Limiter     *ratelimit.Keyed
	Requests    *prometheus.CounterVec
	Development bool
}

// Handler wraps the router with the middleware chain, outermost first:
// request id, recovery, logging, metrics, CORS, rate limit, API key.
func (s *Server) Handler(o Options) http.Handler {
	chain := []func(http.Handler) http.Handler{
		RequestID,
		Recovery(o.Development),
		Logging,
	}
	if o.Requests != nil {
		chain = append(chain, Metrics(s.Mux, o.Requests))
	}
	chain = append(chain, CORS(o.CORSOrigins), RateLimit(o.Limiter), APIKey(o.APIKey))

	var h http.Handler = s.Mux
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
