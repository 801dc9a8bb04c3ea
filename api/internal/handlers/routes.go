package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every endpoint under /api/v1 plus /health and /metrics
func NewRouter(h *Handlers, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	router.Use(CORS(h.config.Application.AllowedOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	// Dataset endpoints
	api.HandleFunc("/datasets", h.GetDatasets).Methods("GET")
	ds := api.PathPrefix("/datasets/{name}").Subrouter()
	ds.HandleFunc("/summary", h.GetSummary).Methods("GET")
	ds.HandleFunc("/distribution", h.GetDistribution).Methods("GET")
	ds.HandleFunc("/correlation", h.GetCorrelation).Methods("GET")
	ds.HandleFunc("/protocols", h.GetProtocols).Methods("GET")
	ds.HandleFunc("/timeofday", h.GetTimeOfDay).Methods("GET")
	ds.HandleFunc("/geo", h.GetGeo).Methods("GET")
	ds.HandleFunc("/anomalies", h.GetAnomalies).Methods("GET")
	ds.HandleFunc("/anomalies/samples", h.GetAnomalySamples).Methods("GET")
	ds.HandleFunc("/anomalies/rate", h.GetAnomalyRate).Methods("GET")
	ds.HandleFunc("/anomalies/compare", h.GetAnomalyComparison).Methods("GET")
	ds.HandleFunc("/detect", h.Detect).Methods("POST", "OPTIONS")

	// Detection history and alerts
	api.HandleFunc("/detections", h.GetDetections).Methods("GET")
	api.HandleFunc("/detections/{id}", h.GetDetection).Methods("GET")
	api.HandleFunc("/alerts", h.GetAlerts).Methods("GET")

	api.HandleFunc("/stream/anomalies", h.StreamAnomalies).Methods("GET")

	router.HandleFunc("/health", h.Health).Methods("GET", "OPTIONS")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return router
}

// CORS answers preflight requests and sets the allow headers. An empty list or
// "*" allows every origin.
func CORS(allowedOrigins []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowOrigin := "*"
			if origin != "" && !wildcard(allowedOrigins) {
				allowOrigin = ""
				if originAllowed(allowedOrigins, origin) {
					allowOrigin = origin
				}
			}

			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if allowOrigin != "" && allowOrigin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func wildcard(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" {
			return true
		}
	}
	return false
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || wildcard(allowed) {
		return true
	}
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}
