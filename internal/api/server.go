package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtlprog/rebalance/internal/plan"
)

// NewServer creates an HTTP server with all routes configured.
// gatherer backs GET /metrics; nil disables the endpoint.
func NewServer(port string, plans *plan.Service, gatherer prometheus.Gatherer, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(plans, gatherer, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers the API routes.
func NewMux(plans *plan.Service, gatherer prometheus.Gatherer, adminAPIKey string) *http.ServeMux {
	handler := NewHandler(plans)
	distributions := NewDistributionHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plans", handler.CreatePlan)
	mux.HandleFunc("GET /api/v1/plans/latest", handler.GetLatestPlan)
	mux.HandleFunc("GET /api/v1/plans/{id}", handler.GetPlanByID)
	mux.HandleFunc("GET /api/v1/plans", handler.ListPlans)

	generateHandler := http.HandlerFunc(handler.GeneratePlan)
	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/plans/generate", requireAuth(adminAPIKey, generateHandler))
	} else {
		mux.Handle("POST /api/v1/plans/generate", generateHandler)
	}

	mux.HandleFunc("POST /api/v1/distributions", distributions.GetDistributions)
	mux.HandleFunc("POST /api/v1/distributions/compare", distributions.CompareDistributions)

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
