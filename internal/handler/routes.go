package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/observability/metrics"
	"github.com/msomdec/library-api/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. Routes that need a
// caller expect Authenticate to run in front of the mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, catalog *service.CatalogService, loans *service.LoanService, db domain.Database, loginLimiter *service.AttemptLimiter) {
	authHandler := NewAuthHandler(auth)
	books := NewBookHandler(catalog, loans)

	mux.HandleFunc("GET /healthz", HandleHealthz(db))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /auth/register", authHandler.HandleRegister)
	mux.Handle("POST /auth/login", LimitLogin(loginLimiter, http.HandlerFunc(authHandler.HandleLogin)))

	mux.HandleFunc("GET /books", books.HandleList)
	mux.HandleFunc("GET /books/{id}", books.HandleGet)
	mux.Handle("POST /books", RequireAuth(http.HandlerFunc(books.HandleCreate)))
	mux.Handle("PUT /books/{id}", RequireAuth(http.HandlerFunc(books.HandleUpdate)))
	mux.Handle("DELETE /books/{id}", RequireAuth(http.HandlerFunc(books.HandleDelete)))
	mux.Handle("POST /books/{id}/borrow", RequireAuth(http.HandlerFunc(books.HandleBorrow)))
	mux.Handle("POST /books/{id}/return", RequireAuth(http.HandlerFunc(books.HandleReturn)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
}

// NewRouter builds the full handler chain around a fresh mux.
func NewRouter(auth *service.AuthService, catalog *service.CatalogService, loans *service.LoanService, db domain.Database, loginLimiter *service.AttemptLimiter) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, auth, catalog, loans, db, loginLimiter)
	// The metrics middleware must sit directly on the mux to see r.Pattern.
	return SecurityHeaders(Authenticate(auth, metrics.HTTPMetricsMiddleware(mux)))
}
