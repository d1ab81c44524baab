package handler

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/service"
)

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalFromContext returns the caller attached by Authenticate.
// Requests without a valid bearer token yield domain.Anonymous.
func PrincipalFromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalContextKey).(domain.Principal)
	return p
}

// Authenticate resolves the bearer token on every request and attaches the
// resulting principal to the context. Missing or invalid tokens are not an
// error here; the request simply continues as anonymous.
func Authenticate(auth *service.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		p, err := auth.Authenticate(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous callers with 401 before next runs.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()).IsAnonymous() {
			w.Header().Set("WWW-Authenticate", `Bearer realm="library-api"`)
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimitLogin throttles login attempts per client address.
func LimitLogin(limiter *service.AttemptLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeMessage(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative response headers for a JSON API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientIP uses the connection's remote address. Forwarding headers are
// ignored since any client can set them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
