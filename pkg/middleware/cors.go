package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Methods and headers applied when a CORSConfig leaves them empty.
var (
	corsDefaultMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsDefaultHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID", "X-User-ID"}
)

// CORSConfig holds configuration for the CORS middleware. The review widget
// is embedded on customer sites, so the public API needs origin handling
// that is permissive in development and explicit in production.
type CORSConfig struct {
	// AllowedOrigins lists the allowed origins, e.g. "https://app.raterly.io".
	// A "*" entry allows every origin, which is only safe in development.
	AllowedOrigins []string

	// AllowedMethods lists the allowed HTTP methods. Empty means the
	// standard set of GET, POST, PUT, PATCH, DELETE, OPTIONS.
	AllowedMethods []string

	// AllowedHeaders lists the allowed request headers. Empty means Accept,
	// Authorization, Content-Type, X-Correlation-ID, X-User-ID.
	AllowedHeaders []string

	// ExposedHeaders lists the headers the browser may read.
	ExposedHeaders []string

	// MaxAge is how long, in seconds, preflight results may be cached.
	// Zero means 3600.
	MaxAge int

	// AllowCredentials reports whether cookies and auth headers are allowed.
	AllowCredentials bool

	// Environment gates wildcard behavior. Wildcard origins are only
	// honored when Environment is "development" or AllowedOrigins
	// explicitly contains "*".
	Environment string
}

// DefaultCORSConfig returns a development configuration that accepts any
// origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: corsDefaultMethods,
		AllowedHeaders: corsDefaultHeaders,
		ExposedHeaders: []string{"X-Correlation-ID", "X-User-ID"},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// CORS returns middleware that writes Cross-Origin Resource Sharing headers
// per the given configuration and short-circuits preflight requests.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = corsDefaultMethods
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = corsDefaultHeaders
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	wildcard := cfg.Environment == "development"
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}

	// These header values never change per-request, so join them once.
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if origin != "" {
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", exposed)
			}
			w.Header().Set("Access-Control-Max-Age", maxAge)

			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
