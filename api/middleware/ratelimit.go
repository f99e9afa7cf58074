package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/serranodev/quickcart-backend/api/responses"
	"github.com/serranodev/quickcart-backend/pkg/config"
	pkgerrors "github.com/serranodev/quickcart-backend/pkg/errors"
	"github.com/serranodev/quickcart-backend/pkg/logger"
)

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// AuthRateLimit throttles credential endpoints with a fixed per-IP window.
// A nil store or a zero limit disables the middleware.
func AuthRateLimit(cfg config.RateLimitConfig, store rateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.AuthPerIP <= 0 || cfg.AuthWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := store.RateLimitKey("auth:" + clientIP(r))
			count, err := store.IncrWithTTL(ctx, key, cfg.AuthWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(cfg.AuthPerIP) {
				if logg != nil {
					fields := map[string]any{
						"ip":             clientIP(r),
						"attempts":       count,
						"limit":          cfg.AuthPerIP,
						"window_seconds": int(cfg.AuthWindow.Seconds()),
					}
					logg.Warn(logg.WithFields(ctx, fields), "auth rate limit exceeded")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
