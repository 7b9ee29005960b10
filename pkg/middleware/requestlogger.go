package middleware

import (
	"log/slog"
	"net/http"

	"github.com/abhilashprasadsahoo/aepl-projectverse/pkg/logger"
)

// RequestLogger stores a logger enriched with the request's correlation id,
// principal and trace ids in the context, for logger.FromContext.
//
// Mount it after RequestLogging and Tracing. Routes behind Auth get a second
// pass through RequestLogger so the principal is picked up as well.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
