package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/internal/app/guard"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/apperrors"
	"github.com/monsoonfirepottery-byte/monsoonfire-portal-sub007/pkg/logger"
)

type ctxKey int

const requestIDKey ctxKey = iota

// requestIDFrom reads the request id stamped by withRequestID.
func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// withRequestID stamps a request id on the context and response header
// before any other middleware runs (spec.md §4.7: "every response carries
// x-request-id").
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = "req_" + uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRecovery turns a panicking handler into an INTERNAL envelope instead
// of tearing down the process, matching the teacher's wrapWithAudit
// statusRecorder pattern for capturing the outcome.
func withRecovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.LogPanicRecovered(requestIDFrom(r.Context()), rec)
					writeErr(w, requestIDFrom(r.Context()), apperrors.Internal("internal error", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// withAccessLog logs one structured line per request (spec.md ambient
// logging requirement, teacher: pkg/logger + wrapWithAudit's
// statusRecorder).
func withAccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)
			log.LogAccess(requestIDFrom(r.Context()), r.Method, r.URL.Path, rec.status, time.Since(start).Milliseconds())
		})
	}
}

// withRateGuard enforces the per-route token bucket named by routeFamily
// (spec.md §4.6) ahead of actor resolution, since unauthenticated callers
// must not be able to bypass the budget.
func withRateGuard(g *guard.Guard, routeFamily string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svcErr := g.AllowRoute(routeFamily); svcErr != nil {
				writeErr(w, requestIDFrom(r.Context()), svcErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
