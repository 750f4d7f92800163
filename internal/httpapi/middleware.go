package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nsut-attendance/backend/internal/auth"
	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// requestContext tags the request with an id, bounds it with a timeout, and
// logs and counts it once it completes.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx, "request_id", id)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		dur := time.Since(start)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(dur.Seconds())
		logger.FromContext(ctx).Info("request",
			"method", r.Method, "route", route, "status", status, "duration", dur)
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the bearer token into an identity on the context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		id, err := s.tokens.Parse(token)
		if err != nil {
			logger.FromContext(r.Context()).Debug("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := auth.WithIdentity(r.Context(), id)
		ctx = logger.WithContext(ctx, "user_id", id.ID, "role", id.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok || id.Role != role {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAssigned rejects teachers acting on a subject outside their
// teaching assignments.
func (s *Server) requireAssigned(w http.ResponseWriter, r *http.Request, subjectID int64) bool {
	id, _ := auth.IdentityFrom(r.Context())
	ok, err := s.dir.IsTeacherAssigned(r.Context(), id.ID, subjectID)
	if err != nil {
		writeFailure(w, r, err)
		return false
	}
	if !ok {
		writeError(w, http.StatusForbidden, "subject is not assigned to you")
		return false
	}
	return true
}
