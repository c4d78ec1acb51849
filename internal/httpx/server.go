package httpx

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ariefcatur/club-portal/internal/logging"
	"github.com/ariefcatur/club-portal/internal/metrics"
)

type RouterConfig struct {
	AllowedOrigins []string
	Metrics        bool
}

func NewRouter(log *slog.Logger, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// requestLogger puts a request-scoped logger into the context and writes one
// line per request.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With(
				"method", r.Method,
				"url", r.URL.Path,
				"remote_ip", r.RemoteAddr,
			)
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				l = l.With("request_id", rid)
				w.Header().Set(middleware.RequestIDHeader, rid)
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(logging.IntoContext(r.Context(), l)))

			dur := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := chi.RouteContext(r.Context()).RoutePattern()
			metrics.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(dur.Seconds())

			switch {
			case status >= 500:
				l.Error("request completed", "route", route, "status", status, "duration_ms", dur.Milliseconds())
			case status >= 400:
				l.Warn("request completed", "route", route, "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "route", route, "status", status, "duration_ms", dur.Milliseconds(), "bytes", ww.BytesWritten())
			}
		})
	}
}
