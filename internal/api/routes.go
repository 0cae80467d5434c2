package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"visa-onboarding-service/internal/auth"
)

func NewRouter(h *Handler, validator *auth.Validator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(validator))

		r.Route("/visa", func(r chi.Router) {
			r.Get("/next-step", h.NextStep)
			r.Post("/documents", h.SubmitDocument)
			r.Get("/documents/{documentId}/url", func(w http.ResponseWriter, r *http.Request) {
				h.DocumentURL(w, r, chi.URLParam(r, "documentId"))
			})
		})

		r.Route("/hr/visa", func(r chi.Router) {
			r.Get("/pending", h.PendingVisas)
			r.Get("/all", h.AllVisas)
			r.Route("/documents/{documentId}", func(r chi.Router) {
				r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
					h.ReviewDocument(w, r, chi.URLParam(r, "documentId"))
				})
				r.Post("/feedback", func(w http.ResponseWriter, r *http.Request) {
					h.AnnotateDocument(w, r, chi.URLParam(r, "documentId"))
				})
			})
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
