package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/auth"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/config"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/http/handlers"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/middleware"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/ws"
)

func NewRouter(h *handlers.Handler, logger *zap.Logger, cfg config.Config, wsServer *ws.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(logger))
	r.Use(middleware.RequestID())

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.JWTSecret))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/plan/{planId}/pick", h.PlanPick)
			r.Get("/quotation", h.QuotationGet)
			r.Get("/quotation/partner", h.QuotationPartnerGet)
			r.Get("/picking-sheet", h.PickingSheet)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleBooker))
				r.Post("/plan/{planId}/start-order", h.OrderStart)
				r.Post("/plan/{planId}/finish-order", h.OrderFinish)
			})
		})

		r.Get("/plans/{planId}", h.PlanDetail)
		r.Post("/scan/verify", h.ScanVerify)

		r.Get("/company/{companyId}/ratings", h.CompanyRatings)
		r.Post("/ratings/{ratingId}/reply", h.RatingReply)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))

			r.Get("/payment", h.PaymentList)
			r.Post("/payment", h.PaymentCreate)
			r.Delete("/payment/{paymentId}", h.PaymentDelete)
			r.Get("/payment/summary", h.PaymentSummary)

			r.Post("/orders/{orderId}/quotation/export", h.QuotationExport)
			r.Post("/ratings/{ratingId}/reply/{replyId}/approve", h.RatingReplyApprove)
			r.Post("/ratings/{ratingId}/reply/{replyId}/reject", h.RatingReplyReject)
		})
	})

	if wsServer != nil {
		r.Get("/ws/plans/{planId}", wsServer.HandlePlanFeed)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
