package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/AnneNgarachu/fitness16/internal/usecase"
)

type Server struct {
	paymentUC  usecase.PaymentUseCase
	callbackUC usecase.CallbackUseCase
	queueUC    usecase.QueueUseCase
	rolloverUC usecase.RolloverUseCase
	auditUC    usecase.AuditUseCase
	auth       *AuthManager
	cronSecret string
	log        *zerolog.Logger

	server *http.Server
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	callbackUC usecase.CallbackUseCase,
	queueUC usecase.QueueUseCase,
	rolloverUC usecase.RolloverUseCase,
	auditUC usecase.AuditUseCase,
	auth *AuthManager,
	cronSecret string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		paymentUC:  paymentUC,
		callbackUC: callbackUC,
		queueUC:    queueUC,
		rolloverUC: rolloverUC,
		auditUC:    auditUC,
		auth:       auth,
		cronSecret: cronSecret,
		log:        &l,
	}
}

// Router assembles all routes. The callback route is deliberately public:
// the provider cannot authenticate, so the handler does its own source
// verification.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/plans", s.handlePlans)

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/callback", s.handleCallback)
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Post("/initiate", s.handleInitiate)
			r.Get("/status", s.handlePaymentStatus)
			r.Get("/query", s.handleGatewayQuery)
			r.Get("/history", s.handlePaymentHistory)
		})
	})

	r.With(s.requireStaff).Get("/api/admin/security-logs", s.handleSecurityLogs)

	r.Route("/api/memberships/queue-plan", func(r chi.Router) {
		r.With(s.requireSession).Get("/", s.handleQueuedPlan)
		r.With(s.requireStaff).Post("/", s.handleQueuePlan)
		r.With(s.requireStaff).Delete("/", s.handleCancelQueuedPlan)
	})

	r.Route("/api/cron/activate-plans", func(r chi.Router) {
		r.Use(s.requireCronSecret)
		r.Get("/", s.handleRollover)
		r.Post("/", s.handleRollover)
	})

	return r
}

func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}
	s.log.Info().Int("port", port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
