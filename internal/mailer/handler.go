package mailer

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/abhisek/learnloop/internal/logging"
	"github.com/abhisek/learnloop/internal/metrics"
)

// Handler serves the summary endpoint.
type Handler struct {
	sender  Sender
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler that delivers through sender.
func NewHandler(sender Sender, log *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		sender:  sender,
		log:     logging.OrNop(log).Named("mailhook"),
		metrics: m,
	}
}

// Routes mounts the endpoint and health checks.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post(SendPath, h.SendModuleSummary)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}
	return r
}

// SendModuleSummary decodes a Payload, renders the summary and sends it.
func (h *Handler) SendModuleSummary(w http.ResponseWriter, r *http.Request) {
	var p Payload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&p); err != nil {
		h.respond(w, http.StatusBadRequest, errors.Join(ErrInvalidPayload, err))
		return
	}
	if err := p.Validate(); err != nil {
		h.respond(w, http.StatusBadRequest, err)
		return
	}
	to, err := mail.ParseAddress(p.UserEmail)
	if err != nil {
		h.respond(w, http.StatusBadRequest, errors.Join(ErrInvalidPayload, err))
		return
	}
	if to.Name == "" {
		to.Name = p.UserName
	}

	summary := BuildSummary(p)
	html, text, err := summary.Render()
	if err != nil {
		h.respond(w, http.StatusInternalServerError, err)
		return
	}

	err = h.sender.Send(r.Context(), Message{
		To:      *to,
		Subject: summary.Subject(),
		Text:    text,
		HTML:    html,
	})
	if err != nil {
		h.log.Warn("send module summary failed",
			zap.String("user_id", p.UserID), zap.String("module_id", p.ModuleID), zap.Error(err))
		h.respond(w, http.StatusBadGateway, err)
		return
	}

	h.log.Info("module summary sent",
		zap.String("user_id", p.UserID), zap.String("module_id", p.ModuleID), zap.Int("skills", len(summary.Skills)))
	h.respond(w, http.StatusOK, nil)
}

func (h *Handler) respond(w http.ResponseWriter, code int, err error) {
	if h.metrics != nil {
		h.metrics.MailDispatches.WithLabelValues(metrics.Result(err)).Inc()
	}
	res := Result{Success: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(res)
}
