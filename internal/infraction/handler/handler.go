package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mimir/internal/infraction"
	"mimir/internal/platform/middleware"
	dErrors "mimir/pkg/domain-errors"
	"mimir/pkg/platform/httputil"
)

// Service defines the operations the HTTP layer needs from the
// infraction engine.
type Service interface {
	SubmitInfraction(ctx context.Context, rec infraction.Record) (infraction.Record, bool, error)
	SubmitNonInfraction(ctx context.Context, rec infraction.Record) (infraction.Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (infraction.Record, error)
	ListHistory(ctx context.Context, f infraction.Filter) ([]infraction.Record, error)
	Count(ctx context.Context, f infraction.Filter) (int64, error)
}

// Handler wires infraction endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an infraction handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts infraction endpoints on the router. Middlewares in
// protect guard the /v1 subtree only; /health stays open for probes.
func (h *Handler) Register(r chi.Router, protect ...func(http.Handler) http.Handler) {
	r.Get("/health", h.HandleHealth)
	r.Route("/v1", func(r chi.Router) {
		for _, mw := range protect {
			r.Use(mw)
		}
		r.Post("/infractions", h.HandleSubmitInfraction)
		r.Get("/infractions", h.HandleHistory)
		r.Get("/infractions/{infractionId}", h.HandleGetInfraction)
		r.Get("/infraction_count", h.HandleCount)
		r.Post("/non-infractions", h.HandleSubmitNonInfraction)
		r.Get("/history", h.HandleHistory)
	})
}

// HandleHealth handles GET /health requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleSubmitInfraction handles POST /v1/infractions requests. A fresh
// record answers 201; a submission that resolved to an existing
// duplicate answers 200 with the original record's identifier.
func (h *Handler) HandleSubmitInfraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitInfractionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	stored, created, err := h.service.SubmitInfraction(ctx, req.Record())
	if err != nil {
		h.logger.ErrorContext(ctx, "infraction submission failed",
			"request_id", requestID,
			"shopper_id", req.ShopperID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "infraction submission handled",
		"request_id", requestID,
		"infraction_id", stored.ID,
		"created", created,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, SubmitInfractionResponse{InfractionID: stored.ID.String()})
}

// HandleGetInfraction handles GET /v1/infractions/{infractionId} requests.
func (h *Handler) HandleGetInfraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "infractionId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "infractionId must be a UUID"))
		return
	}

	rec, err := h.service.GetByID(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec.View())
}

// HandleCount handles GET /v1/infraction_count requests.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	n, err := h.service.Count(ctx, f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}

// HandleSubmitNonInfraction handles POST /v1/non-infractions requests.
func (h *Handler) HandleSubmitNonInfraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitNonInfractionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	stored, err := h.service.SubmitNonInfraction(ctx, req.Record())
	if err != nil {
		h.logger.ErrorContext(ctx, "annotation submission failed",
			"request_id", requestID,
			"record_type", req.RecordType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SubmitNonInfractionResponse{RecordID: stored.ID.String()})
}

// HandleHistory handles GET /v1/history requests. An empty page is a
// valid 200 with an empty list and a null next link.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if f.Limit == 0 {
		f.Limit = 25
	}

	records, err := h.service.ListHistory(ctx, f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HistoryResponse{
		Infractions: viewsOf(records),
		Pagination:  buildPagination(r, f.Limit, f.Offset, len(records)),
	})
}
