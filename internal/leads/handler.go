package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborgate/site-api/internal/observability/metrics"
	"github.com/harborgate/site-api/pkg/logging"
)

var contactTracer = otel.Tracer("siteapi.internal.leads.contact")

// Notifier sends a best-effort notification for a stored lead. The handler
// never lets a notification failure alter the response.
type Notifier interface {
	Enabled() bool
	NotifyLead(ctx context.Context, lead *Lead) error
}

// Client IP is taken from the first non-empty header in priority order:
// the trusted edge header first, then the standard forwarded-for list.
var clientIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For"}

// Handler handles HTTP requests for leads.
type Handler struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewHandler creates a new leads handler. notifier and m may be nil.
func NewHandler(repo Repository, notifier Notifier, m *metrics.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// SubmitContact handles POST /api/contact: decode, validate, enrich,
// persist, notify, respond. Repeated identical submissions create distinct
// rows; there is no deduplication key.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	ctx, span := contactTracer.Start(r.Context(), "contact.submit")
	defer span.End()

	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode contact request", "error", err)
		h.metrics.ObserveSubmission("invalid")
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if fieldErrors := ValidateCreate(&req); fieldErrors != nil {
		h.metrics.ObserveSubmission("invalid")
		writeValidationError(w, fieldErrors)
		return
	}

	data := h.enrich(r, &req)

	lead, err := h.repo.Create(ctx, data)
	if err != nil {
		span.RecordError(err)
		if IsUnavailable(err) {
			h.logger.Error("lead store unavailable", "error", err)
			h.metrics.ObserveSubmission("unavailable")
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
			return
		}
		h.logger.Error("failed to create lead", "error", err)
		h.metrics.ObserveSubmission("error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	span.SetAttributes(attribute.Int64("lead.id", lead.ID))

	h.logger.Info("contact form submission stored", "lead_id", lead.ID)
	h.metrics.ObserveSubmission("created")

	h.notify(ctx, lead)

	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Data: map[string]any{
			"id":      lead.ID,
			"message": "Contact form submitted successfully",
		},
	})
}

// enrich attaches request metadata and fills defaults on a validated
// submission. Empty optional strings collapse to NULL.
func (h *Handler) enrich(r *http.Request, req *CreateLeadRequest) CreateLeadData {
	source := SourceContactForm
	locale := DefaultLocale
	if req.Locale != nil && *req.Locale != "" {
		locale = *req.Locale
	}
	return CreateLeadData{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     coalesce(req.Phone),
		Company:   coalesce(req.Company),
		Subject:   coalesce(req.Subject),
		Message:   req.Message,
		Source:    &source,
		Locale:    &locale,
		IPAddress: clientIP(r),
		UserAgent: userAgent(r),
	}
}

func (h *Handler) notify(ctx context.Context, lead *Lead) {
	if h.notifier == nil || !h.notifier.Enabled() {
		return
	}
	if err := h.notifier.NotifyLead(ctx, lead); err != nil {
		h.logger.Error("failed to send lead notification", "error", err, "lead_id", lead.ID)
		return
	}
	h.logger.Info("lead notification sent", "lead_id", lead.ID)
}

// ListLeads handles GET /api/leads.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if order := r.URL.Query().Get("order"); order == "asc" {
		filter.OrderBy = "asc"
	}
	filter.Status = r.URL.Query().Get("status")

	leads, err := h.repo.FindAll(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, "failed to list leads", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"leads": leads,
		"count": len(leads),
	}})
}

// GetLead handles GET /api/leads/{id}.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	lead, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.respondStoreError(w, "failed to fetch lead", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: lead})
}

// UpdateLeadStatus handles PATCH /api/leads/{id}/status.
func (h *Handler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Status) == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	lead, err := h.repo.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.respondStoreError(w, "failed to update lead status", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: lead})
}

// DeleteLead handles DELETE /api/leads/{id}.
func (h *Handler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		h.respondStoreError(w, "failed to delete lead", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"id": id}})
}

// LeadStats handles GET /api/leads/stats.
func (h *Handler) LeadStats(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	count, err := h.repo.CountByStatus(r.Context(), status)
	if err != nil {
		h.respondStoreError(w, "failed to count leads", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{
		"status": status,
		"count":  count,
	}})
}

func (h *Handler) respondStoreError(w http.ResponseWriter, msg string, err error) {
	if IsUnavailable(err) {
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func leadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid lead id")
		return 0, false
	}
	return id, true
}

func clientIP(r *http.Request) *string {
	for _, header := range clientIPHeaders {
		value := strings.TrimSpace(r.Header.Get(header))
		if value == "" {
			continue
		}
		if header == "X-Forwarded-For" {
			value = strings.TrimSpace(strings.SplitN(value, ",", 2)[0])
		}
		if value != "" {
			return &value
		}
	}
	return nil
}

func userAgent(r *http.Request) *string {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return nil
	}
	return &ua
}

func coalesce(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
