package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/locale"
	"github.com/septivank/civic-kiosk/internal/service"
	"github.com/septivank/civic-kiosk/internal/validator"
)

const maxBodyBytes = 1 << 20

// ReadingService is the meter reading workflow behind the API
type ReadingService interface {
	Submit(ctx context.Context, caller *auth.Identity, in validator.SubmissionInput) (*db.MeterReadingDetail, error)
	Verify(ctx context.Context, caller *auth.Identity, readingID uuid.UUID) (*db.MeterReadingDetail, error)
	Reject(ctx context.Context, caller *auth.Identity, readingID uuid.UUID) (*db.MeterReadingDetail, error)
	List(ctx context.Context, caller *auth.Identity, filter service.ReadingStatusFilter) ([]db.MeterReadingDetail, error)
}

// ReportService is the admin dashboard behind the API
type ReportService interface {
	Activities(ctx context.Context, caller *auth.Identity, limit int) ([]service.Activity, error)
	Payments(ctx context.Context, caller *auth.Identity, filter service.PaymentFilter) (*service.PaymentReport, error)
	ServiceUsage(ctx context.Context, caller *auth.Identity) (*service.ServiceUsage, error)
}

// Handlers exposes HTTP handlers for the kiosk API.
type Handlers struct {
	readings ReadingService
	reports  ReportService
}

// NewHandlers constructs a Handlers instance.
func NewHandlers(readings ReadingService, reports ReportService) *Handlers {
	return &Handlers{readings: readings, reports: reports}
}

func caller(r *http.Request) *auth.Identity {
	identity, _ := auth.FromContext(r.Context())
	return identity
}

func (h *Handlers) submitReading(w http.ResponseWriter, r *http.Request) {
	var req submitReadingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, locale.FromContext(r.Context()).Text(locale.MsgInvalidBody))
		return
	}

	created, err := h.readings.Submit(r.Context(), caller(r), validator.SubmissionInput{
		ConnectionID: req.ConnectionID,
		Reading:      readingText(req.Reading),
		PhotoURL:     req.PhotoURL,
		ReadingDate:  req.ReadingDate,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, newReadingResponse(created))
}

func (h *Handlers) verifyReading(w http.ResponseWriter, r *http.Request) {
	h.transitionReading(w, r, h.readings.Verify)
}

func (h *Handlers) rejectReading(w http.ResponseWriter, r *http.Request) {
	h.transitionReading(w, r, h.readings.Reject)
}

type transitionFunc func(ctx context.Context, caller *auth.Identity, readingID uuid.UUID) (*db.MeterReadingDetail, error)

func (h *Handlers) transitionReading(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	readingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, locale.FromContext(r.Context()).Text(locale.MsgInvalidReading))
		return
	}

	updated, err := fn(r.Context(), caller(r), readingID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newReadingResponse(updated))
}

func (h *Handlers) listReadings(w http.ResponseWriter, r *http.Request) {
	filter, err := service.ParseReadingStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	readings, err := h.readings.List(r.Context(), caller(r), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]readingResponse, 0, len(readings))
	for i := range readings {
		resp = append(resp, newReadingResponse(&readings[i]))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	activities, err := h.reports.Activities(r.Context(), caller(r), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if activities == nil {
		activities = []service.Activity{}
	}
	respondJSON(w, http.StatusOK, activities)
}

func (h *Handlers) listPayments(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	status, err := service.ParsePaymentStatusFilter(query.Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	serviceType, err := service.ParseServiceTypeFilter(query.Get("serviceType"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.reports.Payments(r.Context(), caller(r), service.PaymentFilter{
		Status:      status,
		ServiceType: serviceType,
		Limit:       limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := paymentsResponse{
		Payments: make([]paymentResponse, 0, len(report.Payments)),
		Stats:    report.Stats,
	}
	for _, p := range report.Payments {
		resp.Payments = append(resp.Payments, newPaymentResponse(p))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) serviceUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.reports.ServiceUsage(r.Context(), caller(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// parseLimit reads the optional limit query parameter. Zero means the
// service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, locale.FromContext(r.Context()).Text(locale.MsgInvalidLimit))
		return 0, false
	}
	return limit, true
}
