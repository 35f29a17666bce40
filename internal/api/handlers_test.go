package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/service"
	"github.com/septivank/civic-kiosk/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	citizenID = uuid.MustParse("6f1c2a9e-7d3b-4f0a-9a51-0d8a3e5c1b11")
	adminID   = uuid.MustParse("a2d4e6f8-1b3c-4d5e-8f70-9a1b2c3d4e5f")
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	switch token {
	case "citizen-token":
		return &auth.Identity{UserID: citizenID, Role: db.RoleCitizen}, nil
	case "admin-token":
		return &auth.Identity{UserID: adminID, Role: db.RoleAdmin}, nil
	}
	return nil, auth.ErrUnauthorized
}

type stubReadings struct {
	submitted  validator.SubmissionInput
	caller     *auth.Identity
	readingID  uuid.UUID
	filter     service.ReadingStatusFilter
	result     *db.MeterReadingDetail
	list       []db.MeterReadingDetail
	err        error
	transition db.ReadingStatus
}

func (s *stubReadings) Submit(_ context.Context, caller *auth.Identity, in validator.SubmissionInput) (*db.MeterReadingDetail, error) {
	s.caller, s.submitted = caller, in
	return s.result, s.err
}

func (s *stubReadings) Verify(_ context.Context, caller *auth.Identity, id uuid.UUID) (*db.MeterReadingDetail, error) {
	s.caller, s.readingID, s.transition = caller, id, db.ReadingVerified
	return s.result, s.err
}

func (s *stubReadings) Reject(_ context.Context, caller *auth.Identity, id uuid.UUID) (*db.MeterReadingDetail, error) {
	s.caller, s.readingID, s.transition = caller, id, db.ReadingRejected
	return s.result, s.err
}

func (s *stubReadings) List(_ context.Context, caller *auth.Identity, filter service.ReadingStatusFilter) ([]db.MeterReadingDetail, error) {
	s.caller, s.filter = caller, filter
	return s.list, s.err
}

type stubReports struct {
	limit      int
	filter     service.PaymentFilter
	activities []service.Activity
	payments   *service.PaymentReport
	usage      *service.ServiceUsage
	err        error
}

func (s *stubReports) Activities(_ context.Context, _ *auth.Identity, limit int) ([]service.Activity, error) {
	s.limit = limit
	return s.activities, s.err
}

func (s *stubReports) Payments(_ context.Context, _ *auth.Identity, filter service.PaymentFilter) (*service.PaymentReport, error) {
	s.filter = filter
	return s.payments, s.err
}

func (s *stubReports) ServiceUsage(_ context.Context, _ *auth.Identity) (*service.ServiceUsage, error) {
	return s.usage, s.err
}

type stubHealth struct{ err error }

func (h stubHealth) Probe(context.Context) error { return h.err }

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(readings *stubReadings, reports *stubReports, health HealthService) http.Handler {
	return NewRouter(zap.NewNop(), RouterDependencies{
		Health:         health,
		Handlers:       NewHandlers(readings, reports),
		Verifier:       stubVerifier{},
		AllowedOrigins: []string{"https://kiosk.example.org"},
	})
}

func do(t *testing.T, h http.Handler, method, target, token, body string) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	}
	return rec, env
}

func sampleReading(status db.ReadingStatus) *db.MeterReadingDetail {
	return &db.MeterReadingDetail{
		MeterReading: db.MeterReading{
			ID:              uuid.MustParse("0b9e2f7c-4a61-4d2b-8c3e-5f7a9b1d3e5f"),
			ConnectionID:    uuid.MustParse("c0ffee00-1111-4222-8333-444455556666"),
			UserID:          citizenID,
			ServiceType:     db.ServiceElectricity,
			Reading:         150,
			PreviousReading: 120,
			Consumption:     30,
			SubmittedBy:     string(db.RoleCitizen),
			Status:          status,
			ReadingDate:     time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC),
			CreatedAt:       time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC),
		},
		ConnectionNo: "EL-1001",
		UserName:     "Asha",
	}
}

func TestHealthz(t *testing.T) {
	rec, env := do(t, newTestRouter(&stubReadings{}, &stubReports{}, stubHealth{}), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	rec, env = do(t, newTestRouter(&stubReadings{}, &stubReports{}, stubHealth{err: errors.New("dial tcp: refused")}), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "service degraded", env.Error)
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter(&stubReadings{}, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodPost, "/meter-readings", "", `{"connectionId":"x","reading":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "unauthorized", env.Error)

	rec, _ = do(t, router, http.MethodGet, "/admin/activities", "forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnauthorizedIsLocalized(t *testing.T) {
	router := newTestRouter(&stubReadings{}, &stubReports{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/service-usage", nil)
	req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "hi", rec.Header().Get("Content-Language"))
	assert.Contains(t, rec.Body.String(), "अनधिकृत")
}

func TestSubmitReading(t *testing.T) {
	readings := &stubReadings{result: sampleReading(db.ReadingPending)}
	router := newTestRouter(readings, &stubReports{}, nil)

	body := `{"connectionId":"c0ffee00-1111-4222-8333-444455556666","reading":150,"photoUrl":"https://img.example.org/m.jpg"}`
	rec, env := do(t, router, http.MethodPost, "/meter-readings", "citizen-token", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Equal(t, "150", readings.submitted.Reading)
	assert.Equal(t, "https://img.example.org/m.jpg", readings.submitted.PhotoURL)
	require.NotNil(t, readings.caller)
	assert.Equal(t, citizenID, readings.caller.UserID)

	var got readingResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, 120.0, got.PreviousReading)
	assert.Equal(t, 30.0, got.Consumption)
	assert.Equal(t, "PENDING", got.Status)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.VerifiedBy)
}

func TestSubmitReading_StringValue(t *testing.T) {
	readings := &stubReadings{result: sampleReading(db.ReadingPending)}
	router := newTestRouter(readings, &stubReports{}, nil)

	rec, _ := do(t, router, http.MethodPost, "/meter-readings", "citizen-token", `{"connectionId":"c","reading":"150.5"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "150.5", readings.submitted.Reading)
}

func TestSubmitReading_MalformedBody(t *testing.T) {
	router := newTestRouter(&stubReadings{}, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodPost, "/meter-readings", "citizen-token", `{"connectionId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", env.Error)
}

func TestErrorMapping(t *testing.T) {
	storageMiss := errors.New("record not found")
	notPending := errors.New("reading 0b9e2f7c is VERIFIED: reading is not pending")

	cases := []struct {
		name    string
		err     error
		status  int
		message string
		hidden  string
	}{
		{"field validation", fmt.Errorf("%w: %w", service.ErrValidation, &validator.ValidationError{Field: "reading", Reason: "negative value"}), http.StatusBadRequest, "validation failed: reading: negative value", ""},
		{"validation", fmt.Errorf("%w: unparsable %q", service.ErrValidation, "x=1"), http.StatusBadRequest, "validation failed", "unparsable"},
		{"forbidden", fmt.Errorf("%w: role CITIZEN may not perform this action", service.ErrForbidden), http.StatusForbidden, "forbidden", "CITIZEN"},
		{"not found", fmt.Errorf("%w: %w", service.ErrNotFound, storageMiss), http.StatusNotFound, "not found", "record not found"},
		{"conflict", fmt.Errorf("%w: %w", service.ErrConflict, notPending), http.StatusConflict, "reading is no longer pending", "VERIFIED"},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", ""},
		{"internal", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal server error", "relation"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&stubReadings{err: tc.err}, &stubReports{}, nil)

			rec, env := do(t, router, http.MethodPost, "/meter-readings", "citizen-token", `{"connectionId":"c","reading":1}`)

			assert.Equal(t, tc.status, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.message, env.Error)
			assert.Empty(t, env.Data)
			if tc.hidden != "" {
				assert.NotContains(t, rec.Body.String(), tc.hidden)
			}
		})
	}
}

func TestVerifyAndReject(t *testing.T) {
	verified := sampleReading(db.ReadingVerified)
	at := time.Date(2026, 3, 17, 11, 0, 0, 0, time.UTC)
	verified.IsVerified = true
	verified.VerifiedBy = &adminID
	verified.VerifiedAt = &at
	readings := &stubReadings{result: verified}
	router := newTestRouter(readings, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodPost, "/admin/meter-readings/0b9e2f7c-4a61-4d2b-8c3e-5f7a9b1d3e5f/verify", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, db.ReadingVerified, readings.transition)
	assert.Equal(t, verified.ID, readings.readingID)

	var got readingResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, adminID.String(), *got.VerifiedBy)

	rec, _ = do(t, router, http.MethodPost, "/admin/meter-readings/0b9e2f7c-4a61-4d2b-8c3e-5f7a9b1d3e5f/reject", "admin-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.ReadingRejected, readings.transition)
}

func TestVerify_InvalidID(t *testing.T) {
	readings := &stubReadings{}
	router := newTestRouter(readings, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodPost, "/admin/meter-readings/not-a-uuid/verify", "admin-token", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid reading id", env.Error)
	assert.Empty(t, readings.transition)
}

func TestVerify_TerminalReadingConflict(t *testing.T) {
	router := newTestRouter(&stubReadings{err: fmt.Errorf("%w: reading is VERIFIED", service.ErrConflict)}, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodPost, "/admin/meter-readings/0b9e2f7c-4a61-4d2b-8c3e-5f7a9b1d3e5f/verify", "admin-token", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
}

func TestListReadings(t *testing.T) {
	readings := &stubReadings{list: []db.MeterReadingDetail{*sampleReading(db.ReadingPending)}}
	router := newTestRouter(readings, &stubReports{}, nil)

	rec, env := do(t, router, http.MethodGet, "/admin/meter-readings?status=PENDING", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ReadingStatusFilter(db.ReadingPending), readings.filter)

	var got []readingResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got, 1)

	rec, _ = do(t, router, http.MethodGet, "/admin/meter-readings?status=verified", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ReadingStatusFilter(db.ReadingVerified), readings.filter)

	rec, _ = do(t, router, http.MethodGet, "/admin/meter-readings?status=LOST", "admin-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListActivities(t *testing.T) {
	reports := &stubReports{}
	router := newTestRouter(&stubReadings{}, reports, nil)

	rec, env := do(t, router, http.MethodGet, "/admin/activities?limit=5", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, reports.limit)
	assert.JSONEq(t, `[]`, string(env.Data))

	for _, bad := range []string{"abc", "0", "-3"} {
		rec, env = do(t, router, http.MethodGet, "/admin/activities?limit="+bad, "admin-token", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", bad)
		assert.Equal(t, "limit must be a positive integer", env.Error)
	}
}

func TestListPayments(t *testing.T) {
	reports := &stubReports{payments: &service.PaymentReport{
		Payments: []db.Payment{{
			ID:          uuid.New(),
			BillID:      uuid.New(),
			UserID:      citizenID,
			Amount:      decimal.RequireFromString("10.30"),
			Method:      "UPI",
			Status:      db.PaymentSuccess,
			ServiceType: db.ServiceWater,
		}},
		Stats: service.PaymentStats{
			TodayTotal: decimal.RequireFromString("10.30"),
			TodayCount: 1,
			WeekTotal:  decimal.RequireFromString("10.30"),
			WeekCount:  1,
			MonthTotal: decimal.RequireFromString("25.80"),
			MonthCount: 2,
		},
	}}
	router := newTestRouter(&stubReadings{}, reports, nil)

	rec, env := do(t, router, http.MethodGet, "/admin/payments?limit=20&status=success&serviceType=WATER", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, service.PaymentFilter{
		Status:      service.PaymentStatusFilter(db.PaymentSuccess),
		ServiceType: service.ServiceTypeFilter(db.ServiceWater),
		Limit:       20,
	}, reports.filter)

	var got struct {
		Payments []struct {
			Amount      string `json:"amount"`
			ServiceType string `json:"serviceType"`
		} `json:"payments"`
		Stats struct {
			TodayTotal string `json:"todayTotal"`
			MonthTotal string `json:"monthTotal"`
			MonthCount int    `json:"monthCount"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Payments, 1)
	assert.Equal(t, "10.3", got.Payments[0].Amount)
	assert.Equal(t, "WATER", got.Payments[0].ServiceType)
	assert.Equal(t, "25.8", got.Stats.MonthTotal)
	assert.Equal(t, 2, got.Stats.MonthCount)

	rec, _ = do(t, router, http.MethodGet, "/admin/payments?serviceType=TELECOM", "admin-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceUsage_Forbidden(t *testing.T) {
	router := newTestRouter(&stubReadings{}, &stubReports{err: fmt.Errorf("%w: role CITIZEN", service.ErrForbidden)}, nil)

	rec, env := do(t, router, http.MethodGet, "/admin/service-usage", "citizen-token", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, env.Success)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(&stubReadings{}, &stubReports{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/meter-readings", nil)
	req.Header.Set("Origin", "https://kiosk.example.org")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://kiosk.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/meter-readings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReadingText(t *testing.T) {
	cases := map[string]string{
		``:         "",
		`null`:     "",
		`150`:      "150",
		` 12.5 `:   "12.5",
		`"42"`:     "42",
		`true`:     "true",
		`{"a":1}`:  `{"a":1}`,
	}
	for raw, want := range cases {
		assert.Equal(t, want, readingText(json.RawMessage(raw)), "raw %q", raw)
	}
}
