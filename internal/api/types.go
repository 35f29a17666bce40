package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/service"
	"github.com/shopspring/decimal"
)

// submitReadingRequest accepts the reading as a JSON number or a numeric string
type submitReadingRequest struct {
	ConnectionID string          `json:"connectionId"`
	Reading      json.RawMessage `json:"reading"`
	PhotoURL     string          `json:"photoUrl"`
	ReadingDate  string          `json:"readingDate"`
}

// readingText flattens the raw reading into the string form the validator
// checks. Anything but a number or a string is passed through and fails
// numeric validation.
func readingText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

type readingResponse struct {
	ID              string     `json:"id"`
	ConnectionID    string     `json:"connectionId"`
	UserID          string     `json:"userId"`
	ServiceType     string     `json:"serviceType"`
	Reading         float64    `json:"reading"`
	PreviousReading float64    `json:"previousReading"`
	Consumption     float64    `json:"consumption"`
	SubmittedBy     string     `json:"submittedBy"`
	PhotoURL        *string    `json:"photoUrl"`
	Status          string     `json:"status"`
	IsVerified      bool       `json:"isVerified"`
	VerifiedBy      *string    `json:"verifiedBy"`
	VerifiedAt      *time.Time `json:"verifiedAt"`
	Notes           *string    `json:"notes"`
	AnomalyReason   *string    `json:"anomalyReason,omitempty"`
	ReadingDate     time.Time  `json:"readingDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	ConnectionNo    string     `json:"connectionNo"`
	Address         string     `json:"address"`
	UserName        string     `json:"userName"`
	UserPhone       string     `json:"userPhone"`
}

func newReadingResponse(r *db.MeterReadingDetail) readingResponse {
	resp := readingResponse{
		ID:              r.ID.String(),
		ConnectionID:    r.ConnectionID.String(),
		UserID:          r.UserID.String(),
		ServiceType:     string(r.ServiceType),
		Reading:         r.Reading,
		PreviousReading: r.PreviousReading,
		Consumption:     r.Consumption,
		SubmittedBy:     r.SubmittedBy,
		PhotoURL:        r.PhotoURL,
		Status:          string(r.Status),
		IsVerified:      r.IsVerified,
		VerifiedAt:      r.VerifiedAt,
		Notes:           r.Notes,
		AnomalyReason:   r.AnomalyReason,
		ReadingDate:     r.ReadingDate,
		CreatedAt:       r.CreatedAt,
		ConnectionNo:    r.ConnectionNo,
		Address:         r.Address,
		UserName:        r.UserName,
		UserPhone:       r.UserPhone,
	}
	if r.VerifiedBy != nil {
		by := r.VerifiedBy.String()
		resp.VerifiedBy = &by
	}
	return resp
}

type paymentResponse struct {
	ID            string          `json:"id"`
	BillID        string          `json:"billId"`
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	TransactionID *string         `json:"transactionId"`
	ServiceType   string          `json:"serviceType"`
	ConnectionNo  string          `json:"connectionNo"`
	UserName      string          `json:"userName"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newPaymentResponse(p db.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID.String(),
		BillID:        p.BillID.String(),
		UserID:        p.UserID.String(),
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		ServiceType:   string(p.ServiceType),
		ConnectionNo:  p.ConnectionNo,
		UserName:      p.UserName,
		CreatedAt:     p.CreatedAt,
	}
}

type paymentsResponse struct {
	Payments []paymentResponse    `json:"payments"`
	Stats    service.PaymentStats `json:"stats"`
}
