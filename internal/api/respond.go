package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/locale"
	"github.com/septivank/civic-kiosk/internal/service"
	"github.com/septivank/civic-kiosk/internal/validator"
	"go.uber.org/zap"
)

// envelope wraps every response body
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

// statusFor maps an error category onto its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the fixed message of each client error category
var messageFor = map[int]string{
	http.StatusBadRequest:   locale.MsgValidation,
	http.StatusUnauthorized: locale.MsgUnauthorized,
	http.StatusForbidden:    locale.MsgForbidden,
	http.StatusNotFound:     locale.MsgNotFound,
	http.StatusConflict:     locale.MsgConflict,
}

// respondError writes the error envelope with the fixed message of the
// error's category. Wrapped error text never reaches the client; internal
// errors are logged in full. A field-level validation failure appends its
// field and reason.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	loc := locale.FromContext(r.Context())

	key, ok := messageFor[status]
	if !ok {
		requestLogger(r).Error("request failed", zap.Error(err))
		writeError(w, status, loc.Text(locale.MsgInternal))
		return
	}

	message := loc.Text(key)
	var verr *validator.ValidationError
	if status == http.StatusBadRequest && errors.As(err, &verr) {
		message += ": " + verr.Error()
	}
	writeError(w, status, message)
}
