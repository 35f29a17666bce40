package validator

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/tools/timeparser"
)

// ValidationError describes why a submission was refused
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SubmissionInput is the raw reading submission as received from the kiosk
type SubmissionInput struct {
	ConnectionID string `json:"connectionId" validate:"required,uuid"`
	Reading      string `json:"reading" validate:"required"`
	PhotoURL     string `json:"photoUrl" validate:"omitempty,url,max=2048"`
	ReadingDate  string `json:"readingDate"`
}

// Submission is a validated reading submission
type Submission struct {
	ConnectionID uuid.UUID
	Reading      float64
	PhotoURL     *string
	ReadingDate  time.Time
}

// Validator handles submission validation with configurable parameters
type Validator struct {
	validate                    *playground.Validate
	readingDateToleranceMinutes int
	location                    *time.Location
}

// NewValidator creates a new validator with the specified reading date tolerance
func NewValidator(readingDateToleranceMinutes int) *Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate:                    v,
		readingDateToleranceMinutes: readingDateToleranceMinutes,
		location:                    time.Local,
	}
}

// ValidateSubmission checks required fields and converts the raw values.
// An absent reading date defaults to receivedAt.
func (v *Validator) ValidateSubmission(in SubmissionInput, receivedAt time.Time) (*Submission, error) {
	in.ConnectionID = strings.TrimSpace(in.ConnectionID)
	in.Reading = strings.TrimSpace(in.Reading)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
	in.ReadingDate = strings.TrimSpace(in.ReadingDate)

	if err := v.validate.Struct(in); err != nil {
		var fieldErrs playground.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &ValidationError{Field: fe.Field(), Reason: describe(fe)}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}

	connectionID, err := uuid.Parse(in.ConnectionID)
	if err != nil {
		return nil, &ValidationError{Field: "connectionId", Reason: "must be a valid id"}
	}

	value, err := strconv.ParseFloat(in.Reading, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, &ValidationError{Field: "reading", Reason: "must be a number"}
	}
	if value < 0 {
		return nil, &ValidationError{Field: "reading", Reason: "negative value"}
	}

	sub := &Submission{
		ConnectionID: connectionID,
		Reading:      value,
		ReadingDate:  receivedAt,
	}
	if in.PhotoURL != "" {
		photo := in.PhotoURL
		sub.PhotoURL = &photo
	}

	if in.ReadingDate != "" {
		readingDate, err := timeparser.ParseReadingDate(in.ReadingDate, v.location)
		if err != nil {
			return nil, &ValidationError{Field: "readingDate", Reason: "invalid date format"}
		}
		if !timeparser.IsWithinTolerance(readingDate, receivedAt, v.readingDateToleranceMinutes) {
			return nil, &ValidationError{
				Field:  "readingDate",
				Reason: fmt.Sprintf("outside tolerance window (±%d minutes)", v.readingDateToleranceMinutes),
			}
		}
		sub.ReadingDate = readingDate
	}

	return sub, nil
}

func describe(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid id"
	case "url":
		return "must be a valid URL"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed '%s' check", fe.Tag())
	}
}
