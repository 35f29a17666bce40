package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Role is the role of a user account
type Role string

const (
	RoleCitizen Role = "CITIZEN"
	RoleAdmin   Role = "ADMIN"
	RoleStaff   Role = "STAFF"
)

// IsStaff reports whether the role may act on behalf of the utility
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

// ServiceType is the utility domain a connection, reading or grievance belongs to
type ServiceType string

const (
	ServiceElectricity ServiceType = "ELECTRICITY"
	ServiceGas         ServiceType = "GAS"
	ServiceWater       ServiceType = "WATER"
	ServiceMunicipal   ServiceType = "MUNICIPAL"
)

// ServiceTypes lists every persisted service type
var ServiceTypes = []ServiceType{ServiceElectricity, ServiceGas, ServiceWater, ServiceMunicipal}

// ParseServiceType validates a service type string
func ParseServiceType(s string) (ServiceType, bool) {
	for _, st := range ServiceTypes {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ReadingStatus is the verification state of a meter reading
type ReadingStatus string

const (
	ReadingPending  ReadingStatus = "PENDING"
	ReadingVerified ReadingStatus = "VERIFIED"
	ReadingRejected ReadingStatus = "REJECTED"
)

// ParseReadingStatus validates a reading status string
func ParseReadingStatus(s string) (ReadingStatus, bool) {
	switch ReadingStatus(s) {
	case ReadingPending, ReadingVerified, ReadingRejected:
		return ReadingStatus(s), true
	}
	return "", false
}

// IsTerminal reports whether no further transition is allowed
func (s ReadingStatus) IsTerminal() bool {
	return s == ReadingVerified || s == ReadingRejected
}

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// ParsePaymentStatus validates a payment status string
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return PaymentStatus(s), true
	}
	return "", false
}

// User represents a user account in the database
type User struct {
	ID         uuid.UUID
	Phone      string
	Name       string
	Role       Role
	Language   string
	IsVerified bool
	CreatedAt  time.Time
}

// ServiceConnection represents a citizen's subscription to one utility
type ServiceConnection struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	ServiceType  ServiceType
	ConnectionNo string
	Address      string
	Status       string
	CreatedAt    time.Time
}

// MeterReading represents a meter reading in the database.
// Consumption is captured at submission and never recomputed.
type MeterReading struct {
	ID              uuid.UUID
	ConnectionID    uuid.UUID
	UserID          uuid.UUID
	ServiceType     ServiceType
	Reading         float64
	PreviousReading float64
	Consumption     float64
	SubmittedBy     string
	PhotoURL        *string
	Status          ReadingStatus
	IsVerified      bool
	VerifiedBy      *uuid.UUID
	VerifiedAt      *time.Time
	Notes           *string
	AnomalyReason   *string
	ReadingDate     time.Time
	CreatedAt       time.Time
}

// MeterReadingDetail is a meter reading joined with the display fields of
// its connection and submitter
type MeterReadingDetail struct {
	MeterReading
	ConnectionNo string
	Address      string
	UserName     string
	UserPhone    string
}

// Payment represents a payment against a bill. ServiceType and
// ConnectionNo are resolved through the bill's connection.
type Payment struct {
	ID            uuid.UUID
	BillID        uuid.UUID
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Method        string
	Status        PaymentStatus
	TransactionID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ServiceType   ServiceType
	ConnectionNo  string
	UserName      string
}

// Grievance represents a citizen complaint
type Grievance struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ServiceType ServiceType
	Category    string
	Subject     string
	Status      string
	CreatedAt   time.Time
	UserName    string
}

// ReadingEvent is one row of the reading audit trail
type ReadingEvent struct {
	ID           uuid.UUID
	ReadingID    uuid.UUID
	ConnectionID uuid.UUID
	EventType    string
	ActorID      uuid.UUID
	Status       ReadingStatus
	Consumption  float64
	OccurredAt   time.Time
	RecordedAt   time.Time
}
