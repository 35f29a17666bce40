package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/shopspring/decimal"
)

const paymentColumns = `
	p.id, p.bill_id, p.user_id, p.amount, p.method, p.status, p.transaction_id,
	p.created_at, p.updated_at, sc.service_type, sc.connection_no, u.name
`

const paymentJoins = `
	FROM payments p
	JOIN bills b ON b.id = p.bill_id
	JOIN service_connections sc ON sc.id = b.connection_id
	JOIN users u ON u.id = p.user_id
`

func scanPayment(row rowScanner) (*db.Payment, error) {
	var p db.Payment
	err := row.Scan(
		&p.ID,
		&p.BillID,
		&p.UserID,
		&p.Amount,
		&p.Method,
		&p.Status,
		&p.TransactionID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.ServiceType,
		&p.ConnectionNo,
		&p.UserName,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentQuery selects payments for the admin listing. Nil fields match everything.
type PaymentQuery struct {
	Status      *db.PaymentStatus
	ServiceType *db.ServiceType
	Since       *time.Time
	Limit       int
}

// ListPayments lists payments newest first
func (r *Repository) ListPayments(ctx context.Context, q PaymentQuery) ([]db.Payment, error) {
	query := `SELECT ` + paymentColumns + paymentJoins + `
		WHERE ($1::text IS NULL OR p.status = $1)
		  AND ($2::text IS NULL OR sc.service_type = $2)
		  AND ($3::timestamptz IS NULL OR p.created_at >= $3)
		ORDER BY p.created_at DESC
	`
	args := []any{textArg(q.Status), textArg(q.ServiceType), q.Since}
	if q.Limit > 0 {
		query += ` LIMIT $4`
		args = append(args, q.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []db.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return payments, nil
}

// RecentGrievances lists the newest grievances
func (r *Repository) RecentGrievances(ctx context.Context, limit int) ([]db.Grievance, error) {
	query := `
		SELECT g.id, g.user_id, g.service_type, g.category, g.subject, g.status, g.created_at, u.name
		FROM grievances g
		JOIN users u ON u.id = g.user_id
		ORDER BY g.created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query grievances: %w", err)
	}
	defer rows.Close()

	var grievances []db.Grievance
	for rows.Next() {
		var g db.Grievance
		if err := rows.Scan(&g.ID, &g.UserID, &g.ServiceType, &g.Category, &g.Subject, &g.Status, &g.CreatedAt, &g.UserName); err != nil {
			return nil, fmt.Errorf("failed to scan grievance: %w", err)
		}
		grievances = append(grievances, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return grievances, nil
}

// CountReadingsByService counts readings with reading_date in [from, to)
func (r *Repository) CountReadingsByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]int, error) {
	query := `
		SELECT service_type, COUNT(*)
		FROM meter_readings
		WHERE reading_date >= $1 AND reading_date < $2
		GROUP BY service_type
	`
	return r.countByService(ctx, query, from, to)
}

// CountGrievancesByService counts grievances created in [from, to)
func (r *Repository) CountGrievancesByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]int, error) {
	query := `
		SELECT service_type, COUNT(*)
		FROM grievances
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY service_type
	`
	return r.countByService(ctx, query, from, to)
}

// RevenueByService sums SUCCESS payments created in [from, to), grouped by
// the service type of the paid bill's connection
func (r *Repository) RevenueByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]decimal.Decimal, error) {
	query := `
		SELECT sc.service_type, COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN bills b ON b.id = p.bill_id
		JOIN service_connections sc ON sc.id = b.connection_id
		WHERE p.status = 'SUCCESS' AND p.created_at >= $1 AND p.created_at < $2
		GROUP BY sc.service_type
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer rows.Close()

	out := make(map[db.ServiceType]decimal.Decimal)
	for rows.Next() {
		var st db.ServiceType
		var sum decimal.Decimal
		if err := rows.Scan(&st, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		out[st] = sum
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}

func (r *Repository) countByService(ctx context.Context, query string, from, to time.Time) (map[db.ServiceType]int, error) {
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	out := make(map[db.ServiceType]int)
	for rows.Next() {
		var st db.ServiceType
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		out[st] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}

func textArg[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
