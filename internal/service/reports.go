package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/tools/timeparser"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReportStore is the read-only persistence behind the admin dashboard
type ReportStore interface {
	RecentReadings(ctx context.Context, limit int) ([]db.MeterReadingDetail, error)
	ListPayments(ctx context.Context, q repository.PaymentQuery) ([]db.Payment, error)
	RecentGrievances(ctx context.Context, limit int) ([]db.Grievance, error)
	CountReadingsByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]int, error)
	RevenueByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]decimal.Decimal, error)
	CountGrievancesByService(ctx context.Context, from, to time.Time) (map[db.ServiceType]int, error)
}

// ReportService serves the admin aggregation endpoints. Each sub-query reads
// independently, so a merged view is eventually consistent, not a snapshot.
type ReportService struct {
	store ReportStore
	cfg   config.ReportsConfig
	now   func() time.Time
}

// NewReportService creates a new report service
func NewReportService(store ReportStore, cfg *config.Config) *ReportService {
	return &ReportService{store: store, cfg: cfg.Reports, now: time.Now}
}

func (s *ReportService) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return limit
}

// Activity types
const (
	ActivityReading   = "reading"
	ActivityPayment   = "payment"
	ActivityGrievance = "grievance"
)

// Activity is one entry of the dashboard feed
type Activity struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ServiceType db.ServiceType   `json:"serviceType"`
	Status      string           `json:"status"`
	UserName    string           `json:"userName"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Activities merges the newest readings, successful payments and grievances
// into one feed of at most limit entries, newest first. Every entry is
// stamped with its creation time, so readings are selected by submission
// time rather than by the date they were taken on.
func (s *ReportService) Activities(ctx context.Context, caller *auth.Identity, limit int) ([]Activity, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)

	var (
		readings   []db.MeterReadingDetail
		payments   []db.Payment
		grievances []db.Grievance
	)
	success := db.PaymentSuccess

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		readings, err = s.store.RecentReadings(gctx, limit)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPayments(gctx, repository.PaymentQuery{Status: &success, Limit: limit})
		return err
	})
	g.Go(func() error {
		var err error
		grievances, err = s.store.RecentGrievances(gctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(readings)+len(payments)+len(grievances))
	for _, r := range readings {
		activities = append(activities, Activity{
			ID:          r.ID.String(),
			Type:        ActivityReading,
			Title:       readingActivityTitle(r.ServiceType, r.Status),
			Description: fmt.Sprintf("Connection %s: %.2f units", r.ConnectionNo, r.Consumption),
			ServiceType: r.ServiceType,
			Status:      string(r.Status),
			UserName:    r.UserName,
			Timestamp:   r.CreatedAt,
		})
	}
	for _, p := range payments {
		amount := p.Amount
		activities = append(activities, Activity{
			ID:          p.ID.String(),
			Type:        ActivityPayment,
			Title:       fmt.Sprintf("%s bill paid", titleCase(p.ServiceType)),
			Description: fmt.Sprintf("Connection %s via %s", p.ConnectionNo, p.Method),
			ServiceType: p.ServiceType,
			Status:      string(p.Status),
			UserName:    p.UserName,
			Amount:      &amount,
			Timestamp:   p.CreatedAt,
		})
	}
	for _, gr := range grievances {
		activities = append(activities, Activity{
			ID:          gr.ID.String(),
			Type:        ActivityGrievance,
			Title:       fmt.Sprintf("%s grievance filed", titleCase(gr.ServiceType)),
			Description: gr.Subject,
			ServiceType: gr.ServiceType,
			Status:      gr.Status,
			UserName:    gr.UserName,
			Timestamp:   gr.CreatedAt,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}

	return activities, nil
}

// PaymentStatusFilter selects payments by status; PaymentStatusAll matches every status
type PaymentStatusFilter string

// PaymentStatusAll disables status filtering
const PaymentStatusAll PaymentStatusFilter = "ALL"

// ParsePaymentStatusFilter accepts an empty string, ALL, or a payment status
func ParsePaymentStatusFilter(raw string) (PaymentStatusFilter, error) {
	if raw == "" || strings.EqualFold(raw, string(PaymentStatusAll)) {
		return PaymentStatusAll, nil
	}
	status, ok := db.ParsePaymentStatus(strings.ToUpper(raw))
	if !ok {
		return "", invalidField("status", "unknown payment status")
	}
	return PaymentStatusFilter(status), nil
}

// ServiceTypeFilter selects by service type; ServiceTypeAll matches every type
type ServiceTypeFilter string

// ServiceTypeAll disables service type filtering
const ServiceTypeAll ServiceTypeFilter = "all"

// ParseServiceTypeFilter accepts an empty string, all, or a service type
func ParseServiceTypeFilter(raw string) (ServiceTypeFilter, error) {
	if raw == "" || strings.EqualFold(raw, string(ServiceTypeAll)) {
		return ServiceTypeAll, nil
	}
	st, ok := db.ParseServiceType(strings.ToUpper(raw))
	if !ok {
		return "", invalidField("serviceType", "unknown service type")
	}
	return ServiceTypeFilter(st), nil
}

// PaymentFilter configures the admin payment listing
type PaymentFilter struct {
	Status      PaymentStatusFilter
	ServiceType ServiceTypeFilter
	Limit       int
}

// PaymentStats aggregates SUCCESS payments over three windows ending now
type PaymentStats struct {
	TodayTotal decimal.Decimal `json:"todayTotal"`
	TodayCount int             `json:"todayCount"`
	WeekTotal  decimal.Decimal `json:"weekTotal"`
	WeekCount  int             `json:"weekCount"`
	MonthTotal decimal.Decimal `json:"monthTotal"`
	MonthCount int             `json:"monthCount"`
}

// PaymentReport is the payment listing plus its stats
type PaymentReport struct {
	Payments []db.Payment
	Stats    PaymentStats
}

// Payments lists payments matching filter and computes today, trailing
// seven day and month-to-date totals of successful payments
func (s *ReportService) Payments(ctx context.Context, caller *auth.Identity, filter PaymentFilter) (*PaymentReport, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	q := repository.PaymentQuery{Limit: s.clampLimit(filter.Limit)}
	if filter.Status != "" && filter.Status != PaymentStatusAll {
		st := db.PaymentStatus(filter.Status)
		q.Status = &st
	}
	if filter.ServiceType != "" && filter.ServiceType != ServiceTypeAll {
		st := db.ServiceType(filter.ServiceType)
		q.ServiceType = &st
	}

	now := s.now()
	todayStart := timeparser.StartOfDay(now)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := timeparser.StartOfMonth(now)
	since := monthStart
	if weekStart.Before(since) {
		since = weekStart
	}

	var listed, successful []db.Payment
	success := db.PaymentSuccess

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listed, err = s.store.ListPayments(gctx, q)
		return err
	})
	g.Go(func() error {
		var err error
		successful, err = s.store.ListPayments(gctx, repository.PaymentQuery{Status: &success, Since: &since})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &PaymentReport{
		Payments: listed,
		Stats:    computePaymentStats(successful, todayStart, weekStart, monthStart),
	}, nil
}

func computePaymentStats(payments []db.Payment, todayStart, weekStart, monthStart time.Time) PaymentStats {
	stats := PaymentStats{
		TodayTotal: decimal.Zero,
		WeekTotal:  decimal.Zero,
		MonthTotal: decimal.Zero,
	}
	for _, p := range payments {
		if p.Status != db.PaymentSuccess {
			continue
		}
		if !p.CreatedAt.Before(todayStart) {
			stats.TodayTotal = stats.TodayTotal.Add(p.Amount)
			stats.TodayCount++
		}
		if !p.CreatedAt.Before(weekStart) {
			stats.WeekTotal = stats.WeekTotal.Add(p.Amount)
			stats.WeekCount++
		}
		if !p.CreatedAt.Before(monthStart) {
			stats.MonthTotal = stats.MonthTotal.Add(p.Amount)
			stats.MonthCount++
		}
	}
	return stats
}

// UsageCategoryWaste has no data source of its own; it counts grievances
// filed against MUNICIPAL and WATER
const UsageCategoryWaste = "WASTE"

// UsageCategories is the fixed order of the service usage summary
var UsageCategories = []string{
	string(db.ServiceElectricity),
	string(db.ServiceGas),
	string(db.ServiceWater),
	string(db.ServiceMunicipal),
	UsageCategoryWaste,
}

// ServiceUsageEntry is the day's activity for one category
type ServiceUsageEntry struct {
	Category   string          `json:"category"`
	Readings   int             `json:"readings"`
	Revenue    decimal.Decimal `json:"revenue"`
	Grievances int             `json:"grievances"`
}

// ServiceUsage is the five-category rollup for one local day
type ServiceUsage struct {
	Date     string              `json:"date"`
	Services []ServiceUsageEntry `json:"services"`
}

// ServiceUsage rolls up today's readings, revenue and grievances by service type
func (s *ReportService) ServiceUsage(ctx context.Context, caller *auth.Identity) (*ServiceUsage, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}

	now := s.now()
	from, to := timeparser.DayWindow(now)

	var (
		readings   map[db.ServiceType]int
		revenue    map[db.ServiceType]decimal.Decimal
		grievances map[db.ServiceType]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		readings, err = s.store.CountReadingsByService(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = s.store.RevenueByService(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		grievances, err = s.store.CountGrievancesByService(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	usage := &ServiceUsage{
		Date:     from.Format("2006-01-02"),
		Services: make([]ServiceUsageEntry, 0, len(UsageCategories)),
	}
	for _, category := range UsageCategories {
		entry := ServiceUsageEntry{Category: category, Revenue: decimal.Zero}
		if category == UsageCategoryWaste {
			entry.Grievances = grievances[db.ServiceMunicipal] + grievances[db.ServiceWater]
		} else {
			st := db.ServiceType(category)
			entry.Readings = readings[st]
			entry.Grievances = grievances[st]
			if rev, ok := revenue[st]; ok {
				entry.Revenue = rev
			}
		}
		usage.Services = append(usage.Services, entry)
	}

	return usage, nil
}

func readingActivityTitle(st db.ServiceType, status db.ReadingStatus) string {
	verb := "submitted"
	switch status {
	case db.ReadingVerified:
		verb = "verified"
	case db.ReadingRejected:
		verb = "rejected"
	}
	return fmt.Sprintf("%s meter reading %s", titleCase(st), verb)
}

func titleCase(st db.ServiceType) string {
	s := strings.ToLower(string(st))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
