package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/civic-kiosk/internal/anomaly"
	"github.com/septivank/civic-kiosk/internal/config"
	"github.com/septivank/civic-kiosk/internal/db"
	"github.com/septivank/civic-kiosk/internal/mq"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/internal/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type memStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]db.User
	connections map[uuid.UUID]db.ServiceConnection
	readings    []*db.MeterReading
	payments    []db.Payment
	grievances  []db.Grievance
	events      map[uuid.UUID]db.ReadingEvent
	err         error
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]db.User),
		connections: make(map[uuid.UUID]db.ServiceConnection),
		events:      make(map[uuid.UUID]db.ReadingEvent),
	}
}

func (m *memStore) addUser(name string, role db.Role) db.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := db.User{ID: uuid.New(), Name: name, Phone: "98" + name, Role: role}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addConnection(owner uuid.UUID, st db.ServiceType, no string) db.ServiceConnection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := db.ServiceConnection{ID: uuid.New(), UserID: owner, ServiceType: st, ConnectionNo: no, Address: "12 Market Road", Status: "ACTIVE"}
	m.connections[c.ID] = c
	return c
}

func (m *memStore) addReading(r db.MeterReading) *db.MeterReading {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.readings = append(m.readings, &r)
	return &r
}

func (m *memStore) detail(r *db.MeterReading) *db.MeterReadingDetail {
	c := m.connections[r.ConnectionID]
	u := m.users[r.UserID]
	return &db.MeterReadingDetail{
		MeterReading: *r,
		ConnectionNo: c.ConnectionNo,
		Address:      c.Address,
		UserName:     u.Name,
		UserPhone:    u.Phone,
	}
}

func (m *memStore) GetConnection(_ context.Context, id uuid.UUID) (*db.ServiceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.connections[id]
	if !ok {
		return nil, fmt.Errorf("connection %s: %w", id, repository.ErrNotFound)
	}
	return &c, nil
}

func (m *memStore) GetBaselineReading(_ context.Context, connectionID uuid.UUID) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *db.MeterReading
	for _, r := range m.readings {
		if r.ConnectionID != connectionID || r.Status != db.ReadingVerified {
			continue
		}
		if latest == nil || r.ReadingDate.After(latest.ReadingDate) ||
			(r.ReadingDate.Equal(latest.ReadingDate) && r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return 0, false, nil
	}
	return latest.Reading, true, nil
}

func (m *memStore) GetVerifiedConsumptions(_ context.Context, connectionID uuid.UUID, limit int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for i := len(m.readings) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.readings[i]
		if r.ConnectionID == connectionID && r.Status == db.ReadingVerified {
			out = append(out, r.Consumption)
		}
	}
	return out, nil
}

func (m *memStore) InsertMeterReading(_ context.Context, reading *db.MeterReading) (*db.MeterReadingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r := *reading
	r.ID = uuid.New()
	r.Status = db.ReadingPending
	r.IsVerified = false
	m.readings = append(m.readings, &r)
	return m.detail(&r), nil
}

func (m *memStore) TransitionReading(_ context.Context, t repository.Transition) (*db.MeterReadingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.readings {
		if r.ID != t.ReadingID {
			continue
		}
		if r.Status.IsTerminal() {
			return nil, fmt.Errorf("reading %s is %s: %w", r.ID, r.Status, repository.ErrNotPending)
		}
		by, at, notes := t.VerifiedBy, t.VerifiedAt, t.Notes
		r.Status = t.To
		r.IsVerified = t.To == db.ReadingVerified
		r.VerifiedBy = &by
		r.VerifiedAt = &at
		r.Notes = &notes
		return m.detail(r), nil
	}
	return nil, fmt.Errorf("reading %s: %w", t.ReadingID, repository.ErrNotFound)
}

func (m *memStore) ListReadings(_ context.Context, status *db.ReadingStatus, limit int) ([]db.MeterReadingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []db.MeterReadingDetail
	for _, r := range m.readings {
		if status == nil || r.Status == *status {
			out = append(out, *m.detail(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReadingDate.After(out[j].ReadingDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RecentReadings(_ context.Context, limit int) ([]db.MeterReadingDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]db.MeterReadingDetail, 0, len(m.readings))
	for _, r := range m.readings {
		out = append(out, *m.detail(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListPayments(_ context.Context, q repository.PaymentQuery) ([]db.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []db.Payment
	for _, p := range m.payments {
		if q.Status != nil && p.Status != *q.Status {
			continue
		}
		if q.ServiceType != nil && p.ServiceType != *q.ServiceType {
			continue
		}
		if q.Since != nil && p.CreatedAt.Before(*q.Since) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) RecentGrievances(_ context.Context, limit int) ([]db.Grievance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]db.Grievance(nil), m.grievances...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m *memStore) CountReadingsByService(_ context.Context, from, to time.Time) (map[db.ServiceType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[db.ServiceType]int)
	for _, r := range m.readings {
		if within(r.ReadingDate, from, to) {
			out[r.ServiceType]++
		}
	}
	return out, nil
}

func (m *memStore) RevenueByService(_ context.Context, from, to time.Time) (map[db.ServiceType]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[db.ServiceType]decimal.Decimal)
	for _, p := range m.payments {
		if p.Status == db.PaymentSuccess && within(p.CreatedAt, from, to) {
			out[p.ServiceType] = out[p.ServiceType].Add(p.Amount)
		}
	}
	return out, nil
}

func (m *memStore) CountGrievancesByService(_ context.Context, from, to time.Time) (map[db.ServiceType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[db.ServiceType]int)
	for _, g := range m.grievances {
		if within(g.CreatedAt, from, to) {
			out[g.ServiceType]++
		}
	}
	return out, nil
}

func (m *memStore) InsertReadingEvent(_ context.Context, event *db.ReadingEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.events[event.ID]; ok {
		return false, nil
	}
	m.events[event.ID] = *event
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.ReadingEvent
	keys   []string
	err    error
}

func (p *recordingPublisher) PublishReadingEvent(_ context.Context, event mq.ReadingEvent, routingKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	p.keys = append(p.keys, routingKey)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		RabbitMQ: config.RabbitMQConfig{
			SubmittedRoutingKey: "meter.reading.submitted",
			VerifiedRoutingKey:  "meter.reading.verified",
			RejectedRoutingKey:  "meter.reading.rejected",
		},
		Validation: config.ValidationConfig{ReadingDateToleranceMinutes: 60},
		Anomaly: config.AnomalyConfig{
			SpikeThreshold:            3.0,
			MinDataPointsForDetection: 3,
			HistoryWindow:             10,
		},
		Reports: config.ReportsConfig{DefaultLimit: 10, MaxLimit: 100},
	}
}

func newTestReadingService(store *memStore, pub *recordingPublisher, now time.Time) *ReadingService {
	cfg := testConfig()
	svc := NewReadingService(
		store,
		pub,
		anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection),
		validator.NewValidator(cfg.Validation.ReadingDateToleranceMinutes),
		cfg,
		zap.NewNop(),
	)
	svc.now = func() time.Time { return now }
	return svc
}
