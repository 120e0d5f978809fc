package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/scoring/repository"
	"leaddesk_backend/platform/apperr"
	platformevents "leaddesk_backend/platform/events"
	"leaddesk_backend/platform/logger"
)

// memScores applies the same XP rules as the SQL upserts, tracked per broker.
type memScores struct {
	mu       sync.Mutex
	scores   map[uuid.UUID]*repository.Score
	accepted map[uuid.UUID]map[uuid.UUID]bool // brokerID -> prospectID
}

func newMemScores() *memScores {
	return &memScores{
		scores:   make(map[uuid.UUID]*repository.Score),
		accepted: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (m *memScores) row(brokerID uuid.UUID) *repository.Score {
	s, ok := m.scores[brokerID]
	if !ok {
		s = &repository.Score{BrokerID: brokerID, Level: 1}
		m.scores[brokerID] = s
	}
	return s
}

func (m *memScores) AddReceived(_ context.Context, brokerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.row(brokerID).LeadsReceived++
	return nil
}

func (m *memScores) AddAccepted(_ context.Context, brokerID uuid.UUID, xpAward int, tta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(brokerID)
	s.LeadsAccepted++
	s.XPTotal += xpAward
	s.Level = Level(s.XPTotal)
	avg := NextAvgResponse(s.AvgResponseSeconds, tta)
	s.AvgResponseSeconds = &avg
	return nil
}

func (m *memScores) AddExpired(_ context.Context, brokerID uuid.UUID, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(brokerID)
	s.LeadsExpired++
	s.XPTotal = ApplyExpire(s.XPTotal)
	s.Level = Level(s.XPTotal)
	return nil
}

func (m *memScores) AddVisit(_ context.Context, brokerID uuid.UUID, xpAward int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(brokerID)
	s.Visits++
	s.XPTotal += xpAward
	s.Level = Level(s.XPTotal)
	return nil
}

func (m *memScores) AddSale(_ context.Context, brokerID uuid.UUID, xpAward int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(brokerID)
	s.Sales++
	s.XPTotal += xpAward
	s.Level = Level(s.XPTotal)
	return nil
}

func (m *memScores) Get(_ context.Context, brokerID uuid.UUID) (*repository.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.row(brokerID)
	return &cp, nil
}

func (m *memScores) Leaderboard(context.Context, repository.LeaderboardFilter) ([]repository.LeaderboardEntry, int, error) {
	return nil, 0, nil
}

func (m *memScores) HasAcceptedAssignment(_ context.Context, brokerID, prospectID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accepted[brokerID][prospectID], nil
}

func (m *memScores) markAccepted(brokerID, prospectID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accepted[brokerID] == nil {
		m.accepted[brokerID] = make(map[uuid.UUID]bool)
	}
	m.accepted[brokerID][prospectID] = true
}

func newBusAndService(t *testing.T) (*platformevents.InMemoryBus, *memScores, *Service) {
	t.Helper()
	log := logger.New("test")
	bus := platformevents.NewInMemoryBus(log)
	store := newMemScores()
	svc := New(store, bus, log)
	svc.Subscribe(bus)
	return bus, store, svc
}

func TestLifecycleEventsDriveScore(t *testing.T) {
	bus, store, _ := newBusAndService(t)
	brokerID := uuid.New()
	ctx := context.Background()

	publish := func(e events.Event) {
		t.Helper()
		if err := bus.PublishSync(ctx, e); err != nil {
			t.Fatalf("publish %s: %v", e.EventName(), err)
		}
	}

	publish(events.LeadReceived{BaseEvent: events.NewBaseEvent(), BrokerID: brokerID})
	publish(events.LeadAccepted{BaseEvent: events.NewBaseEvent(), BrokerID: brokerID, TimeToAcceptSeconds: 60})

	score, err := store.Get(ctx, brokerID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if score.LeadsReceived != 1 || score.LeadsAccepted != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", score.LeadsReceived, score.LeadsAccepted)
	}
	if score.XPTotal != XPFastAccept {
		t.Errorf("xp = %d, want fast accept award %d", score.XPTotal, XPFastAccept)
	}
	if score.AvgResponseSeconds == nil || *score.AvgResponseSeconds != 60 {
		t.Errorf("avg = %v, want 60", score.AvgResponseSeconds)
	}

	// A second, slow accept averages against the first sample.
	publish(events.LeadAccepted{BaseEvent: events.NewBaseEvent(), BrokerID: brokerID, TimeToAcceptSeconds: 600})
	score, _ = store.Get(ctx, brokerID)
	if *score.AvgResponseSeconds != 330 {
		t.Errorf("avg after second sample = %v, want 330", *score.AvgResponseSeconds)
	}
	if score.XPTotal != XPFastAccept+XPAccept {
		t.Errorf("xp = %d, want %d", score.XPTotal, XPFastAccept+XPAccept)
	}
}

func TestExpirationNeverDrivesXPNegative(t *testing.T) {
	bus, store, _ := newBusAndService(t)
	brokerID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := bus.PublishSync(ctx, events.LeadExpired{BaseEvent: events.NewBaseEvent(), BrokerID: brokerID}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	score, _ := store.Get(ctx, brokerID)
	if score.XPTotal != 0 {
		t.Errorf("xp = %d, want 0", score.XPTotal)
	}
	if score.Level != 1 {
		t.Errorf("level = %d, want 1", score.Level)
	}
	if score.LeadsExpired != 3 {
		t.Errorf("expired counter = %d, want 3", score.LeadsExpired)
	}
}

func TestRecordVisitRequiresClaim(t *testing.T) {
	_, store, svc := newBusAndService(t)
	brokerID, prospectID := uuid.New(), uuid.New()
	ctx := context.Background()

	err := svc.RecordVisit(ctx, brokerID, prospectID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected KindForbidden without a claim, got %v", err)
	}

	store.markAccepted(brokerID, prospectID)
	if err := svc.RecordVisit(ctx, brokerID, prospectID); err != nil {
		t.Fatalf("RecordVisit after claim: %v", err)
	}

	score, _ := store.Get(ctx, brokerID)
	if score.Visits != 1 || score.XPTotal != XPVisit {
		t.Errorf("visits/xp = %d/%d, want 1/%d", score.Visits, score.XPTotal, XPVisit)
	}
}

func TestRecordSaleAwardsAndPublishes(t *testing.T) {
	bus, store, svc := newBusAndService(t)
	brokerID, prospectID := uuid.New(), uuid.New()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []string
	bus.Subscribe(events.SaleCompleted{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.EventName())
		return nil
	}))

	store.markAccepted(brokerID, prospectID)
	if err := svc.RecordSale(ctx, brokerID, prospectID); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	score, _ := store.Get(ctx, brokerID)
	if score.Sales != 1 || score.XPTotal != XPSale {
		t.Errorf("sales/xp = %d/%d, want 1/%d", score.Sales, score.XPTotal, XPSale)
	}
	if score.Level != Level(XPSale) {
		t.Errorf("level = %d, want %d", score.Level, Level(XPSale))
	}

	// The bus delivers async publishes on their own goroutines.
	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("SaleCompleted event not delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
