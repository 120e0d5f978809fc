package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/events"
	"leaddesk_backend/internal/params"
	"leaddesk_backend/platform/apperr"
	"leaddesk_backend/platform/logger"
)

// memStore is an in-memory ledger with the same conditional-transition
// semantics as the Postgres repository: Accept and Expire check status under
// one lock, so exactly one of two racing transitions can win.
type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*repository.Assignment
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[uuid.UUID]*repository.Assignment)}
}

func (m *memStore) CreateBatch(_ context.Context, assignments []*repository.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range assignments {
		cp := *a
		m.rows[a.ID] = &cp
	}
	return nil
}

func (m *memStore) Accept(_ context.Context, id, brokerID uuid.UUID, now time.Time) (*repository.Assignment, []repository.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.rows[id]
	claimable := ok && a.BrokerID == brokerID && a.Status == repository.StatusAssigned &&
		(a.Deadline == nil || a.Deadline.After(now))
	if !claimable {
		return nil, nil, apperr.Conflict("assignment is no longer claimable")
	}

	a.Status = repository.StatusAccepted
	acceptedAt := now
	a.AcceptedAt = &acceptedAt
	a.Deadline = nil

	var withdrawn []repository.Assignment
	for _, sib := range m.rows {
		if sib.ProspectID == a.ProspectID && sib.ID != a.ID && sib.Status == repository.StatusAssigned {
			sib.Status = repository.StatusWithdrawn
			sib.Deadline = nil
			withdrawn = append(withdrawn, *sib)
		}
	}
	accepted := *a
	return &accepted, withdrawn, nil
}

func (m *memStore) Expire(_ context.Context, id uuid.UUID, now time.Time) (*repository.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.rows[id]
	if !ok || a.Status != repository.StatusAssigned {
		return nil, nil
	}
	a.Status = repository.StatusExpired
	a.Deadline = nil
	expiredAt := now
	a.Reason.ExpiredAt = &expiredAt
	expired := *a
	return &expired, nil
}

func (m *memStore) ListOverdue(_ context.Context, now time.Time, limit int) ([]repository.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Assignment
	for _, a := range m.rows {
		if a.Status == repository.StatusAssigned && a.Deadline != nil && !a.Deadline.After(now) {
			out = append(out, *a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CountAssigned(_ context.Context, prospectID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.rows {
		if a.ProspectID == prospectID && a.Status == repository.StatusAssigned {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*repository.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("assignment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) byProspect(prospectID uuid.UUID) []repository.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Assignment
	for _, a := range m.rows {
		if a.ProspectID == prospectID {
			out = append(out, *a)
		}
	}
	return out
}

type fakeSelector struct {
	mu    sync.Mutex
	queue [][]brokers.Broker
}

func (f *fakeSelector) NextEligible(_ context.Context, _ uuid.UUID, limit int) ([]brokers.Broker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, nil
	}
	batch := f.queue[0]
	f.queue = f.queue[1:]
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

type fixedParams struct {
	p params.SLAParameters
}

func (f fixedParams) Current(context.Context) (params.SLAParameters, error) {
	return f.p, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *captureBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *captureBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newBroker() brokers.Broker {
	return brokers.Broker{ID: uuid.New(), Name: "Broker", Email: "broker@example.com"}
}

func newTestService(store *memStore, sel *fakeSelector, p params.SLAParameters, bus *captureBus) *Service {
	return New(store, nil, sel, fixedParams{p: p}, bus, nil, logger.New("test"))
}

func TestCreateInitialAssignmentsFansOut(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	b1, b2 := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(created))
	}

	deadline := created[0].Deadline
	for _, a := range created {
		if a.Status != repository.StatusAssigned {
			t.Errorf("status = %s, want assigned", a.Status)
		}
		if a.Reason.Type != repository.ReasonInitial {
			t.Errorf("reason = %s, want initial", a.Reason.Type)
		}
		if a.Deadline == nil || !a.Deadline.Equal(*deadline) {
			t.Errorf("assignments must share one deadline")
		}
		if got := a.Deadline.Sub(a.CreatedAt); got != 5*time.Minute {
			t.Errorf("deadline window = %v, want 5m", got)
		}
	}
	if got := len(bus.byName(events.LeadReceived{}.EventName())); got != 2 {
		t.Errorf("LeadReceived events = %d, want 2", got)
	}
}

func TestCreateInitialAssignmentsNoEligibleBrokers(t *testing.T) {
	svc := newTestService(newMemStore(), &fakeSelector{}, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, &captureBus{})

	_, err := svc.CreateInitialAssignments(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindUnprocessable) {
		t.Fatalf("expected KindUnprocessable, got %v", err)
	}
}

func TestAcceptWithdrawsSiblings(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	b1, b2 := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	accepted, err := svc.Accept(context.Background(), created[0].ID, created[0].BrokerID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != repository.StatusAccepted || accepted.AcceptedAt == nil {
		t.Fatalf("accepted row not in accepted state: %+v", accepted)
	}
	if accepted.Deadline != nil {
		t.Errorf("accepted row must have no deadline")
	}

	for _, a := range store.byProspect(prospectID) {
		switch a.ID {
		case accepted.ID:
			if a.Status != repository.StatusAccepted {
				t.Errorf("winner status = %s", a.Status)
			}
		default:
			if a.Status != repository.StatusWithdrawn {
				t.Errorf("sibling status = %s, want withdrawn", a.Status)
			}
			if a.Deadline != nil {
				t.Errorf("withdrawn sibling must have no deadline")
			}
		}
	}
	if got := len(bus.byName(events.LeadAccepted{}.EventName())); got != 1 {
		t.Errorf("LeadAccepted events = %d, want 1", got)
	}
}

func TestAcceptLoserGetsConflict(t *testing.T) {
	store := newMemStore()
	b1, b2 := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, &captureBus{})

	created, err := svc.CreateInitialAssignments(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}
	if _, err := svc.Accept(context.Background(), created[0].ID, created[0].BrokerID); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err = svc.Accept(context.Background(), created[1].ID, created[1].BrokerID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected KindConflict for withdrawn sibling, got %v", err)
	}
}

func TestAcceptRaceHasSingleWinner(t *testing.T) {
	store := newMemStore()
	b1, b2 := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, &captureBus{})

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	errs := make([]error, len(created))
	var wg sync.WaitGroup
	for i, a := range created {
		wg.Add(1)
		go func(i int, a repository.Assignment) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), a.ID, a.BrokerID)
		}(i, a)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d; want exactly one winner", wins, conflicts)
	}

	accepted := 0
	for _, a := range store.byProspect(prospectID) {
		if a.Status == repository.StatusAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted rows = %d, want 1", accepted)
	}
}

func TestExpireAndEscalateMovesToNextBroker(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	first, next := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{first}, {next}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 1}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("ExpireAndEscalate: %v", err)
	}

	rows := store.byProspect(prospectID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after escalation, got %d", len(rows))
	}
	for _, a := range rows {
		switch a.ID {
		case created[0].ID:
			if a.Status != repository.StatusExpired {
				t.Errorf("old row status = %s, want expired", a.Status)
			}
			if a.Reason.ExpiredAt == nil {
				t.Errorf("expired row must record the expiration time")
			}
		default:
			if a.Status != repository.StatusAssigned {
				t.Errorf("new row status = %s, want assigned", a.Status)
			}
			if a.BrokerID != next.ID {
				t.Errorf("new row broker = %s, want next candidate", a.BrokerID)
			}
			if a.Reason.Type != repository.ReasonEscalation {
				t.Errorf("new row reason = %s, want escalation", a.Reason.Type)
			}
			if a.Reason.From == nil || *a.Reason.From != created[0].ID {
				t.Errorf("escalation must reference the expired assignment")
			}
		}
	}
	if got := len(bus.byName(events.LeadExpired{}.EventName())); got != 1 {
		t.Errorf("LeadExpired events = %d, want 1", got)
	}
	if got := len(bus.byName(events.LeadEscalated{}.EventName())); got != 1 {
		t.Errorf("LeadEscalated events = %d, want 1", got)
	}
}

func TestExpireAndEscalateIsIdempotent(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	first, next := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{first}, {next}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 1}, bus)

	created, err := svc.CreateInitialAssignments(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	// A second pass over the same row (scheduler plus sweeper overlap) must
	// not expire again or create more assignments.
	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if got := len(bus.byName(events.LeadExpired{}.EventName())); got != 1 {
		t.Errorf("LeadExpired events = %d, want 1", got)
	}
	if got := len(store.byProspect(created[0].ProspectID)); got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestEscalationExhaustedWhenPoolEmpty(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	only := newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{only}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 1}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("ExpireAndEscalate: %v", err)
	}

	if got := len(bus.byName(events.EscalationExhausted{}.EventName())); got != 1 {
		t.Fatalf("EscalationExhausted events = %d, want 1", got)
	}
	if got := len(store.byProspect(prospectID)); got != 1 {
		t.Errorf("rows = %d, want 1 (no new assignments)", got)
	}
}

func TestEscalationRefillsOnlyFreedSlots(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	b1, b2, b3, b4 := newBroker(), newBroker(), newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}, {b3, b4}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	// Only one of the two offers expires. The survivor keeps its slot, so the
	// escalation may add a single row, never a full fan-out.
	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("ExpireAndEscalate: %v", err)
	}

	assigned := 0
	escalations := 0
	for _, a := range store.byProspect(prospectID) {
		if a.Status == repository.StatusAssigned {
			assigned++
		}
		if a.Reason.Type == repository.ReasonEscalation {
			escalations++
		}
	}
	if assigned != 2 {
		t.Fatalf("assigned rows = %d, want 2 (fanout cap)", assigned)
	}
	if escalations != 1 {
		t.Fatalf("escalation rows = %d, want 1", escalations)
	}
}

func TestEscalationNoOpWhenWindowStillFull(t *testing.T) {
	store := newMemStore()
	bus := &captureBus{}
	b1, b2 := newBroker(), newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{b1, b2}, {newBroker()}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 2}, bus)

	prospectID := uuid.New()
	created, err := svc.CreateInitialAssignments(context.Background(), prospectID)
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	// Fanout shrinks to 1 while two offers are live. The expiry of one leaves
	// the window full, so escalation must not add a row and must not report
	// the prospect as unrouted.
	svc.params = fixedParams{p: params.SLAParameters{SLAMinutes: 5, FanoutCount: 1}}

	if err := svc.ExpireAndEscalate(context.Background(), created[0].ID); err != nil {
		t.Fatalf("ExpireAndEscalate: %v", err)
	}

	if got := len(store.byProspect(prospectID)); got != 2 {
		t.Fatalf("rows = %d, want 2 (no escalation row)", got)
	}
	if got := len(bus.byName(events.EscalationExhausted{}.EventName())); got != 0 {
		t.Errorf("EscalationExhausted events = %d, want 0", got)
	}
	if got := len(bus.byName(events.LeadEscalated{}.EventName())); got != 0 {
		t.Errorf("LeadEscalated events = %d, want 0", got)
	}
}

func TestAcceptAfterDeadlineRejected(t *testing.T) {
	store := newMemStore()
	only := newBroker()
	sel := &fakeSelector{queue: [][]brokers.Broker{{only}}}
	svc := newTestService(store, sel, params.SLAParameters{SLAMinutes: 5, FanoutCount: 1}, &captureBus{})

	created, err := svc.CreateInitialAssignments(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CreateInitialAssignments: %v", err)
	}

	// Move the service clock past the deadline; the row is still assigned but
	// no longer claimable.
	svc.now = func() time.Time { return created[0].Deadline.Add(time.Second) }

	_, err = svc.Accept(context.Background(), created[0].ID, created[0].BrokerID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected KindConflict past deadline, got %v", err)
	}
}
