package usecase

import (
	"context"
	"sync"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/notify"
	"marketplace-booking/pkg/utils"

	"github.com/google/uuid"
)

// memStore backs the in-memory repository fakes. One store is shared by all
// fakes of a test so the transactional semantics of CommitTransition can be
// exercised without a database.
type memStore struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*entity.Booking
	effects   map[uuid.UUID]*entity.Effect
	idemKeys  map[string]time.Time
	customers map[uuid.UUID]*entity.Customer
	providers map[uuid.UUID]*entity.Provider
	offerings map[uuid.UUID]*entity.ServiceOffering
	events    map[uuid.UUID]*entity.Event

	// failCommits makes that many CommitTransition calls lose the version
	// race before writes go through again.
	failCommits int
	commitCalls int
}

func newMemStore() *memStore {
	return &memStore{
		bookings:  make(map[uuid.UUID]*entity.Booking),
		effects:   make(map[uuid.UUID]*entity.Effect),
		idemKeys:  make(map[string]time.Time),
		customers: make(map[uuid.UUID]*entity.Customer),
		providers: make(map[uuid.UUID]*entity.Provider),
		offerings: make(map[uuid.UUID]*entity.ServiceOffering),
		events:    make(map[uuid.UUID]*entity.Event),
	}
}

func (s *memStore) putBooking(b *entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.bookings[b.ID] = &copied
}

func (s *memStore) getBooking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil
	}
	copied := *b
	return &copied
}

func (s *memStore) effectsByBooking(id uuid.UUID) []*entity.Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.Effect
	for _, e := range s.effects {
		if e.BookingID == id {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out
}

func (s *memStore) effectsByKind(id uuid.UUID, kind entity.EffectKind) []*entity.Effect {
	var out []*entity.Effect
	for _, e := range s.effectsByBooking(id) {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeBookingRepo struct{ store *memStore }

func (r *fakeBookingRepo) Create(_ context.Context, booking *entity.Booking) error {
	r.store.putBooking(booking)
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.store.getBooking(id), nil
}

func (r *fakeBookingRepo) FindByPaymentReference(_ context.Context, ref string) (*entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.bookings {
		if b.PaymentReference != nil && *b.PaymentReference == ref {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeBookingRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.store.bookings {
		if b.CustomerID == customerID {
			copied := *b
			out = append(out, &copied)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByCustomerID(_ context.Context, customerID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, b := range r.store.bookings {
		if b.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

// CommitTransition mirrors the transactional contract of the real
// repository: duplicate key short-circuits everything, a lost version race
// rolls the whole write back.
func (r *fakeBookingRepo) CommitTransition(_ context.Context, w repository.TransitionWrite) (bool, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.Idempotency != nil {
		if _, exists := s.idemKeys[w.Idempotency.Key]; exists {
			return false, true, nil
		}
	}

	s.commitCalls++
	current, ok := s.bookings[w.Booking.ID]
	if !ok || current.Version != w.ExpectedVersion || s.failCommits > 0 {
		if s.failCommits > 0 {
			s.failCommits--
		}
		return false, false, nil
	}

	if w.Idempotency != nil {
		s.idemKeys[w.Idempotency.Key] = w.Idempotency.CreatedAt
	}

	copied := *w.Booking
	s.bookings[w.Booking.ID] = &copied

	for _, kind := range w.ResolveKinds {
		for _, e := range s.effects {
			if e.BookingID == w.Booking.ID && e.Kind == kind &&
				(e.Status == entity.EffectStatusPending || e.Status == entity.EffectStatusDispatched) {
				e.Status = entity.EffectStatusResolved
			}
		}
	}

	for _, effect := range w.Effects {
		copied := *effect
		s.effects[effect.ID] = &copied
	}

	return true, false, nil
}

type fakeEffectRepo struct{ store *memStore }

func (r *fakeEffectRepo) CreateBatch(_ context.Context, effects []*entity.Effect) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, effect := range effects {
		copied := *effect
		r.store.effects[effect.ID] = &copied
	}
	return nil
}

func (r *fakeEffectRepo) HasUnresolved(_ context.Context, bookingID uuid.UUID, kind entity.EffectKind) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.effects {
		if e.BookingID == bookingID && e.Kind == kind &&
			(e.Status == entity.EffectStatusPending || e.Status == entity.EffectStatusDispatched) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEffectRepo) FindPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]*entity.Effect, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Effect
	for _, e := range r.store.effects {
		if e.Status == entity.EffectStatusPending && e.CreatedAt.Before(cutoff) {
			copied := *e
			out = append(out, &copied)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeEffectRepo) markStatus(id uuid.UUID, status entity.EffectStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if e, ok := r.store.effects[id]; ok {
		e.Status = status
		e.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeEffectRepo) MarkDispatched(_ context.Context, id uuid.UUID) error {
	return r.markStatus(id, entity.EffectStatusDispatched)
}

func (r *fakeEffectRepo) MarkResolved(_ context.Context, id uuid.UUID) error {
	return r.markStatus(id, entity.EffectStatusResolved)
}

func (r *fakeEffectRepo) MarkFailed(_ context.Context, id uuid.UUID) error {
	return r.markStatus(id, entity.EffectStatusFailed)
}

func (r *fakeEffectRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if e, ok := r.store.effects[id]; ok {
		e.Attempts++
	}
	return nil
}

type fakeIdempotencyRepo struct{ store *memStore }

func (r *fakeIdempotencyRepo) Exists(_ context.Context, key string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	_, ok := r.store.idemKeys[key]
	return ok, nil
}

func (r *fakeIdempotencyRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for key, createdAt := range r.store.idemKeys {
		if createdAt.Before(cutoff) {
			delete(r.store.idemKeys, key)
			n++
		}
	}
	return n, nil
}

type fakeCustomerRepo struct{ store *memStore }

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.customers[id], nil
}

type fakeProviderRepo struct{ store *memStore }

func (r *fakeProviderRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Provider, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.providers[id], nil
}

type fakeOfferingRepo struct {
	store   *memStore
	FindErr error
}

func (r *fakeOfferingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.ServiceOffering, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.offerings[id], nil
}

type fakeEventRepo struct {
	store   *memStore
	FindErr error
}

func (r *fakeEventRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Event, error) {
	if r.FindErr != nil {
		return nil, r.FindErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.events[id], nil
}

func newFakeRepository(store *memStore) *repository.Repository {
	return &repository.Repository{
		Booking:     &fakeBookingRepo{store: store},
		Effect:      &fakeEffectRepo{store: store},
		Idempotency: &fakeIdempotencyRepo{store: store},
		Customer:    &fakeCustomerRepo{store: store},
		Provider:    &fakeProviderRepo{store: store},
		Service:     &fakeOfferingRepo{store: store},
		Event:       &fakeEventRepo{store: store},
	}
}

// fakeGateway lets a test script capture and refund outcomes.
type fakeGateway struct {
	mu           sync.Mutex
	CaptureFunc  func(ref string, amount int64) (*gateway.CaptureResult, error)
	RefundFunc   func(ref string, amount int64) (*gateway.RefundResult, error)
	CaptureCalls int
	RefundCalls  int
}

func (g *fakeGateway) VerifyWebhook(_ []byte, _ string) (*gateway.PaymentEvent, error) {
	return nil, gateway.ErrBadSignature
}

func (g *fakeGateway) Capture(_ context.Context, ref string, amount int64) (*gateway.CaptureResult, error) {
	g.mu.Lock()
	g.CaptureCalls++
	g.mu.Unlock()
	if g.CaptureFunc != nil {
		return g.CaptureFunc(ref, amount)
	}
	return &gateway.CaptureResult{GatewayReference: ref, Amount: amount, PayloadHash: "capture-hash"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, ref string, amount int64) (*gateway.RefundResult, error) {
	g.mu.Lock()
	g.RefundCalls++
	g.mu.Unlock()
	if g.RefundFunc != nil {
		return g.RefundFunc(ref, amount)
	}
	return &gateway.RefundResult{GatewayReference: ref, Amount: amount, PayloadHash: "refund-hash"}, nil
}

// fakeNotifier records sent messages and can fail the first FailFirst sends.
type fakeNotifier struct {
	mu        sync.Mutex
	Sent      []notify.Message
	FailFirst int
	SendErr   error
	calls     int
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.SendErr != nil {
		return n.SendErr
	}
	if n.calls <= n.FailFirst {
		return errSendFailed
	}
	n.Sent = append(n.Sent, msg)
	return nil
}

var errSendFailed = &notifyError{}

type notifyError struct{}

func (e *notifyError) Error() string { return "smtp unavailable" }

func testReconcileConfig() utils.ReconcileConfig {
	return utils.ReconcileConfig{MaxAttempts: 3, BackoffMillis: 1}
}

// seedWorld fills the store with one customer, provider, offering and event
// and returns a pending booking referencing them.
func seedWorld(store *memStore) *entity.Booking {
	now := time.Now()
	customer := &entity.Customer{
		Base:  entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:  "Ayu Lestari",
		Email: "ayu@example.com",
	}
	provider := &entity.Provider{
		Base:  entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:  "Bima Catering",
		Email: "bima@example.com",
	}
	offering := &entity.ServiceOffering{
		Base:       entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ProviderID: provider.ID,
		Name:       "Full Buffet",
		Price:      250000,
		Currency:   "IDR",
	}
	event := &entity.Event{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Title:  "Garden Wedding",
		Venue:  "Taman Sari",
		HeldAt: now.Add(72 * time.Hour),
	}

	store.customers[customer.ID] = customer
	store.providers[provider.ID] = provider
	store.offerings[offering.ID] = offering
	store.events[event.ID] = event

	booking := &entity.Booking{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Reference:     "BOOK-20260901-120000-0001",
		CustomerID:    customer.ID,
		ServiceID:     offering.ID,
		EventID:       event.ID,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Amount:        offering.Price,
		Currency:      offering.Currency,
		StartTime:     now.Add(72 * time.Hour),
		EndTime:       now.Add(76 * time.Hour),
		Version:       0,
	}
	store.putBooking(booking)
	return booking
}
