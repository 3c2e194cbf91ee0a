package frontdesk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"frontdesk-service/internal/board"
	"frontdesk-service/internal/checkout"
	"frontdesk-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeskStore backs the whole orchestrator in memory. It stands in for
// *store.Store across every narrow interface the orchestrator's
// components consume.
type fakeDeskStore struct {
	mu       sync.Mutex
	order    []string
	groups   map[string]*models.AppointmentGroup
	services map[string][]models.ServiceLineItem
	payments []*models.Payment
	byKey    map[string]*models.Payment
	listErr  error
}

func newFakeDeskStore() *fakeDeskStore {
	return &fakeDeskStore{
		groups:   make(map[string]*models.AppointmentGroup),
		services: make(map[string][]models.ServiceLineItem),
		byKey:    make(map[string]*models.Payment),
	}
}

func (f *fakeDeskStore) seed(group models.AppointmentGroup, services ...models.ServiceLineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, group.ID)
	f.groups[group.ID] = &group
	f.services[group.ID] = services
}

func (f *fakeDeskStore) ListGroups(_ context.Context) ([]models.AppointmentGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.AppointmentGroup, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.groups[id])
	}
	return out, nil
}

func (f *fakeDeskStore) UpdateGroupStatus(_ context.Context, groupID string, status models.GroupStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return models.ErrGroupNotFound
	}
	g.Status = status
	return nil
}

func (f *fakeDeskStore) CreateWalkIn(_ context.Context, group *models.AppointmentGroup, services []models.ServiceLineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *group
	f.order = append(f.order, group.ID)
	f.groups[group.ID] = &copied
	f.services[group.ID] = services
	return nil
}

func (f *fakeDeskStore) FetchCheckoutSession(_ context.Context, groupIDs []string) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session := &models.CheckoutSession{GroupIDs: append([]string(nil), groupIDs...)}
	for _, id := range groupIDs {
		g, ok := f.groups[id]
		if !ok {
			return nil, models.ErrGroupNotFound
		}
		if session.ClientID == "" {
			session.ClientID = g.ClientID
			session.ClientName = g.ClientName
		} else if session.ClientID != g.ClientID {
			return nil, models.ErrMixedClients
		}
		session.Services = append(session.Services, f.services[id]...)
	}
	return session, nil
}

func (f *fakeDeskStore) AddServices(_ context.Context, groupID string, services []models.ServiceLineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[groupID]; !ok {
		return models.ErrGroupNotFound
	}
	f.services[groupID] = append(f.services[groupID], services...)
	return nil
}

func (f *fakeDeskStore) RemoveService(_ context.Context, _ string, serviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for gid, items := range f.services {
		for i, item := range items {
			if item.ID == serviceID {
				f.services[gid] = append(items[:i:i], items[i+1:]...)
				return nil
			}
		}
	}
	return models.ErrServiceNotFound
}

func (f *fakeDeskStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, payment)
	f.byKey[payment.IdempotencyKey] = payment
	return nil
}

func (f *fakeDeskStore) CreatePaymentProduct(_ context.Context, _ *models.PaymentProduct) error {
	return nil
}

func (f *fakeDeskStore) CompleteGroups(_ context.Context, groupIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range groupIDs {
		if g, ok := f.groups[id]; ok {
			g.Status = models.StatusCompleted
		}
	}
	return nil
}

func (f *fakeDeskStore) GetPaymentByIdempotencyKey(_ context.Context, key string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byKey[key], nil
}

type noopLocker struct{}

func (noopLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}
func (noopLocker) ReleaseLock(_ context.Context, _ string) error { return nil }

func newTestDesk(store *fakeDeskStore) *Orchestrator {
	boardStore := board.NewStore()
	controller := board.NewController(boardStore, store, nil, "terminal-test")
	aggregator := checkout.NewAggregator(store)
	payments := checkout.NewPaymentService(store, noopLocker{}, nil, "terminal-test", time.Minute)
	return NewOrchestrator(boardStore, controller, aggregator, payments,
		store, nil, nil, store, "terminal-test", []int{0, 10, 15, 18, 20, 25}, time.Minute)
}

func seedService(id, name, price string) models.ServiceLineItem {
	return models.ServiceLineItem{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestContractColumnsCoverAllStatuses(t *testing.T) {
	desk := newTestDesk(newFakeDeskStore())
	contract := desk.Contract()

	require.Len(t, contract.Columns, len(board.CanonicalFlow))
	for i, status := range board.CanonicalFlow {
		assert.Equal(t, status, contract.Columns[i].Status)
	}
	assert.Equal(t, "application/json", contract.DragPayload.ContentType)
	assert.Equal(t, []int{0, 10, 15, 18, 20, 25}, contract.TipPresets)
}

func TestContractShortcuts(t *testing.T) {
	keys := make([]string, 0)
	for _, s := range Shortcuts() {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"A", "C", "ESC", "?"}, keys)
}

func TestLoadBoardReplacesLocalState(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusScheduled})
	store.seed(models.AppointmentGroup{ID: "g2", ClientID: "c2", Status: models.StatusArrived})
	desk := newTestDesk(store)

	groups, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.Equal(t, 2, desk.Board.Len())
}

type fakeSnapshotCache struct {
	snapshot []models.AppointmentGroup
	stores   int
}

func (f *fakeSnapshotCache) CacheBoardSnapshot(_ context.Context, groups []models.AppointmentGroup, _ time.Duration) error {
	f.snapshot = append([]models.AppointmentGroup(nil), groups...)
	f.stores++
	return nil
}

func (f *fakeSnapshotCache) GetBoardSnapshot(_ context.Context) ([]models.AppointmentGroup, error) {
	return f.snapshot, nil
}

func TestLoadBoardFallsBackToSnapshot(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusScheduled})
	cache := &fakeSnapshotCache{}

	boardStore := board.NewStore()
	controller := board.NewController(boardStore, store, nil, "terminal-test")
	aggregator := checkout.NewAggregator(store)
	payments := checkout.NewPaymentService(store, noopLocker{}, nil, "terminal-test", time.Minute)
	desk := NewOrchestrator(boardStore, controller, aggregator, payments,
		store, cache, nil, store, "terminal-test", []int{0, 10, 15, 18, 20, 25}, time.Minute)

	// A successful load populates the cache.
	_, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.stores)

	// With the database down the cached snapshot still renders.
	store.mu.Lock()
	store.listErr = errors.New("connection refused")
	store.mu.Unlock()

	groups, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].ID)
}

func TestTotalsWithoutSession(t *testing.T) {
	desk := newTestDesk(newFakeDeskStore())

	_, err := desk.Totals(&TotalsRequest{})
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestTotalsForActiveSession(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"), seedService("s2", "Color", "30"))
	desk := newTestDesk(store)

	_, err := desk.OpenCheckout(context.Background(), []string{"g1"})
	require.NoError(t, err)

	breakdown, err := desk.Totals(&TotalsRequest{
		DiscountPercentage: decimal.RequireFromString("10"),
		TipPercentage:      decimal.RequireFromString("18"),
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("80").Equal(breakdown.Subtotal))
	assert.True(t, decimal.RequireFromString("8").Equal(breakdown.DiscountAmount))
	assert.True(t, decimal.RequireFromString("12.96").Equal(breakdown.TipAmount))
	assert.True(t, decimal.RequireFromString("84.96").Equal(breakdown.Total))
}

func TestMinimizeRestoreLifecycle(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"))
	desk := newTestDesk(store)

	// Minimizing without a session is a no-op.
	desk.MinimizeCheckout()
	assert.False(t, desk.CheckoutMinimized())

	_, err := desk.OpenCheckout(context.Background(), []string{"g1"})
	require.NoError(t, err)

	desk.MinimizeCheckout()
	assert.True(t, desk.CheckoutMinimized())
	assert.NotNil(t, desk.Aggregator.Session(), "minimize keeps the session alive")

	desk.RestoreCheckout()
	assert.False(t, desk.CheckoutMinimized())

	desk.CloseCheckout()
	assert.Nil(t, desk.Aggregator.Session())
	assert.False(t, desk.CheckoutMinimized())
}

func TestReadyToPayOpensCheckout(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusInService},
		seedService("s1", "Cut", "50"))
	desk := newTestDesk(store)

	_, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)

	err = desk.Controller.RequestTransition(context.Background(), "g1", models.StatusReadyToPay)
	require.NoError(t, err)

	// The hook runs off the transition path.
	assert.Eventually(t, func() bool {
		session := desk.Aggregator.Session()
		return session != nil && len(session.GroupIDs) == 1 && session.GroupIDs[0] == "g1"
	}, time.Second, 10*time.Millisecond)
}

func TestSettlePaymentCompletesGroupsAndClosesSession(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"))
	store.seed(models.AppointmentGroup{ID: "g2", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s2", "Color", "30"))
	desk := newTestDesk(store)

	_, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)
	_, err = desk.OpenCheckout(context.Background(), []string{"g1", "g2"})
	require.NoError(t, err)

	payment, err := desk.SettlePayment(context.Background(), &checkout.PaymentRequest{
		GroupIDs:      []string{"g1", "g2"},
		Subtotal:      decimal.RequireFromString("80"),
		TotalAmount:   decimal.RequireFromString("80"),
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)

	for _, id := range []string{"g1", "g2"} {
		g, ok := desk.Board.Get(id)
		require.True(t, ok)
		assert.Equal(t, models.StatusCompleted, g.Status)
	}
	assert.Nil(t, desk.Aggregator.Session(), "session covering the paid set closes")
}

func TestSettlePaymentKeepsUnrelatedSession(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"))
	store.seed(models.AppointmentGroup{ID: "g2", ClientID: "c2", Status: models.StatusReadyToPay},
		seedService("s2", "Color", "30"))
	desk := newTestDesk(store)

	_, err := desk.LoadBoard(context.Background())
	require.NoError(t, err)
	_, err = desk.OpenCheckout(context.Background(), []string{"g1"})
	require.NoError(t, err)

	_, err = desk.SettlePayment(context.Background(), &checkout.PaymentRequest{
		GroupIDs:      []string{"g2"},
		TotalAmount:   decimal.RequireFromString("30"),
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.NotNil(t, desk.Aggregator.Session(), "paying another group leaves the session open")
}

func TestAddServicesToGroupResyncsSession(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"))
	desk := newTestDesk(store)

	_, err := desk.OpenCheckout(context.Background(), []string{"g1"})
	require.NoError(t, err)

	session, err := desk.AddServicesToGroup(context.Background(), "g1",
		[]models.ServiceLineItem{seedService("", "Blowout", "40")})
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Len(t, session.Services, 2)
}

func TestRemoveGroupServiceOutsideSession(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusScheduled},
		seedService("s1", "Cut", "50"))
	desk := newTestDesk(store)

	session, err := desk.RemoveGroupService(context.Background(), "g1", "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, store.services["g1"])
}

func TestRemoveLastServiceDismissesCheckout(t *testing.T) {
	store := newFakeDeskStore()
	store.seed(models.AppointmentGroup{ID: "g1", ClientID: "c1", Status: models.StatusReadyToPay},
		seedService("s1", "Cut", "50"))
	desk := newTestDesk(store)

	_, err := desk.OpenCheckout(context.Background(), []string{"g1"})
	require.NoError(t, err)
	desk.MinimizeCheckout()

	session, err := desk.RemoveGroupService(context.Background(), "g1", "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, desk.Aggregator.Session())
	assert.False(t, desk.CheckoutMinimized())
}
