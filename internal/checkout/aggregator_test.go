package checkout

import (
	"context"
	"sync"
	"testing"

	"frontdesk-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessionBackend struct {
	mu       sync.Mutex
	clients  map[string]string                   // groupID -> clientID
	services map[string][]models.ServiceLineItem // groupID -> line items
	onFetch  func(groupIDs []string)             // called before each fetch, outside the lock
	onRemove func()                              // called before each removal, outside the lock
	removed  [][2]string                         // recorded (groupID, serviceID) pairs
}

func newFakeSessionBackend() *fakeSessionBackend {
	return &fakeSessionBackend{
		clients:  make(map[string]string),
		services: make(map[string][]models.ServiceLineItem),
	}
}

func (f *fakeSessionBackend) addGroup(groupID, clientID string, services ...models.ServiceLineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[groupID] = clientID
	f.services[groupID] = services
}

func (f *fakeSessionBackend) FetchCheckoutSession(_ context.Context, groupIDs []string) (*models.CheckoutSession, error) {
	if f.onFetch != nil {
		f.onFetch(groupIDs)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	session := &models.CheckoutSession{GroupIDs: append([]string(nil), groupIDs...)}
	for _, id := range groupIDs {
		clientID, ok := f.clients[id]
		if !ok {
			return nil, models.ErrGroupNotFound
		}
		if session.ClientID == "" {
			session.ClientID = clientID
		} else if session.ClientID != clientID {
			return nil, models.ErrMixedClients
		}
		session.Services = append(session.Services, f.services[id]...)
	}
	return session, nil
}

func (f *fakeSessionBackend) RemoveService(_ context.Context, groupID, serviceID string) error {
	if f.onRemove != nil {
		f.onRemove()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, [2]string{groupID, serviceID})
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

func lineItem(id, name, price string) models.ServiceLineItem {
	return models.ServiceLineItem{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestOpenEmptyGroupSet(t *testing.T) {
	a := NewAggregator(newFakeSessionBackend())

	_, err := a.Open(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrEmptyGroupSet)
	assert.Nil(t, a.Session())
}

func TestOpenSingleGroup(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	a := NewAggregator(backend)

	session, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, session.GroupIDs)
	assert.Equal(t, "c1", session.ClientID)
	require.Len(t, session.Services, 1)
}

func TestOpenDeduplicatesGroupIDs(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	backend.addGroup("g2", "c1", lineItem("s2", "Color", "90"))
	a := NewAggregator(backend)

	session, err := a.Open(context.Background(), []string{"g1", "g2", "g1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, session.GroupIDs)
	assert.Len(t, session.Services, 2)
}

func TestMergeEquivalence(t *testing.T) {
	// Opening on a set and growing into it via AddGroup must land on the
	// same session.
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	backend.addGroup("g2", "c1", lineItem("s2", "Color", "90"))

	direct := NewAggregator(backend)
	directSession, err := direct.Open(context.Background(), []string{"g1", "g2"})
	require.NoError(t, err)

	grown := NewAggregator(backend)
	_, err = grown.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)
	grownSession, err := grown.AddGroup(context.Background(), "g2")
	require.NoError(t, err)

	assert.Equal(t, directSession.GroupIDs, grownSession.GroupIDs)
	assert.Equal(t, directSession.ClientID, grownSession.ClientID)
	require.Len(t, grownSession.Services, len(directSession.Services))
	for i := range directSession.Services {
		assert.Equal(t, directSession.Services[i].ID, grownSession.Services[i].ID)
	}
}

func TestAddGroupIdempotent(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	backend.addGroup("g2", "c1", lineItem("s2", "Color", "90"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1", "g2"})
	require.NoError(t, err)

	session, err := a.AddGroup(context.Background(), "g2")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, session.GroupIDs)
	assert.Len(t, session.Services, 2)
}

func TestAddGroupWithoutSession(t *testing.T) {
	a := NewAggregator(newFakeSessionBackend())

	_, err := a.AddGroup(context.Background(), "g1")
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestMixedClientsRejected(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	backend.addGroup("g2", "c2", lineItem("s2", "Color", "90"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	_, err = a.AddGroup(context.Background(), "g2")
	assert.ErrorIs(t, err, models.ErrMixedClients)
}

func TestRemoveServiceResyncs(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"), lineItem("s2", "Color", "90"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	session, err := a.RemoveService(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, session.Services, 1)
	assert.Equal(t, "s2", session.Services[0].ID)
	require.Len(t, backend.removed, 1)
	assert.Equal(t, [2]string{"g1", "s1"}, backend.removed[0])
}

func TestRemoveServiceRefetchesCurrentGroupSet(t *testing.T) {
	// A merge landing while a removal is in flight must be reflected in
	// the removal's refetch: the session always covers the current
	// tracked set.
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"), lineItem("s2", "Color", "90"))
	backend.addGroup("g2", "c1", lineItem("s3", "Blowout", "40"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	backend.onRemove = func() {
		close(started)
		<-release
	}

	removeErrCh := make(chan error, 1)
	go func() {
		_, removeErr := a.RemoveService(context.Background(), "s1")
		removeErrCh <- removeErr
	}()

	<-started
	_, err = a.AddGroup(context.Background(), "g2")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-removeErrCh)

	session := a.Session()
	require.NotNil(t, session)
	assert.Equal(t, []string{"g1", "g2"}, session.GroupIDs)

	ids := make([]string, 0, len(session.Services))
	for _, svc := range session.Services {
		ids = append(ids, svc.ID)
	}
	assert.ElementsMatch(t, []string{"s2", "s3"}, ids)
}

func TestRemoveLastServiceClosesSession(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	session, err := a.RemoveService(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Nil(t, a.Session())

	_, err = a.RemoveService(context.Background(), "s1")
	assert.ErrorIs(t, err, models.ErrNoActiveSession)
}

func TestStaleFetchDiscarded(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	backend.addGroup("g2", "c1", lineItem("s2", "Color", "90"))

	a := NewAggregator(backend)
	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	// Stall the first AddGroup's fetch until a second mutation has bumped
	// the sequence past it. Only the first fetch takes the stall token;
	// later fetches must not block.
	started := make(chan struct{})
	release := make(chan struct{})
	stall := make(chan struct{}, 1)
	stall <- struct{}{}
	backend.onFetch = func(groupIDs []string) {
		select {
		case <-stall:
			close(started)
			<-release
		default:
		}
	}

	addErrCh := make(chan error, 1)
	go func() {
		_, addErr := a.AddGroup(context.Background(), "g2")
		addErrCh <- addErr
	}()

	<-started
	a.Close()
	fresh, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)
	close(release)

	require.NoError(t, <-addErrCh)
	// The superseded response must not clobber the newer session.
	current := a.Session()
	require.NotNil(t, current)
	assert.Equal(t, []string{"g1"}, current.GroupIDs)
	assert.Equal(t, fresh.GroupIDs, current.GroupIDs)
}

func TestSessionReturnsCopy(t *testing.T) {
	backend := newFakeSessionBackend()
	backend.addGroup("g1", "c1", lineItem("s1", "Cut", "50"))
	a := NewAggregator(backend)

	_, err := a.Open(context.Background(), []string{"g1"})
	require.NoError(t, err)

	first := a.Session()
	first.GroupIDs[0] = "mutated"
	first.Services[0].Name = "mutated"

	second := a.Session()
	assert.Equal(t, "g1", second.GroupIDs[0])
	assert.Equal(t, "Cut", second.Services[0].Name)
}
