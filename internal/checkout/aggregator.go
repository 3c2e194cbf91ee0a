package checkout

import (
	"context"
	"sync"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"go.uber.org/zap"
)

// SessionBackend is the authoritative source of merged checkout
// sessions. Satisfied by *store.Store; narrow interface for testability.
type SessionBackend interface {
	FetchCheckoutSession(ctx context.Context, groupIDs []string) (*models.CheckoutSession, error)
	RemoveService(ctx context.Context, groupID, serviceID string) error
}

// Aggregator combines one or more appointment groups into a single
// payable session. It never patches line items locally: every mutation
// is followed by a full refetch keyed by the complete group id set, so
// the session can never drift from backend truth. A monotonic sequence
// per session discards refetch responses that a later mutation has
// already superseded.
type Aggregator struct {
	backend SessionBackend
	logger  *zap.Logger

	mu       sync.Mutex
	groupIDs []string
	session  *models.CheckoutSession
	seq      uint64
}

// NewAggregator creates a checkout session aggregator
func NewAggregator(backend SessionBackend) *Aggregator {
	return &Aggregator{
		backend: backend,
		logger:  util.GetLogger(),
	}
}

// Open starts (or restarts) a session for exactly the given group id
// set. The set must be non-empty; duplicates collapse while keeping
// first-seen order.
func (a *Aggregator) Open(ctx context.Context, groupIDs []string) (*models.CheckoutSession, error) {
	if len(groupIDs) == 0 {
		return nil, models.ErrEmptyGroupSet
	}

	a.mu.Lock()
	a.groupIDs = dedupe(groupIDs)
	ids := append([]string(nil), a.groupIDs...)
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	return a.refetch(ctx, ids, seq)
}

// AddGroup appends a group to the session's tracked id set (idempotent)
// and rebuilds the session from a fresh full fetch.
func (a *Aggregator) AddGroup(ctx context.Context, groupID string) (*models.CheckoutSession, error) {
	a.mu.Lock()
	if len(a.groupIDs) == 0 {
		a.mu.Unlock()
		return nil, models.ErrNoActiveSession
	}
	if !contains(a.groupIDs, groupID) {
		a.groupIDs = append(a.groupIDs, groupID)
	}
	ids := append([]string(nil), a.groupIDs...)
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	return a.refetch(ctx, ids, seq)
}

// RemoveService removes one line item and resyncs. The first tracked
// group is treated as the owning group for the removal; this mirrors the
// front desk's single-client merge, where group attribution of a removal
// does not change the payable set.
// A removal that empties the session closes it: the returned session is
// nil and subsequent reads report no active session.
func (a *Aggregator) RemoveService(ctx context.Context, serviceID string) (*models.CheckoutSession, error) {
	a.mu.Lock()
	if len(a.groupIDs) == 0 {
		a.mu.Unlock()
		return nil, models.ErrNoActiveSession
	}
	owner := a.groupIDs[0]
	a.mu.Unlock()

	if err := a.backend.RemoveService(ctx, owner, serviceID); err != nil {
		return nil, err
	}

	// The tracked set may have changed while the removal was in flight;
	// the refetch must cover the current set, not a pre-removal snapshot.
	a.mu.Lock()
	if len(a.groupIDs) == 0 {
		a.mu.Unlock()
		return nil, nil
	}
	ids := append([]string(nil), a.groupIDs...)
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	session, err := a.refetch(ctx, ids, seq)
	if err != nil {
		return nil, err
	}
	if session != nil && len(session.Services) == 0 {
		a.Close()
		return nil, nil
	}
	return session, nil
}

// Session returns a copy of the current session, or nil when none is
// active.
func (a *Aggregator) Session() *models.CheckoutSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	copied := *a.session
	copied.GroupIDs = append([]string(nil), a.session.GroupIDs...)
	copied.Services = append([]models.ServiceLineItem(nil), a.session.Services...)
	return &copied
}

// Close discards the session. Group statuses are untouched.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.groupIDs = nil
	a.session = nil
	a.seq++ // invalidates any in-flight refetch
}

// refetch pulls the authoritative session for the id set and installs it
// unless a later mutation has already moved the sequence on.
func (a *Aggregator) refetch(ctx context.Context, ids []string, seq uint64) (*models.CheckoutSession, error) {
	start := time.Now()
	session, err := a.backend.FetchCheckoutSession(ctx, ids)
	util.CheckoutRefetchLatency.Observe(time.Since(start).Seconds())

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		util.StaleResponsesDiscarded.Inc()
		a.logger.Debug("Discarding superseded checkout fetch",
			zap.Strings("group_ids", ids))
		return a.session, nil
	}
	if err != nil {
		return nil, err
	}

	a.session = session
	util.CheckoutSessionsOpenedTotal.Inc()
	return session, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
