package frontdesk

import (
	"context"
	"sync"
	"time"

	"frontdesk-service/internal/board"
	"frontdesk-service/internal/checkout"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BoardLoader provides the full board snapshot. Satisfied by
// *store.Store.
type BoardLoader interface {
	ListGroups(ctx context.Context) ([]models.AppointmentGroup, error)
}

// SnapshotCache caches the last loaded board. Satisfied by
// *redisclient.Client; optional.
type SnapshotCache interface {
	CacheBoardSnapshot(ctx context.Context, groups []models.AppointmentGroup, ttl time.Duration) error
	GetBoardSnapshot(ctx context.Context) ([]models.AppointmentGroup, error)
}

// CheckoutEvents publishes checkout lifecycle events. Satisfied by
// *broker.EventPublisher; optional.
type CheckoutEvents interface {
	PublishCheckoutOpened(ctx context.Context, event *models.CheckoutOpenedEvent) error
}

// ServiceWriter persists service line-item changes on a group.
// Satisfied by *store.Store.
type ServiceWriter interface {
	AddServices(ctx context.Context, groupID string, services []models.ServiceLineItem) error
	RemoveService(ctx context.Context, groupID, serviceID string) error
}

// Orchestrator composes the board store, transition controller, checkout
// aggregator, totals calculator and payment service behind the front
// desk's operation surface. It owns the checkout UI lifecycle: at most
// one active session, which can be minimized without being discarded.
type Orchestrator struct {
	Board      *board.Store
	Controller *board.Controller
	Aggregator *checkout.Aggregator
	Payments   *checkout.PaymentService

	loader     BoardLoader
	cache      SnapshotCache
	events     CheckoutEvents
	services   ServiceWriter
	terminalID string
	tipPresets []int
	cacheTTL   time.Duration
	logger     *zap.Logger

	mu        sync.Mutex
	minimized bool
}

// NewOrchestrator wires the front-desk components together and installs
// the READY_TO_PAY hook: a transition into that column opens checkout
// for the group without blocking on the status write.
func NewOrchestrator(
	boardStore *board.Store,
	controller *board.Controller,
	aggregator *checkout.Aggregator,
	payments *checkout.PaymentService,
	loader BoardLoader,
	cache SnapshotCache,
	events CheckoutEvents,
	services ServiceWriter,
	terminalID string,
	tipPresets []int,
	cacheTTL time.Duration,
) *Orchestrator {
	o := &Orchestrator{
		Board:      boardStore,
		Controller: controller,
		Aggregator: aggregator,
		Payments:   payments,
		loader:     loader,
		cache:      cache,
		events:     events,
		services:   services,
		terminalID: terminalID,
		tipPresets: tipPresets,
		cacheTTL:   cacheTTL,
		logger:     util.GetLogger(),
	}

	controller.SetReadyToPayHook(func(groupID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := o.OpenCheckout(ctx, []string{groupID}); err != nil {
			o.logger.Warn("Failed to open checkout for READY_TO_PAY group",
				zap.String("group_id", groupID),
				zap.Error(err))
		}
	})

	return o
}

// LoadBoard replaces the in-memory board with a fresh snapshot. When the
// database is unreachable the last cached snapshot keeps the board
// rendering until the next successful load.
func (o *Orchestrator) LoadBoard(ctx context.Context) ([]models.AppointmentGroup, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.LoadBoard")
	defer span.End()

	groups, err := o.loader.ListGroups(ctx)
	if err != nil {
		if o.cache != nil {
			cached, cacheErr := o.cache.GetBoardSnapshot(ctx)
			if cacheErr == nil && cached != nil {
				o.logger.Warn("Board load failed, serving cached snapshot", zap.Error(err))
				o.Board.Load(cached)
				return cached, nil
			}
		}
		return nil, err
	}

	o.Board.Load(groups)

	if o.cache != nil {
		if err := o.cache.CacheBoardSnapshot(ctx, groups, o.cacheTTL); err != nil {
			o.logger.Warn("Failed to cache board snapshot", zap.Error(err))
		}
	}

	return groups, nil
}

// OpenCheckout opens (or reopens) the checkout session for the given
// group set and restores the checkout surface from a minimized state.
func (o *Orchestrator) OpenCheckout(ctx context.Context, groupIDs []string) (*models.CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.OpenCheckout")
	defer span.End()

	session, err := o.Aggregator.Open(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.minimized = false
	o.mu.Unlock()

	if o.events != nil {
		event := &models.CheckoutOpenedEvent{
			BaseEvent: models.BaseEvent{
				EventID:    uuid.New().String(),
				EventType:  models.EventTypeCheckoutOpened,
				TerminalID: o.terminalID,
				Timestamp:  time.Now(),
			},
			GroupIDs: session.GroupIDs,
			ClientID: session.ClientID,
		}
		if err := o.events.PublishCheckoutOpened(ctx, event); err != nil {
			o.logger.Error("Failed to publish CheckoutOpened event", zap.Error(err))
		}
	}

	return session, nil
}

// AddGroupToCheckout merges another group into the active session
func (o *Orchestrator) AddGroupToCheckout(ctx context.Context, groupID string) (*models.CheckoutSession, error) {
	return o.Aggregator.AddGroup(ctx, groupID)
}

// RemoveServiceFromCheckout removes a line item. When the removal empties
// the session, checkout is dismissed and (nil, nil) is returned.
func (o *Orchestrator) RemoveServiceFromCheckout(ctx context.Context, serviceID string) (*models.CheckoutSession, error) {
	session, err := o.Aggregator.RemoveService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		o.mu.Lock()
		o.minimized = false
		o.mu.Unlock()
	}
	return session, nil
}

// CloseCheckout discards the active session without touching statuses
func (o *Orchestrator) CloseCheckout() {
	o.Aggregator.Close()
	o.mu.Lock()
	o.minimized = false
	o.mu.Unlock()
}

// MinimizeCheckout hides the checkout surface, keeping the session alive
func (o *Orchestrator) MinimizeCheckout() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Aggregator.Session() != nil {
		o.minimized = true
	}
}

// RestoreCheckout brings a minimized checkout surface back
func (o *Orchestrator) RestoreCheckout() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.minimized = false
}

// CheckoutMinimized reports whether the active session is minimized
func (o *Orchestrator) CheckoutMinimized() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.minimized
}

// TotalsRequest carries the live discount/tip inputs from the checkout
// surface.
type TotalsRequest struct {
	AdditionalProducts  []models.AdditionalProduct `json:"additional_products"`
	DiscountPercentage  decimal.Decimal            `json:"discount_percentage"`
	DiscountAmountFixed decimal.Decimal            `json:"discount_amount_fixed"`
	TipPercentage       decimal.Decimal            `json:"tip_percentage"`
	TipAmountFixed      decimal.Decimal            `json:"tip_amount_fixed"`
}

// Totals computes the breakdown for the active session with the given
// inputs. Pure with respect to the session's current line items.
func (o *Orchestrator) Totals(req *TotalsRequest) (*checkout.TotalsBreakdown, error) {
	session := o.Aggregator.Session()
	if session == nil {
		return nil, models.ErrNoActiveSession
	}

	tipPct, _ := checkout.SnapTipPercentage(o.tipPresets, req.TipPercentage)
	breakdown := checkout.ComputeTotals(checkout.TotalsInput{
		Services:            session.Services,
		AdditionalProducts:  req.AdditionalProducts,
		DiscountPercentage:  req.DiscountPercentage,
		DiscountAmountFixed: req.DiscountAmountFixed,
		TipPercentage:       tipPct,
		TipAmountFixed:      req.TipAmountFixed,
	})
	return &breakdown, nil
}

// SettlePayment submits a payment for a group set, moves every paid
// group to COMPLETED on the local board, and destroys the active session
// when it covers the same groups.
func (o *Orchestrator) SettlePayment(ctx context.Context, req *checkout.PaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.SettlePayment")
	defer span.End()

	payment, err := o.Payments.SubmitPayment(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, groupID := range req.GroupIDs {
		o.Board.UpsertStatus(groupID, models.StatusCompleted)
	}

	if session := o.Aggregator.Session(); session != nil && sameIDSet(session.GroupIDs, req.GroupIDs) {
		o.CloseCheckout()
	}

	o.logger.Info("Checkout settled",
		zap.String("payment_id", payment.ID),
		zap.Int("groups", len(req.GroupIDs)))

	return payment, nil
}

// AddServicesToGroup persists new service line items on a group, then
// resyncs the active session if it tracks that group. The returned
// session is nil when no active session was affected.
func (o *Orchestrator) AddServicesToGroup(ctx context.Context, groupID string, services []models.ServiceLineItem) (*models.CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.AddServicesToGroup")
	defer span.End()

	for i := range services {
		if services[i].ID == "" {
			services[i].ID = uuid.New().String()
		}
		services[i].GroupID = groupID
	}

	if err := o.services.AddServices(ctx, groupID, services); err != nil {
		return nil, err
	}

	if session := o.Aggregator.Session(); session != nil && contains(session.GroupIDs, groupID) {
		return o.Aggregator.Open(ctx, session.GroupIDs)
	}
	return nil, nil
}

// RemoveGroupService removes one service line item. When the active
// session tracks the group, the removal goes through the aggregator so
// the session resyncs (and closes if it empties); otherwise it is a
// plain persistence delete.
func (o *Orchestrator) RemoveGroupService(ctx context.Context, groupID, serviceID string) (*models.CheckoutSession, error) {
	ctx, span := util.StartSpan(ctx, "Orchestrator.RemoveGroupService")
	defer span.End()

	if session := o.Aggregator.Session(); session != nil && contains(session.GroupIDs, groupID) {
		return o.RemoveServiceFromCheckout(ctx, serviceID)
	}
	return nil, o.services.RemoveService(ctx, groupID, serviceID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
