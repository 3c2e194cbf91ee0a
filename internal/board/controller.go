package board

import (
	"context"
	"errors"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the persistence surface the controller reconciles against.
// Satisfied by *store.Store; narrow interface for testability.
type Backend interface {
	UpdateGroupStatus(ctx context.Context, groupID string, status models.GroupStatus) error
	CreateWalkIn(ctx context.Context, group *models.AppointmentGroup, services []models.ServiceLineItem) error
}

// EventSink publishes board events for other terminals. Satisfied by
// *broker.EventPublisher.
type EventSink interface {
	PublishGroupStatusChanged(ctx context.Context, event *models.GroupStatusChangedEvent) error
	PublishWalkInCreated(ctx context.Context, event *models.WalkInCreatedEvent) error
}

// Controller enforces status transitions and keeps the in-memory board
// consistent with persisted state under optimistic updates.
type Controller struct {
	board      *Store
	backend    Backend
	events     EventSink
	terminalID string
	logger     *zap.Logger

	// onReadyToPay opens a checkout session for the group; invoked
	// without blocking the status write.
	onReadyToPay func(groupID string)
}

// NewController creates a new status transition controller
func NewController(board *Store, backend Backend, events EventSink, terminalID string) *Controller {
	return &Controller{
		board:      board,
		backend:    backend,
		events:     events,
		terminalID: terminalID,
		logger:     util.GetLogger(),
	}
}

// SetReadyToPayHook registers the checkout-open side effect for
// transitions targeting READY_TO_PAY.
func (c *Controller) SetReadyToPayHook(fn func(groupID string)) {
	c.onReadyToPay = fn
}

// RequestTransition moves a group to the target status. The new status
// is applied locally first, then persisted; on persistence failure the
// local status reverts and the caller gets a retryable error.
// A transition to the group's current status is a silent no-op.
func (c *Controller) RequestTransition(ctx context.Context, groupID string, target models.GroupStatus) error {
	ctx, span := util.StartSpan(ctx, "Controller.RequestTransition")
	defer span.End()

	group, ok := c.board.Get(groupID)
	if !ok {
		return models.ErrGroupNotFound
	}

	if err := ValidateTransition(group.Status, target); err != nil {
		if errors.Is(err, ErrSameStatus) {
			return nil
		}
		return err
	}

	if target == models.StatusReadyToPay && c.onReadyToPay != nil {
		// Checkout must open without waiting on the status write.
		go c.onReadyToPay(groupID)
	}

	prev := group.Status
	err := run(ctx, command{
		op: "status transition",
		apply: func() {
			c.board.UpsertStatus(groupID, target)
		},
		persist: func(ctx context.Context) error {
			return c.backend.UpdateGroupStatus(ctx, groupID, target)
		},
		rollback: func() {
			c.board.UpsertStatus(groupID, prev)
		},
	}, c.logger)
	if err != nil {
		util.TransitionRollbacksTotal.WithLabelValues("persist_failed").Inc()
		return err
	}

	util.TransitionsTotal.WithLabelValues(string(target)).Inc()
	c.logger.Info("Group status changed",
		zap.String("group_id", groupID),
		zap.String("from", string(prev)),
		zap.String("to", string(target)))

	c.publishStatusChanged(ctx, groupID, prev, target)
	return nil
}

// AdvanceInFlow moves a group one step along the canonical flow. Backs
// the board's "advance card" convenience actions.
func (c *Controller) AdvanceInFlow(ctx context.Context, groupID string) error {
	group, ok := c.board.Get(groupID)
	if !ok {
		return models.ErrGroupNotFound
	}

	next, ok := NextInFlow(group.Status)
	if !ok {
		return nil
	}
	return c.RequestTransition(ctx, groupID, next)
}

// WalkInRequest describes an ad hoc appointment group for a client
// without a prior booking.
type WalkInRequest struct {
	ClientID   string                   `json:"client_id" binding:"required"`
	ClientName string                   `json:"client_name" binding:"required"`
	Services   []models.ServiceLineItem `json:"services"`
	StartTime  time.Time                `json:"start_time"`
}

// CreateWalkIn creates a new appointment group directly in WALK_IN and
// makes it appear on the board without a full reload.
func (c *Controller) CreateWalkIn(ctx context.Context, req *WalkInRequest) (*models.AppointmentGroup, error) {
	ctx, span := util.StartSpan(ctx, "Controller.CreateWalkIn")
	defer span.End()

	start := req.StartTime
	if start.IsZero() {
		start = time.Now()
	}

	group := &models.AppointmentGroup{
		ID:         uuid.New().String(),
		ClientID:   req.ClientID,
		ClientName: req.ClientName,
		Status:     models.StatusWalkIn,
		StartTime:  start,
	}
	for i := range req.Services {
		svc := &req.Services[i]
		if svc.ID == "" {
			svc.ID = uuid.New().String()
		}
		svc.GroupID = group.ID
		if i > 0 {
			group.ServiceNames += ", "
		}
		group.ServiceNames += svc.Name
		group.TotalPrice = group.TotalPrice.Add(svc.Price)
		group.TotalDurationMinutes += svc.DurationMinutes
	}

	if err := c.backend.CreateWalkIn(ctx, group, req.Services); err != nil {
		return nil, err
	}

	c.board.Insert(*group)
	util.WalkInsCreatedTotal.Inc()
	c.logger.Info("Walk-in created",
		zap.String("group_id", group.ID),
		zap.String("client_id", group.ClientID))

	if c.events != nil {
		event := &models.WalkInCreatedEvent{
			BaseEvent: c.baseEvent(models.EventTypeWalkInCreated),
			Group:     *group,
		}
		if err := c.events.PublishWalkInCreated(ctx, event); err != nil {
			c.logger.Error("Failed to publish WalkInCreated event", zap.Error(err))
		}
	}

	return group, nil
}

func (c *Controller) publishStatusChanged(ctx context.Context, groupID string, from, to models.GroupStatus) {
	if c.events == nil {
		return
	}

	event := &models.GroupStatusChangedEvent{
		BaseEvent:  c.baseEvent(models.EventTypeGroupStatusChanged),
		GroupID:    groupID,
		FromStatus: from,
		ToStatus:   to,
	}
	if err := c.events.PublishGroupStatusChanged(ctx, event); err != nil {
		c.logger.Error("Failed to publish GroupStatusChanged event", zap.Error(err))
	}
}

func (c *Controller) baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		TerminalID: c.terminalID,
		Timestamp:  time.Now(),
	}
}
