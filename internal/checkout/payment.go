package checkout

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrPaymentInFlight indicates another terminal is already submitting a
// payment for the same checkout session.
var ErrPaymentInFlight = errors.New("payment already in flight for this session")

// PaymentStore is the persistence surface for payments. Satisfied by
// *store.Store.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreatePaymentProduct(ctx context.Context, product *models.PaymentProduct) error
	CompleteGroups(ctx context.Context, groupIDs []string) error
	GetPaymentByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
}

// Locker is a distributed lock used as a double-submit guard. Satisfied
// by *redisclient.Client.
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// IdempotencyCache is a fast duplicate filter in front of the payments
// table. Satisfied by *redisclient.Client; optional.
type IdempotencyCache interface {
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	CheckIdempotencyKey(ctx context.Context, key string) (bool, error)
}

// PaymentEvents publishes payment events. Satisfied by
// *broker.EventPublisher.
type PaymentEvents interface {
	PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error
}

// PaymentService finalizes checkout sessions: it records the payment,
// marks every merged group COMPLETED, and announces the result.
type PaymentService struct {
	store      PaymentStore
	locker     Locker
	cache      IdempotencyCache
	events     PaymentEvents
	terminalID string
	lockTTL    time.Duration
	idemTTL    time.Duration
	logger     *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store PaymentStore, locker Locker, events PaymentEvents, terminalID string, lockTTL time.Duration) *PaymentService {
	return &PaymentService{
		store:      store,
		locker:     locker,
		events:     events,
		terminalID: terminalID,
		lockTTL:    lockTTL,
		logger:     util.GetLogger(),
	}
}

// WithIdempotencyCache installs a fast duplicate filter consulted before
// the payments table on repeated submissions.
func (ps *PaymentService) WithIdempotencyCache(cache IdempotencyCache, ttl time.Duration) *PaymentService {
	ps.cache = cache
	ps.idemTTL = ttl
	return ps
}

// PaymentRequest carries the amounts the front desk computed for the
// session at submission time, plus any retail add-ons.
type PaymentRequest struct {
	GroupIDs           []string                   `json:"group_ids" binding:"required"`
	Subtotal           decimal.Decimal            `json:"subtotal"`
	DiscountAmount     decimal.Decimal            `json:"discount_amount"`
	TipAmount          decimal.Decimal            `json:"tip_amount"`
	TotalAmount        decimal.Decimal            `json:"total_amount"`
	PaymentMethod      string                     `json:"payment_method" binding:"required"`
	AdditionalProducts []models.AdditionalProduct `json:"additional_products"`
	IdempotencyKey     string                     `json:"idempotency_key,omitempty"`
}

// SubmitPayment records the payment and completes the session's groups.
// A repeated submission with the same idempotency key returns the
// original payment instead of charging twice.
func (ps *PaymentService) SubmitPayment(ctx context.Context, req *PaymentRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.SubmitPayment")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	if len(req.GroupIDs) == 0 {
		util.PaymentFailedTotal.WithLabelValues("empty_group_set").Inc()
		return nil, models.ErrEmptyGroupSet
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	// Redis answers the common case; the payments table stays the
	// source of truth for anything the cache has forgotten.
	seen := true
	if ps.cache != nil {
		var err error
		seen, err = ps.cache.CheckIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			ps.logger.Warn("Idempotency cache check failed", zap.Error(err))
			seen = true
		}
	}
	if seen {
		existing, err := ps.store.GetPaymentByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			ps.logger.Info("Duplicate payment request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("payment_id", existing.ID))
			// The retry may be recovering from a crash between the
			// payment row and group completion; completing again is
			// idempotent.
			if err := ps.store.CompleteGroups(ctx, req.GroupIDs); err != nil {
				util.PaymentFailedTotal.WithLabelValues("complete_groups").Inc()
				return nil, err
			}
			return existing, nil
		}
	}

	lockKey := sessionLockKey(req.GroupIDs)
	locked, err := ps.locker.AcquireLock(ctx, lockKey, ps.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		util.PaymentFailedTotal.WithLabelValues("in_flight").Inc()
		return nil, ErrPaymentInFlight
	}
	defer func() {
		if err := ps.locker.ReleaseLock(ctx, lockKey); err != nil {
			ps.logger.Error("Failed to release payment lock", zap.Error(err))
		}
	}()

	payment := &models.Payment{
		ID:             uuid.New().String(),
		GroupIDs:       strings.Join(req.GroupIDs, ","),
		Subtotal:       req.Subtotal,
		DiscountAmount: req.DiscountAmount,
		TipAmount:      req.TipAmount,
		TotalAmount:    req.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		util.PaymentFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	// The key must be visible as soon as the payment row exists so a
	// retry after a later failure resolves to this payment instead of
	// inserting a duplicate.
	if ps.cache != nil {
		if err := ps.cache.SetIdempotencyKey(ctx, req.IdempotencyKey, payment.ID, ps.idemTTL); err != nil {
			ps.logger.Warn("Failed to record idempotency key", zap.Error(err))
		}
	}

	for _, p := range req.AdditionalProducts {
		product := &models.PaymentProduct{
			ID:        uuid.New().String(),
			PaymentID: payment.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  p.Quantity,
		}
		if err := ps.store.CreatePaymentProduct(ctx, product); err != nil {
			ps.logger.Error("Failed to record additional product",
				zap.String("payment_id", payment.ID),
				zap.Error(err))
		}
	}

	if err := ps.store.CompleteGroups(ctx, req.GroupIDs); err != nil {
		util.PaymentFailedTotal.WithLabelValues("complete_groups").Inc()
		return nil, err
	}

	util.PaymentSuccessTotal.Inc()
	ps.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID),
		zap.String("total", payment.TotalAmount.String()),
		zap.Int("groups", len(req.GroupIDs)))

	if ps.events != nil {
		event := &models.PaymentCompletedEvent{
			BaseEvent: models.BaseEvent{
				EventID:    uuid.New().String(),
				EventType:  models.EventTypePaymentCompleted,
				TerminalID: ps.terminalID,
				Timestamp:  time.Now(),
			},
			PaymentID:   payment.ID,
			GroupIDs:    append([]string(nil), req.GroupIDs...),
			TotalAmount: payment.TotalAmount,
			Method:      payment.PaymentMethod,
		}
		if err := ps.events.PublishPaymentCompleted(ctx, event); err != nil {
			ps.logger.Error("Failed to publish PaymentCompleted event", zap.Error(err))
		}
	}

	return payment, nil
}

// sessionLockKey is stable across group id orderings so two terminals
// paying the same merged set contend on one lock.
func sessionLockKey(groupIDs []string) string {
	ids := append([]string(nil), groupIDs...)
	sort.Strings(ids)
	return "checkout:" + strings.Join(ids, ",")
}
