package worker

import (
	"context"
	"log"

	"frontdesk-service/internal/board"
	"frontdesk-service/internal/broker"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedEventStore tracks handled event ids for consumer idempotency.
// Satisfied by *store.Store.
type ProcessedEventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// BoardWorker reconciles this terminal's in-memory board with events
// produced by other staff terminals: status moves, walk-in creations and
// completed payments all land on the board without a full reload.
type BoardWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	board        *board.Store
	processed    ProcessedEventStore
	terminalID   string
	logger       *zap.Logger
}

// NewBoardWorker creates a new board sync worker
func NewBoardWorker(
	consumer *broker.Consumer,
	boardStore *board.Store,
	processed ProcessedEventStore,
	terminalID string,
) *BoardWorker {
	w := &BoardWorker{
		consumer:   consumer,
		board:      boardStore,
		processed:  processed,
		terminalID: terminalID,
		logger:     util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnGroupStatusChanged(w.handleStatusChanged)
	eventHandler.OnWalkInCreated(w.handleWalkInCreated)
	eventHandler.OnPaymentCompleted(w.handlePaymentCompleted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *BoardWorker) Start(ctx context.Context) error {
	log.Println("Starting board sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *BoardWorker) Stop() error {
	log.Println("Stopping board sync worker...")
	return w.consumer.Close()
}

func (w *BoardWorker) handleStatusChanged(ctx context.Context, event *models.GroupStatusChangedEvent) error {
	if event.TerminalID == w.terminalID {
		return nil
	}

	done, err := w.alreadyProcessed(ctx, event.EventID)
	if err != nil || done {
		return err
	}

	if !w.board.UpsertStatus(event.GroupID, event.ToStatus) {
		w.logger.Debug("Status event for group not on this board",
			zap.String("group_id", event.GroupID))
	} else {
		w.logger.Info("Board reconciled from remote transition",
			zap.String("group_id", event.GroupID),
			zap.String("to", string(event.ToStatus)))
	}

	return w.markProcessed(ctx, event.EventID, event.EventType)
}

func (w *BoardWorker) handleWalkInCreated(ctx context.Context, event *models.WalkInCreatedEvent) error {
	if event.TerminalID == w.terminalID {
		return nil
	}

	done, err := w.alreadyProcessed(ctx, event.EventID)
	if err != nil || done {
		return err
	}

	w.board.Insert(event.Group)
	w.logger.Info("Walk-in added from remote terminal",
		zap.String("group_id", event.Group.ID))

	return w.markProcessed(ctx, event.EventID, event.EventType)
}

func (w *BoardWorker) handlePaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	if event.TerminalID == w.terminalID {
		return nil
	}

	done, err := w.alreadyProcessed(ctx, event.EventID)
	if err != nil || done {
		return err
	}

	for _, groupID := range event.GroupIDs {
		w.board.UpsertStatus(groupID, models.StatusCompleted)
	}
	w.logger.Info("Groups completed from remote payment",
		zap.String("payment_id", event.PaymentID),
		zap.Int("groups", len(event.GroupIDs)))

	return w.markProcessed(ctx, event.EventID, event.EventType)
}

func (w *BoardWorker) alreadyProcessed(ctx context.Context, eventID string) (bool, error) {
	if w.processed == nil {
		return false, nil
	}
	return w.processed.IsEventProcessed(ctx, eventID)
}

func (w *BoardWorker) markProcessed(ctx context.Context, eventID, eventType string) error {
	if w.processed == nil {
		return nil
	}
	if err := w.processed.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		w.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
