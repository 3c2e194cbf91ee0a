package board

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RetryableError marks a failure that reverted local state and can be
// recovered by re-issuing the triggering action. It is never fatal to
// the board.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s failed, local state reverted: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// command is one optimistic mutation: apply the change locally, persist
// it, roll the local change back if persistence fails. Every board and
// checkout mutation goes through this one shape instead of scattering
// apply/revert pairs across call sites.
type command struct {
	op       string
	apply    func()
	persist  func(context.Context) error
	rollback func()
}

// run executes an optimistic command. On persistence failure the local
// state is rolled back and the error comes back as *RetryableError.
func run(ctx context.Context, cmd command, logger *zap.Logger) error {
	cmd.apply()

	if err := cmd.persist(ctx); err != nil {
		cmd.rollback()
		logger.Warn("Optimistic command rolled back",
			zap.String("op", cmd.op),
			zap.Error(err))
		return &RetryableError{Op: cmd.op, Err: err}
	}

	return nil
}
