package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"user-onboarding-service/pkg/logger"
	"user-onboarding-service/pkg/workerpool"
)

// AsyncSender delivers through next on a worker pool. Send returns once the
// message is queued; delivery errors are logged.
type AsyncSender struct {
	next Sender
	pool *workerpool.Pool
	log  *zap.Logger
}

// NewAsyncSender wraps next. The caller owns pool and must stop it.
func NewAsyncSender(next Sender, pool *workerpool.Pool, log *zap.Logger) *AsyncSender {
	return &AsyncSender{next: next, pool: pool, log: log}
}

// Send validates msg and queues its delivery.
func (a *AsyncSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	err := a.pool.Enqueue(ctx, func(taskCtx context.Context) {
		if err := a.next.Send(taskCtx, msg); err != nil {
			logger.WithContext(taskCtx, a.log).Error("async mail delivery failed", zap.String("to", msg.To), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to queue mail: %w", err)
	}
	return nil
}
