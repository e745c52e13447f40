package player

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier receives the liveness map computed by each sweep.
type Notifier interface {
	PushStatus(ctx context.Context, statuses map[string]bool) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, statuses map[string]bool) error

func (f NotifierFunc) PushStatus(ctx context.Context, statuses map[string]bool) error {
	return f(ctx, statuses)
}

// RunSweep polls every player's liveness on SweepInterval until ctx is
// done and hands the result to n. Pushes run on their own goroutine with
// PushTimeout each; while one is in flight only the newest map is kept, so a
// slow notifier never delays the next poll.
func (o *Orchestrator) RunSweep(ctx context.Context, n Notifier) {
	pending := make(chan map[string]bool, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.pushLoop(ctx, n, pending)
	}()

	ticker := time.NewTicker(o.opts.SweepInterval)
	defer ticker.Stop()

	o.logger.Debug("liveness sweep started", zap.Duration("interval", o.opts.SweepInterval))
	for {
		select {
		case <-ctx.Done():
			<-done
			return
		case <-ticker.C:
			offer(pending, o.AllStatuses())
		}
	}
}

// offer replaces any unsent map with statuses. Only the sweep sends.
func offer(pending chan map[string]bool, statuses map[string]bool) {
	select {
	case pending <- statuses:
		return
	default:
	}
	select {
	case <-pending:
	default:
	}
	pending <- statuses
}

func (o *Orchestrator) pushLoop(ctx context.Context, n Notifier, pending <-chan map[string]bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case statuses := <-pending:
			if n == nil {
				continue
			}
			pushCtx, cancel := context.WithTimeout(ctx, o.opts.PushTimeout)
			if err := n.PushStatus(pushCtx, statuses); err != nil {
				o.logger.Debug("status push failed", zap.Error(err))
			}
			cancel()
		}
	}
}
