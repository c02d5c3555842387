package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/dispatch/config"
	"github.com/RAHULYADAV122/Coffee/internal/metrics"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/priority"
	"github.com/RAHULYADAV122/Coffee/internal/store"
)

const (
	TickAssign   = "assign"
	TickComplete = "complete"
)

// Dispatcher runs the assignment and completion ticks. Ticks are serialized
// by one mutex and each commits in a single store transaction, so the two
// kinds never interleave.
type Dispatcher struct {
	mu       sync.Mutex
	cfg      config.Config
	store    store.Store
	clock    clock.Clock
	policy   priority.Policy
	strategy Strategy
	metrics  *metrics.Metrics
	zaplog   *zap.Logger
}

func NewDispatcher(cfg config.Config, store store.Store, clock clock.Clock, metrics *metrics.Metrics, zaplog *zap.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := priority.ByName(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Policy)
	}
	strategy, err := StrategyByName(cfg.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, cfg.Strategy)
	}

	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		clock:    clock,
		policy:   policy,
		strategy: strategy,
		metrics:  metrics,
		zaplog:   zaplog.With(zap.String("component", "dispatcher")),
	}, nil
}

// Jobs returns both ticks as scheduler jobs.
func (d *Dispatcher) Jobs() []Job {
	return []Job{
		{Name: TickAssign, Interval: d.cfg.AssignInterval, Run: d.AssignTick},
		{Name: TickComplete, Interval: d.cfg.CompleteInterval, Run: d.CompleteTick},
	}
}

// AssignTick drops timed out orders, rescores the rest and hands the best
// ones to free workers.
func (d *Dispatcher) AssignTick(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	started := time.Now()
	now := d.clock.Now()

	var assigned, abandoned, left int
	err := d.store.Tx(ctx, func(tx store.Store) error {
		assigned, abandoned, left = 0, 0, 0

		pending, err := tx.OrderGetByStatus(ctx, model.OrderStatusPending)
		if err != nil {
			return fmt.Errorf("load pending orders: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}
		workers, err := tx.WorkerGetAll(ctx)
		if err != nil {
			return fmt.Errorf("load workers: %w", err)
		}

		// Просроченные снимаем до назначения
		queue, expired := FilterAbandoned(pending, now, d.policy)
		for i := range expired {
			expired[i].Data.Status = model.OrderStatusAbandoned
		}
		if err := tx.OrderPutAll(ctx, expired); err != nil {
			return fmt.Errorf("abandon orders: %w", err)
		}
		abandoned = len(expired)

		for i := range queue {
			queue[i].Data.Priority = d.policy.Score(queue[i], now)
		}
		SortQueue(queue)

		sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
		average := AverageMinutes(workers)

		for _, worker := range workers {
			if len(queue) == 0 {
				break
			}
			if worker.Busy(now) {
				continue
			}

			idx := d.strategy.Pick(worker, average, queue)
			order := queue[idx]
			queue = append(queue[:idx], queue[idx+1:]...)

			order, worker = Assign(order, worker, now)
			if err := tx.OrderPut(ctx, order); err != nil {
				return fmt.Errorf("assign order %d: %w", order.ID, err)
			}
			if err := tx.WorkerPut(ctx, worker); err != nil {
				return fmt.Errorf("assign worker %d: %w", worker.ID, err)
			}
			assigned++

			d.zaplog.Debug("order assigned",
				zap.Int64("order", order.ID),
				zap.Int64("worker", worker.ID),
				zap.Float64("priority", order.Data.Priority),
				zap.Time("busy_until", worker.Data.BusyUntil),
			)
		}

		// Оставшимся сохраняем новый приоритет
		if err := tx.OrderPutAll(ctx, queue); err != nil {
			return fmt.Errorf("save priorities: %w", err)
		}
		left = len(queue)
		return nil
	})
	d.metrics.Tick(TickAssign, started, err)
	if err != nil {
		return err
	}

	d.metrics.OrderTransitions(model.OrderStatusProcessing, assigned)
	d.metrics.OrderTransitions(model.OrderStatusAbandoned, abandoned)
	d.metrics.QueueLength(left)
	if assigned > 0 || abandoned > 0 {
		d.zaplog.Info("assignment tick",
			zap.Int("assigned", assigned),
			zap.Int("abandoned", abandoned),
			zap.Int("pending", left),
		)
	}
	return nil
}

// CompleteTick closes orders whose preparation time has run out. Workers are
// not touched: their busy-until was fixed at assignment.
func (d *Dispatcher) CompleteTick(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	started := time.Now()
	now := d.clock.Now()

	var completed int
	err := d.store.Tx(ctx, func(tx store.Store) error {
		completed = 0

		processing, err := tx.OrderGetByStatus(ctx, model.OrderStatusProcessing)
		if err != nil {
			return fmt.Errorf("load processing orders: %w", err)
		}
		for _, order := range processing {
			if !order.ExpectedEnd().Before(now) {
				continue
			}
			order.Data.Status = model.OrderStatusCompleted
			order.Data.CompletedAt = now
			if err := tx.OrderPut(ctx, order); err != nil {
				return fmt.Errorf("complete order %d: %w", order.ID, err)
			}
			completed++

			d.zaplog.Debug("order completed",
				zap.Int64("order", order.ID),
				zap.Int64("worker", order.Data.Worker),
			)
		}
		return nil
	})
	d.metrics.Tick(TickComplete, started, err)
	if err != nil {
		return err
	}

	d.metrics.OrderTransitions(model.OrderStatusCompleted, completed)
	if completed > 0 {
		d.zaplog.Info("completion tick", zap.Int("completed", completed))
	}
	return nil
}
