package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/dispatch/config"
	"github.com/RAHULYADAV122/Coffee/internal/metrics"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/store"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	d       *Dispatcher
	store   store.Store
	clock   *clock.Manual
	workers []model.Worker
}

func newFixture(t *testing.T, st store.Store, workers int) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{store: st, clock: clock.NewManual(now)}
	for i := 1; i <= workers; i++ {
		w, err := st.WorkerPost(ctx, model.Worker{Data: model.WorkerData{Name: "Barista " + string(rune('0'+i))}})
		require.NoError(t, err)
		f.workers = append(f.workers, w)
	}

	cfg := config.Config{
		AssignInterval:   5 * time.Second,
		CompleteInterval: 2 * time.Second,
		Policy:           "live",
		Strategy:         StrategyGreedy,
	}
	d, err := NewDispatcher(cfg, st, f.clock, metrics.New(), zap.NewNop())
	require.NoError(t, err)
	f.d = d
	return f
}

func (f *fixture) order(t *testing.T, wait time.Duration, drink string) model.Order {
	t.Helper()
	o, err := f.store.OrderPost(context.Background(), model.Order{Data: model.OrderData{
		Drink:       drink,
		PrepMinutes: model.PrepMinutes(drink),
		ArrivedAt:   now.Add(-wait),
		Status:      model.OrderStatusPending,
	}})
	require.NoError(t, err)
	return o
}

func (f *fixture) get(t *testing.T, id int64) model.Order {
	t.Helper()
	all, err := f.store.OrderGetAll(context.Background())
	require.NoError(t, err)
	for _, o := range all {
		if o.ID == id {
			return o
		}
	}
	t.Fatalf("order %d not found", id)
	return model.Order{}
}

func (f *fixture) worker(t *testing.T, id int64) model.Worker {
	t.Helper()
	all, err := f.store.WorkerGetAll(context.Background())
	require.NoError(t, err)
	for _, w := range all {
		if w.ID == id {
			return w
		}
	}
	t.Fatalf("worker %d not found", id)
	return model.Worker{}
}

func TestAssignTickGreedy(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 3)
	ctx := context.Background()

	urgent := f.order(t, 9*time.Minute, model.DrinkEspresso) // 131
	normal := f.order(t, 2*time.Minute, model.DrinkEspresso) // 28
	long := f.order(t, 2*time.Minute, model.DrinkSpecialty)  // 18
	fresh := f.order(t, 0, model.DrinkColdBrew)              // 22.5

	require.NoError(t, f.d.AssignTick(ctx))

	want := map[int64]int64{
		urgent.ID: f.workers[0].ID,
		normal.ID: f.workers[1].ID,
		fresh.ID:  f.workers[2].ID,
	}
	for orderID, workerID := range want {
		o := f.get(t, orderID)
		require.Equal(t, model.OrderStatusProcessing, o.Data.Status)
		require.True(t, o.Data.StartedAt.Equal(now))
		require.Equal(t, workerID, o.Data.Worker)

		w := f.worker(t, workerID)
		require.True(t, w.Data.BusyUntil.Equal(now.Add(time.Duration(o.Data.PrepMinutes)*time.Minute)))
		require.Equal(t, 1, w.Data.OrdersCompleted)
		require.Equal(t, o.Data.PrepMinutes, w.Data.MinutesAssigned)
	}

	left := f.get(t, long.ID)
	require.Equal(t, model.OrderStatusPending, left.Data.Status)
	require.InDelta(t, 18.0, left.Data.Priority, 1e-9)
	require.True(t, left.Data.StartedAt.IsZero())
	require.Zero(t, left.Data.Worker)
}

func TestAssignTickSkipsBusyWorker(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 2)
	ctx := context.Background()

	busy := f.workers[0]
	busy.Data.BusyUntil = now.Add(time.Minute)
	require.NoError(t, f.store.WorkerPut(ctx, busy))

	first := f.order(t, 3*time.Minute, model.DrinkLatte)
	second := f.order(t, time.Minute, model.DrinkLatte)

	require.NoError(t, f.d.AssignTick(ctx))

	require.Equal(t, f.workers[1].ID, f.get(t, first.ID).Data.Worker)
	require.Equal(t, model.OrderStatusPending, f.get(t, second.ID).Data.Status)
	require.Zero(t, f.worker(t, busy.ID).Data.OrdersCompleted)
}

func TestAssignTickNoDuplicateAssignment(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 3)
	ctx := context.Background()

	only := f.order(t, time.Minute, model.DrinkLatte)
	require.NoError(t, f.d.AssignTick(ctx))

	require.Equal(t, f.workers[0].ID, f.get(t, only.ID).Data.Worker)
	require.Equal(t, 1, f.worker(t, f.workers[0].ID).Data.OrdersCompleted)
	require.Zero(t, f.worker(t, f.workers[1].ID).Data.OrdersCompleted)
	require.Zero(t, f.worker(t, f.workers[2].ID).Data.OrdersCompleted)
}

func TestAssignTickAbandonment(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 1)
	ctx := context.Background()

	expired := f.order(t, 10*time.Minute+time.Second, model.DrinkEspresso)
	edge := f.order(t, 10*time.Minute, model.DrinkSpecialty)

	require.NoError(t, f.d.AssignTick(ctx))

	o := f.get(t, expired.ID)
	require.Equal(t, model.OrderStatusAbandoned, o.Data.Status)
	require.True(t, o.Data.StartedAt.IsZero())
	require.True(t, o.Data.CompletedAt.IsZero())
	require.Zero(t, o.Data.Worker)

	// ровно 10 минут - еще ждет, и уходит в работу
	require.Equal(t, model.OrderStatusProcessing, f.get(t, edge.ID).Data.Status)

	// брошенный заказ больше не назначается
	f.clock.Advance(time.Hour)
	require.NoError(t, f.d.AssignTick(ctx))
	require.Equal(t, model.OrderStatusAbandoned, f.get(t, expired.ID).Data.Status)
}

func TestAssignTickTieBreak(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 1)
	ctx := context.Background()

	// одинаковый приоритет и время прихода - решает ID
	first := f.order(t, time.Minute, model.DrinkLatte)
	second := f.order(t, time.Minute, model.DrinkLatte)

	require.NoError(t, f.d.AssignTick(ctx))
	require.Equal(t, model.OrderStatusProcessing, f.get(t, first.ID).Data.Status)
	require.Equal(t, model.OrderStatusPending, f.get(t, second.ID).Data.Status)
	require.Equal(t, f.get(t, first.ID).Data.Priority, f.get(t, second.ID).Data.Priority)
}

func TestCompleteTick(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 1)
	ctx := context.Background()

	order := f.order(t, time.Minute, model.DrinkLatte)
	require.NoError(t, f.d.AssignTick(ctx))
	workerBefore := f.worker(t, f.workers[0].ID)

	// ровно start+prep - еще не готов
	f.clock.Set(now.Add(4 * time.Minute))
	require.NoError(t, f.d.CompleteTick(ctx))
	require.Equal(t, model.OrderStatusProcessing, f.get(t, order.ID).Data.Status)

	done := now.Add(4*time.Minute + time.Second)
	f.clock.Set(done)
	require.NoError(t, f.d.CompleteTick(ctx))

	o := f.get(t, order.ID)
	require.Equal(t, model.OrderStatusCompleted, o.Data.Status)
	require.True(t, o.Data.CompletedAt.Equal(done))
	require.True(t, o.Data.StartedAt.Equal(now))
	require.Equal(t, workerBefore, f.worker(t, f.workers[0].ID))
}

func TestWorkerFreedAfterPrep(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 1)
	ctx := context.Background()

	first := f.order(t, 2*time.Minute, model.DrinkEspresso)
	second := f.order(t, time.Minute, model.DrinkEspresso)

	require.NoError(t, f.d.AssignTick(ctx))
	require.Equal(t, model.OrderStatusPending, f.get(t, second.ID).Data.Status)

	f.clock.Set(now.Add(2 * time.Minute))
	require.NoError(t, f.d.AssignTick(ctx))
	require.Equal(t, model.OrderStatusProcessing, f.get(t, second.ID).Data.Status)
	require.Equal(t, model.OrderStatusProcessing, f.get(t, first.ID).Data.Status)

	w := f.worker(t, f.workers[0].ID)
	require.Equal(t, 2, w.Data.OrdersCompleted)
	require.Equal(t, 4, w.Data.MinutesAssigned)
}

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Tx(ctx, func(tx store.Store) error {
		return fn(failingStore{Store: tx, err: f.err})
	})
}

func (f failingStore) WorkerPut(context.Context, model.Worker) error {
	return f.err
}

func TestAssignTickRollback(t *testing.T) {
	boom := errors.New("boom")
	mem := store.NewMemStore()
	f := newFixture(t, failingStore{Store: mem, err: boom}, 1)
	ctx := context.Background()

	order := f.order(t, 2*time.Minute, model.DrinkEspresso)
	expired := f.order(t, 15*time.Minute, model.DrinkEspresso)

	err := f.d.AssignTick(ctx)
	require.ErrorIs(t, err, boom)

	require.Equal(t, model.OrderStatusPending, f.get(t, order.ID).Data.Status)
	require.Zero(t, f.get(t, order.ID).Data.Priority)
	require.Equal(t, model.OrderStatusPending, f.get(t, expired.ID).Data.Status)
}

func TestNewDispatcherUnknownNames(t *testing.T) {
	cfg := config.Config{AssignInterval: time.Second, CompleteInterval: time.Second}

	cfg.Policy = "fifo"
	_, err := NewDispatcher(cfg, store.NewMemStore(), clock.Real{}, metrics.New(), zap.NewNop())
	require.Error(t, err)

	cfg.Policy = ""
	cfg.Strategy = "random"
	_, err = NewDispatcher(cfg, store.NewMemStore(), clock.Real{}, metrics.New(), zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNewDispatcherIntervals(t *testing.T) {
	tests := []struct {
		name             string
		assign, complete time.Duration
	}{
		{"zero assign", 0, time.Second},
		{"zero complete", time.Second, 0},
		{"negative assign", -time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDispatcher(config.Config{AssignInterval: tt.assign, CompleteInterval: tt.complete},
				store.NewMemStore(), clock.Real{}, metrics.New(), zap.NewNop())
			require.ErrorContains(t, err, "must be positive")
		})
	}
}

func TestDispatcherBalancedStrategy(t *testing.T) {
	f := newFixture(t, store.NewMemStore(), 2)
	ctx := context.Background()

	f.d.strategy = Balanced{}

	// первый бариста перегружен
	w := f.workers[0]
	w.Data.MinutesAssigned = 30
	require.NoError(t, f.store.WorkerPut(ctx, w))

	latte := f.order(t, 3*time.Minute, model.DrinkLatte)
	coldBrew := f.order(t, time.Minute, model.DrinkColdBrew)

	require.NoError(t, f.d.AssignTick(ctx))
	require.Equal(t, f.workers[0].ID, f.get(t, coldBrew.ID).Data.Worker)
	require.Equal(t, f.workers[1].ID, f.get(t, latte.ID).Data.Worker)
}
