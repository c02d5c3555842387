// Package simulation replays a synthetic morning rush against the balanced
// assignment strategy on a virtual clock.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/dispatch"
	"github.com/RAHULYADAV122/Coffee/internal/metrics"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/priority"
	"github.com/RAHULYADAV122/Coffee/internal/simulation/config"
)

// Report sums up one trial.
type Report struct {
	TestCaseID         int            `json:"testCaseId"`
	TotalOrders        int            `json:"totalOrders"`
	AverageWaitMinutes float64        `json:"averageWaitTimeMinutes"`
	WorkerWorkload     map[string]int `json:"baristaWorkload"`
	Complaints         int            `json:"complaintsCount"`
	Served             int            `json:"served"`
	Abandoned          int            `json:"abandoned"`
	LateServed         int            `json:"lateServed"`
	Unserved           int            `json:"unserved"`
	Seed               int64          `json:"seed"`
}

// Engine runs trials. Trials share nothing but the configuration.
type Engine struct {
	cfg      config.Config
	clock    clock.Clock
	policy   priority.Policy
	strategy dispatch.Strategy
	metrics  *metrics.Metrics
	zaplog   *zap.Logger
}

// NewEngine builds an engine. metrics may be nil.
func NewEngine(cfg config.Config, clock clock.Clock, metrics *metrics.Metrics, zaplog *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		policy:   priority.Simulation{},
		strategy: dispatch.Balanced{},
		metrics:  metrics,
		zaplog:   zaplog.With(zap.String("component", "simulation")),
	}
}

// Run executes trials 1..trials. Trial i draws from a generator seeded with
// seed+i, so the same seed gives the same reports.
func (e *Engine) Run(ctx context.Context, seed int64, trials int) ([]Report, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if trials <= 0 {
		return nil, nil
	}

	now := e.clock.Now()
	opening := time.Date(now.Year(), now.Month(), now.Day(), 7, 0, 0, 0, now.Location())

	reports := make([]Report, trials)
	g, ctx := errgroup.WithContext(ctx)
	if e.cfg.Parallelism > 0 {
		g.SetLimit(e.cfg.Parallelism)
	}
	for i := 1; i <= trials; i++ {
		g.Go(func() error {
			r, err := e.trial(ctx, i, seed+int64(i), opening)
			if err != nil {
				return fmt.Errorf("trial %d: %w", i, err)
			}
			reports[i-1] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range reports {
		if e.metrics != nil {
			e.metrics.SimulationTrial(r.TestCaseID, r.AverageWaitMinutes, r.Complaints)
		}
		e.zaplog.Info("trial finished",
			zap.Int("trial", r.TestCaseID),
			zap.Int64("seed", r.Seed),
			zap.Int("orders", r.TotalOrders),
			zap.Float64("avg_wait", r.AverageWaitMinutes),
			zap.Int("complaints", r.Complaints),
			zap.Int("unserved", r.Unserved),
		)
	}
	return reports, nil
}

// Generate draws the orders of one trial, sorted by arrival.
func (e *Engine) Generate(rnd *rand.Rand, opening time.Time) []model.Order {
	spread := e.cfg.MaxOrders - e.cfg.MinOrders + 1
	if spread < 1 {
		spread = 1
	}
	n := e.cfg.MinOrders + rnd.Intn(spread)
	window := int(e.cfg.Window / time.Second)
	if window < 1 {
		window = 1
	}

	orders := make([]model.Order, 0, n)
	for j := 0; j < n; j++ {
		drink := model.Menu[rnd.Intn(len(model.Menu))]
		orders = append(orders, model.Order{
			ID: int64(j + 1),
			Data: model.OrderData{
				Drink:       drink,
				PrepMinutes: model.PrepMinutes(drink),
				ArrivedAt:   opening.Add(time.Duration(rnd.Intn(window)) * time.Second),
				Status:      model.OrderStatusPending,
				Loyalty:     rnd.Float64() < e.cfg.LoyaltyRate,
			},
		})
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Data.ArrivedAt.Before(orders[j].Data.ArrivedAt)
	})
	return orders
}

func (e *Engine) trial(ctx context.Context, id int, seed int64, opening time.Time) (Report, error) {
	orders := e.Generate(rand.New(rand.NewSource(seed)), opening)
	report, err := e.replay(ctx, id, orders, opening)
	if err != nil {
		return Report{}, err
	}
	report.Seed = seed
	return report, nil
}

// replay steps the virtual clock over orders, which must be sorted by
// arrival, starting at the first arrival.
func (e *Engine) replay(ctx context.Context, id int, orders []model.Order, opening time.Time) (Report, error) {
	workers := make([]model.Worker, e.cfg.Workers)
	for w := range workers {
		workers[w] = model.Worker{ID: int64(w + 1), Data: model.WorkerData{
			Name:      fmt.Sprintf("Barista %d", w+1),
			BusyUntil: opening,
		}}
	}

	report := Report{
		TestCaseID:     id,
		TotalOrders:    len(orders),
		WorkerWorkload: make(map[string]int, len(workers)),
	}
	for _, w := range workers {
		report.WorkerWorkload[w.Data.Name] = 0
	}
	if len(orders) == 0 {
		return report, nil
	}

	var (
		queue     []model.Order
		next      int
		waitTotal int
		now       = orders[0].Data.ArrivedAt
	)
	for step := 0; step < e.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}

		for next < len(orders) && !orders[next].Data.ArrivedAt.After(now) {
			queue = append(queue, orders[next])
			next++
		}

		for i := range queue {
			queue[i].Data.Priority = e.policy.Score(queue[i], now)
		}
		dispatch.SortQueue(queue)

		var dropped []model.Order
		queue, dropped = dispatch.FilterAbandoned(queue, now, e.policy)
		report.Abandoned += len(dropped)

		average := dispatch.AverageMinutes(workers)
		for w := range workers {
			if len(queue) == 0 {
				break
			}
			if workers[w].Busy(now) {
				continue
			}

			idx := e.strategy.Pick(workers[w], average, queue)
			order := queue[idx]
			queue = append(queue[:idx], queue[idx+1:]...)

			order, workers[w] = dispatch.Assign(order, workers[w], now)
			report.WorkerWorkload[workers[w].Data.Name]++
			report.Served++
			waitTotal += wholeMinutes(order.ExpectedEnd().Sub(order.Data.ArrivedAt))
			// обслужен, но ждал слишком долго
			if wholeMinutes(now.Sub(order.Data.ArrivedAt)) > priority.EmergencyAfterMinutes {
				report.LateServed++
			}
		}

		now = now.Add(e.cfg.Step)

		if next >= len(orders) && len(queue) == 0 && !anyBusy(workers, now) {
			break
		}
	}

	report.Unserved = len(orders) - report.Served - report.Abandoned
	report.Complaints = report.Abandoned + report.LateServed
	if report.Served > 0 {
		report.AverageWaitMinutes = float64(waitTotal) / float64(report.Served)
	}
	if report.Unserved > 0 {
		e.zaplog.Warn("step bound reached",
			zap.Int("trial", id),
			zap.Int("unserved", report.Unserved),
		)
	}
	return report, nil
}

func wholeMinutes(d time.Duration) int {
	return int(math.Trunc(d.Minutes()))
}

func anyBusy(workers []model.Worker, now time.Time) bool {
	for _, w := range workers {
		if w.Busy(now) {
			return true
		}
	}
	return false
}
