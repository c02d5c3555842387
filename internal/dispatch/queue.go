package dispatch

import (
	"errors"
	"sort"
	"time"

	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/priority"
)

const (
	StrategyGreedy   = "greedy"
	StrategyBalanced = "balanced"
)

var ErrUnknownStrategy = errors.New("unknown assignment strategy")

// Strategy picks the order a free worker takes from a queue sorted by
// descending priority. Pick is never called with an empty queue.
type Strategy interface {
	Name() string
	Pick(worker model.Worker, averageMinutes float64, queue []model.Order) int
}

func StrategyByName(name string) (Strategy, error) {
	switch name {
	case StrategyGreedy, "":
		return Greedy{}, nil
	case StrategyBalanced:
		return Balanced{}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}

// Greedy always takes the head of the queue.
type Greedy struct{}

func (Greedy) Name() string { return StrategyGreedy }

func (Greedy) Pick(model.Worker, float64, []model.Order) int { return 0 }

const (
	overloadedRatio  = 1.2
	underloadedRatio = 0.8
	quickPrepBelow   = 3
	complexPrepFrom  = 4
)

// Balanced steers overloaded workers to quick drinks and underloaded ones to
// long drinks, falling back to the head of the queue.
type Balanced struct{}

func (Balanced) Name() string { return StrategyBalanced }

func (Balanced) Pick(worker model.Worker, averageMinutes float64, queue []model.Order) int {
	ratio := 1.0
	if averageMinutes > 0 {
		ratio = float64(worker.Data.MinutesAssigned) / averageMinutes
	}

	switch {
	case ratio > overloadedRatio:
		for i, o := range queue {
			if o.Data.PrepMinutes < quickPrepBelow {
				return i
			}
		}
	case ratio < underloadedRatio:
		for i, o := range queue {
			if o.Data.PrepMinutes >= complexPrepFrom {
				return i
			}
		}
	}
	return 0
}

// AverageMinutes is the mean of the minutes assigned across workers.
func AverageMinutes(workers []model.Worker) float64 {
	if len(workers) == 0 {
		return 0
	}
	var total int
	for _, w := range workers {
		total += w.Data.MinutesAssigned
	}
	return float64(total) / float64(len(workers))
}

// SortQueue orders by descending priority. Ties go to the earlier arrival,
// then to the lower ID.
func SortQueue(queue []model.Order) {
	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if a.Data.Priority != b.Data.Priority {
			return a.Data.Priority > b.Data.Priority
		}
		if !a.Data.ArrivedAt.Equal(b.Data.ArrivedAt) {
			return a.Data.ArrivedAt.Before(b.Data.ArrivedAt)
		}
		return a.ID < b.ID
	})
}

// FilterAbandoned splits orders into those still waiting and those past the
// hard timeout. Relative order is kept in both.
func FilterAbandoned(orders []model.Order, now time.Time, policy priority.Policy) (active, abandoned []model.Order) {
	active = make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if policy.Wait(o, now) > priority.AbandonAfterMinutes {
			abandoned = append(abandoned, o)
			continue
		}
		active = append(active, o)
	}
	return active, abandoned
}

// Assign applies the effects of handing order to worker at now. The worker's
// completed counter moves at assignment, not at completion.
func Assign(order model.Order, worker model.Worker, now time.Time) (model.Order, model.Worker) {
	order.Data.Status = model.OrderStatusProcessing
	order.Data.StartedAt = now
	order.Data.Worker = worker.ID

	worker.Data.BusyUntil = order.ExpectedEnd()
	worker.Data.OrdersCompleted++
	worker.Data.MinutesAssigned += order.Data.PrepMinutes
	return order, worker
}
