package simulation

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/metrics"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/simulation/config"
)

var today = time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)

func testConfig() config.Config {
	return config.Config{
		Workers:     3,
		MinOrders:   200,
		MaxOrders:   300,
		Window:      3 * time.Hour,
		Step:        30 * time.Second,
		MaxSteps:    10000,
		LoyaltyRate: 0.2,
		Parallelism: 2,
	}
}

func newEngine(cfg config.Config, m *metrics.Metrics) *Engine {
	return NewEngine(cfg, clock.NewManual(today), m, zap.NewNop())
}

func TestRunReports(t *testing.T) {
	reports, err := newEngine(testConfig(), nil).Run(context.Background(), 42, 5)
	require.NoError(t, err)
	require.Len(t, reports, 5)

	for i, r := range reports {
		require.Equal(t, i+1, r.TestCaseID)
		require.Equal(t, int64(42+i+1), r.Seed)
		require.GreaterOrEqual(t, r.TotalOrders, 200)
		require.LessOrEqual(t, r.TotalOrders, 300)
		require.Equal(t, r.TotalOrders, r.Served+r.Abandoned+r.Unserved)
		require.Zero(t, r.Unserved)
		require.Equal(t, r.Abandoned+r.LateServed, r.Complaints)

		require.Len(t, r.WorkerWorkload, 3)
		var served int
		for _, name := range []string{"Barista 1", "Barista 2", "Barista 3"} {
			count, ok := r.WorkerWorkload[name]
			require.True(t, ok, name)
			served += count
		}
		require.Equal(t, r.Served, served)

		// каждый обслуженный заказ занимает не меньше минуты
		require.GreaterOrEqual(t, r.AverageWaitMinutes, 1.0)
	}
}

func TestRunDeterministic(t *testing.T) {
	first, err := newEngine(testConfig(), nil).Run(context.Background(), 7, 4)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Parallelism = 0
	second, err := newEngine(cfg, nil).Run(context.Background(), 7, 4)
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := newEngine(testConfig(), nil).Run(context.Background(), 8, 4)
	require.NoError(t, err)
	// тот же генератор при сдвиге seed на 1
	require.Equal(t, first[1:], relabel(other[:3], 2))
}

// relabel shifts trial numbers so reports from different base seeds line up.
func relabel(reports []Report, from int) []Report {
	out := make([]Report, len(reports))
	for i, r := range reports {
		r.TestCaseID = from + i
		out[i] = r
	}
	return out
}

func TestGenerate(t *testing.T) {
	e := newEngine(testConfig(), nil)
	opening := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)

	orders := e.Generate(rand.New(rand.NewSource(1)), opening)
	require.GreaterOrEqual(t, len(orders), 200)
	require.LessOrEqual(t, len(orders), 300)

	loyal := 0
	for i, o := range orders {
		require.Equal(t, model.OrderStatusPending, o.Data.Status)
		require.Contains(t, model.Menu, o.Data.Drink)
		require.Equal(t, model.PrepMinutes(o.Data.Drink), o.Data.PrepMinutes)
		require.False(t, o.Data.ArrivedAt.Before(opening))
		require.True(t, o.Data.ArrivedAt.Before(opening.Add(3*time.Hour)))
		if i > 0 {
			require.False(t, o.Data.ArrivedAt.Before(orders[i-1].Data.ArrivedAt))
		}
		if o.Data.Loyalty {
			loyal++
		}
	}
	require.Greater(t, loyal, 0)
	require.Less(t, loyal, len(orders))
}

func TestRunOverloaded(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 1
	cfg.Window = 10 * time.Minute

	reports, err := newEngine(cfg, nil).Run(context.Background(), 3, 1)
	require.NoError(t, err)
	r := reports[0]

	// один бариста не справляется с потоком
	require.Greater(t, r.Abandoned, r.Served)
	require.Equal(t, r.TotalOrders, r.Served+r.Abandoned+r.Unserved)
	require.Equal(t, r.Served, r.WorkerWorkload["Barista 1"])
}

func TestRunStepBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSteps = 3

	reports, err := newEngine(cfg, nil).Run(context.Background(), 1, 1)
	require.NoError(t, err)
	r := reports[0]
	require.Greater(t, r.Unserved, 0)
	require.Equal(t, r.TotalOrders, r.Served+r.Abandoned+r.Unserved)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(testConfig(), nil).Run(ctx, 1, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunNoTrials(t *testing.T) {
	reports, err := newEngine(testConfig(), nil).Run(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Empty(t, reports)
}

func TestRunMetrics(t *testing.T) {
	m := metrics.New()
	reports, err := newEngine(testConfig(), m).Run(context.Background(), 5, 2)
	require.NoError(t, err)

	require.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "coffee_simulation_complaints"))
	require.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "coffee_simulation_average_wait_minutes"))
	require.NotZero(t, reports[0].AverageWaitMinutes)
}

// rush строит очередь для одного бариста: два Specialty в момент открытия
// занимают его на 12 минут, третий приходит через lateBy.
func rush(opening time.Time, lateBy time.Duration) []model.Order {
	specialty := func(id int64, at time.Time) model.Order {
		return model.Order{ID: id, Data: model.OrderData{
			Drink:       model.DrinkSpecialty,
			PrepMinutes: model.PrepMinutes(model.DrinkSpecialty),
			ArrivedAt:   at,
			Status:      model.OrderStatusPending,
		}}
	}
	return []model.Order{
		specialty(1, opening),
		specialty(2, opening),
		specialty(3, opening.Add(lateBy)),
	}
}

func TestReplayEdges(t *testing.T) {
	opening := time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Workers = 1
	cfg.Step = time.Second

	// третий заказ берут ровно в 07:12, когда бариста освобождается
	tests := []struct {
		name      string
		arrival   time.Duration
		served    int
		late      int
		abandoned int
		avgWait   float64
	}{
		{name: "waited 8m59s", arrival: 3*time.Minute + time.Second, served: 3, late: 0, avgWait: (6.0 + 12 + 14) / 3},
		{name: "waited 9m00s", arrival: 3 * time.Minute, served: 3, late: 1, avgWait: (6.0 + 12 + 15) / 3},
		{name: "waited 10m30s", arrival: 90 * time.Second, served: 3, late: 1, avgWait: (6.0 + 12 + 16) / 3},
		{name: "waited 11m00s", arrival: time.Minute, served: 2, abandoned: 1, avgWait: (6.0 + 12) / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newEngine(cfg, nil).replay(context.Background(), 1, rush(opening, tt.arrival), opening)
			require.NoError(t, err)

			require.Equal(t, 3, r.TotalOrders)
			require.Equal(t, tt.served, r.Served)
			require.Equal(t, tt.late, r.LateServed)
			require.Equal(t, tt.abandoned, r.Abandoned)
			require.Equal(t, tt.late+tt.abandoned, r.Complaints)
			require.Zero(t, r.Unserved)
			require.Equal(t, tt.served, r.WorkerWorkload["Barista 1"])
			require.InDelta(t, tt.avgWait, r.AverageWaitMinutes, 1e-9)
		})
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero step", func(c *config.Config) { c.Step = 0 }},
		{"zero max steps", func(c *config.Config) { c.MaxSteps = 0 }},
		{"no workers", func(c *config.Config) { c.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := newEngine(cfg, nil).Run(context.Background(), 1, 1)
			require.Error(t, err)
		})
	}
}
