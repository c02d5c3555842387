// Package priority scores waiting orders.
//
// Live is used by the dispatcher against real orders. Simulation is the
// variant the simulator was tuned with; it ramps urgency later, scales
// complexity differently and counts wait in whole minutes.
package priority

import (
	"errors"
	"math"
	"time"

	"github.com/RAHULYADAV122/Coffee/internal/model"
)

const (
	WeightWait       = 0.40
	WeightComplexity = 0.25
	WeightLoyalty    = 0.10
	WeightUrgency    = 0.25

	// AbandonAfterMinutes is the hard wait timeout.
	AbandonAfterMinutes = 10
	// EmergencyAfterMinutes is the soft threshold past which an order is
	// boosted and, in the simulator, counted as a complaint when served.
	EmergencyAfterMinutes = 8
	EmergencyBoost        = 50.0
)

const (
	PolicyLive       = "live"
	PolicySimulation = "simulation"
)

var ErrUnknownPolicy = errors.New("unknown priority policy")

type Policy interface {
	Name() string
	// Wait returns the wait of the order at now, in minutes, at the
	// resolution the policy scores with.
	Wait(order model.Order, now time.Time) float64
	Score(order model.Order, now time.Time) float64
}

// ByName resolves a policy by its configured name.
func ByName(name string) (Policy, error) {
	switch name {
	case PolicyLive, "":
		return Live{}, nil
	case PolicySimulation:
		return Simulation{}, nil
	default:
		return nil, ErrUnknownPolicy
	}
}

// WaitMinutes is the fractional time since arrival.
func WaitMinutes(order model.Order, now time.Time) float64 {
	if order.Data.ArrivedAt.IsZero() {
		return 0
	}
	return now.Sub(order.Data.ArrivedAt).Minutes()
}

// Live is the dispatcher formula.
type Live struct{}

func (Live) Name() string { return PolicyLive }

func (Live) Wait(order model.Order, now time.Time) float64 {
	return WaitMinutes(order, now)
}

func (p Live) Score(order model.Order, now time.Time) float64 {
	wait := p.Wait(order, now)

	waitScore := math.Min(wait/AbandonAfterMinutes, 1) * 100
	complexityScore := math.Max(0, (10-float64(order.Data.PrepMinutes))/10) * 100

	var urgencyScore float64
	switch {
	case wait >= EmergencyAfterMinutes:
		urgencyScore = 100
	case wait > 5:
		urgencyScore = (wait - 5) * 20
	}

	return combine(wait, waitScore, complexityScore, order.Data.Loyalty, urgencyScore)
}

// Simulation is the simulator formula. Wait is counted in whole elapsed
// minutes.
type Simulation struct{}

func (Simulation) Name() string { return PolicySimulation }

func (Simulation) Wait(order model.Order, now time.Time) float64 {
	return math.Trunc(WaitMinutes(order, now))
}

func (p Simulation) Score(order model.Order, now time.Time) float64 {
	wait := p.Wait(order, now)

	waitScore := math.Min(wait, AbandonAfterMinutes) * 10
	complexityScore := math.Max(0, (6-float64(order.Data.PrepMinutes))/5*100)

	var urgencyScore float64
	switch {
	case wait >= EmergencyAfterMinutes:
		urgencyScore = 100
	case wait >= 6:
		urgencyScore = (wait - 6) * 50
	}

	return combine(wait, waitScore, complexityScore, order.Data.Loyalty, urgencyScore)
}

func combine(wait, waitScore, complexityScore float64, loyal bool, urgencyScore float64) float64 {
	var loyaltyScore float64
	if loyal {
		loyaltyScore = 100
	}

	total := waitScore*WeightWait +
		complexityScore*WeightComplexity +
		loyaltyScore*WeightLoyalty +
		urgencyScore*WeightUrgency

	// без верхней границы: просроченный заказ обгоняет всех
	if wait > EmergencyAfterMinutes {
		total += EmergencyBoost
	}
	return total
}
