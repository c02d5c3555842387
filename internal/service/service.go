package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/theplant/luhn"
	"go.uber.org/zap"

	"github.com/RAHULYADAV122/Coffee/internal/clock"
	"github.com/RAHULYADAV122/Coffee/internal/model"
	"github.com/RAHULYADAV122/Coffee/internal/priority"
	"github.com/RAHULYADAV122/Coffee/internal/roster"
	"github.com/RAHULYADAV122/Coffee/internal/service/config"
	"github.com/RAHULYADAV122/Coffee/internal/service/loyaltyclient"
	"github.com/RAHULYADAV122/Coffee/internal/simulation"
	"github.com/RAHULYADAV122/Coffee/internal/store"
)

type Service interface {
	PostOrder(ctx context.Context, order model.Order) (model.Order, error)
	GetOrders(ctx context.Context) ([]model.Order, error)
	GetWorkers(ctx context.Context) ([]model.Worker, error)
	PostCustomer(ctx context.Context, customer model.Customer) (model.Customer, error)
	GetCustomer(ctx context.Context, email string) (model.Customer, error)
	RunSimulation(ctx context.Context, trials int, seed *int64) ([]simulation.Report, error)
}

var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrAlreadyExists       = errors.New("already exists")
	ErrNotFound            = errors.New("not found")
)

// MaxTrials ограничивает прогон симуляции по HTTP
const MaxTrials = 100

type service struct {
	cfg        config.Config
	store      store.Store
	clock      clock.Clock
	policy     priority.Policy
	roster     roster.Roster
	loyalty    loyaltyclient.LoyaltyClient // nil - берём из таблицы клиентов
	simulation *simulation.Engine
	zaplog     *zap.Logger
}

func NewService(cfg config.Config, store store.Store, clock clock.Clock, engine *simulation.Engine, zaplog *zap.Logger) (Service, error) {
	service := service{
		cfg:        cfg,
		store:      store,
		clock:      clock,
		policy:     priority.Live{},
		roster:     roster.NewRoster(store),
		simulation: engine,
		zaplog:     zaplog,
	}
	if cfg.LoyaltyAddr != "" {
		service.loyalty = loyaltyclient.NewLoyaltyClient(cfg.LoyaltyAddr)
	}

	return &service, nil
}

func (service *service) PostOrder(ctx context.Context, order model.Order) (model.Order, error) {
	if order.Data.Drink == "" {
		return model.Order{}, ErrInsufficientData
	}
	if !model.KnownDrink(order.Data.Drink) {
		return model.Order{}, ErrUnprocessableEntity
	}

	var newOrder model.Order
	newOrder.Data.Customer = order.Data.Customer
	newOrder.Data.Drink = order.Data.Drink
	newOrder.Data.PrepMinutes = model.PrepMinutes(order.Data.Drink)
	newOrder.Data.ArrivedAt = service.clock.Now()
	newOrder.Data.Status = model.OrderStatusPending

	if newOrder.Data.Customer != 0 {
		loyal, err := service.customerLoyalty(ctx, newOrder.Data.Customer)
		if err != nil {
			return model.Order{}, err
		}
		newOrder.Data.Loyalty = loyal
	}
	newOrder.Data.Priority = service.policy.Score(newOrder, newOrder.Data.ArrivedAt)

	return service.store.OrderPost(ctx, newOrder)
}

// customerLoyalty сначала спрашивает внешнюю программу, при её недоступности
// берёт флаг из карточки клиента.
func (service *service) customerLoyalty(ctx context.Context, id int64) (bool, error) {
	customer, err := service.store.CustomerGet(ctx, id)
	if err != nil {
		switch err {
		case store.ErrNoRows:
			return false, ErrUnprocessableEntity
		default:
			return false, err
		}
	}

	if service.loyalty != nil {
		loyal, err := service.loyalty.GetLoyalty(ctx, id)
		if err == nil {
			return loyal, nil
		}
		service.zaplog.Warn("loyalty service unavailable, using local record",
			zap.Int64("customer", id),
			zap.Error(err),
		)
	}
	return customer.Data.Loyalty, nil
}

func (service *service) GetOrders(ctx context.Context) ([]model.Order, error) {
	return service.store.OrderGetAll(ctx)
}

func (service *service) GetWorkers(ctx context.Context) ([]model.Worker, error) {
	return service.roster.Get(ctx)
}

func (service *service) PostCustomer(ctx context.Context, customer model.Customer) (model.Customer, error) {
	customer.Data.Email = strings.TrimSpace(customer.Data.Email)
	if customer.Data.Name == "" || customer.Data.Email == "" {
		return model.Customer{}, ErrInsufficientData
	}
	if !strings.Contains(customer.Data.Email, "@") {
		return model.Customer{}, ErrUnprocessableEntity
	}
	// Проверка по алгоритму Луна
	if customer.Data.Card != "" {
		if !validCard(customer.Data.Card) {
			return model.Customer{}, ErrUnprocessableEntity
		}
		customer.Data.Loyalty = true
	}

	newCustomer, err := service.store.CustomerPost(ctx, customer)
	if err != nil {
		switch err {
		case store.ErrAlreadyExists:
			return model.Customer{}, ErrAlreadyExists
		default:
			return model.Customer{}, err
		}
	}
	return newCustomer, nil
}

func (service *service) GetCustomer(ctx context.Context, email string) (model.Customer, error) {
	if email == "" {
		return model.Customer{}, ErrInsufficientData
	}

	customer, err := service.store.CustomerGetByEmail(ctx, email)
	if err != nil {
		switch err {
		case store.ErrNoRows:
			return model.Customer{}, ErrNotFound
		default:
			return model.Customer{}, err
		}
	}
	return customer, nil
}

// RunSimulation при trials == 0 и seed == nil берёт значения из настроек.
func (service *service) RunSimulation(ctx context.Context, trials int, seed *int64) ([]simulation.Report, error) {
	if trials == 0 {
		trials = service.cfg.SimulationTrials
	}
	if trials < 0 || trials > MaxTrials {
		return nil, ErrUnprocessableEntity
	}
	base := service.cfg.SimulationSeed
	if seed != nil {
		base = *seed
	}

	return service.simulation.Run(ctx, base, trials)
}

func validCard(card string) bool {
	if len(card) < 8 || len(card) > 18 || strings.Trim(card, "0123456789") != "" {
		return false
	}
	number, err := strconv.Atoi(card)
	if err != nil || number <= 0 {
		return false
	}
	return luhn.Valid(number)
}
