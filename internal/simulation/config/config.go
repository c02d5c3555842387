package config

import (
	"fmt"
	"time"
)

type Config struct {
	Workers     int           `yaml:"workers"`
	MinOrders   int           `yaml:"min_orders"`
	MaxOrders   int           `yaml:"max_orders"`
	Window      time.Duration `yaml:"window"` // интервал прихода заказов от открытия
	Step        time.Duration `yaml:"step"`
	MaxSteps    int           `yaml:"max_steps"`
	LoyaltyRate float64       `yaml:"loyalty_rate"`
	Parallelism int           `yaml:"parallelism"` // 0 - без ограничения
}

func (cfg Config) Validate() error {
	switch {
	case cfg.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	case cfg.Step <= 0:
		return fmt.Errorf("step must be positive, got %s", cfg.Step)
	case cfg.MaxSteps <= 0:
		return fmt.Errorf("max_steps must be positive, got %d", cfg.MaxSteps)
	case cfg.Window <= 0:
		return fmt.Errorf("window must be positive, got %s", cfg.Window)
	case cfg.MinOrders < 0 || cfg.MaxOrders < cfg.MinOrders:
		return fmt.Errorf("order count range %d..%d is invalid", cfg.MinOrders, cfg.MaxOrders)
	case cfg.LoyaltyRate < 0 || cfg.LoyaltyRate > 1:
		return fmt.Errorf("loyalty_rate must be within [0, 1], got %g", cfg.LoyaltyRate)
	case cfg.Parallelism < 0:
		return fmt.Errorf("parallelism must not be negative, got %d", cfg.Parallelism)
	}
	return nil
}
