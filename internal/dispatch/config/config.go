package config

import (
	"fmt"
	"time"
)

type Config struct {
	AssignInterval   time.Duration `yaml:"assign_interval"`
	CompleteInterval time.Duration `yaml:"complete_interval"`
	Policy           string        `yaml:"policy"`
	Strategy         string        `yaml:"strategy"`
}

func (cfg Config) Validate() error {
	if cfg.AssignInterval <= 0 {
		return fmt.Errorf("assign_interval must be positive, got %s", cfg.AssignInterval)
	}
	if cfg.CompleteInterval <= 0 {
		return fmt.Errorf("complete_interval must be positive, got %s", cfg.CompleteInterval)
	}
	return nil
}
