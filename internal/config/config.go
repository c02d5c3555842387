package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	dispatchConfig "github.com/RAHULYADAV122/Coffee/internal/dispatch/config"
	handlerConfig "github.com/RAHULYADAV122/Coffee/internal/handler/config"
	loggerConfig "github.com/RAHULYADAV122/Coffee/internal/logger/config"
	serviceConfig "github.com/RAHULYADAV122/Coffee/internal/service/config"
	simulationConfig "github.com/RAHULYADAV122/Coffee/internal/simulation/config"
	storeConfig "github.com/RAHULYADAV122/Coffee/internal/store/config"
)

type Config struct {
	Handler    handlerConfig.Config    `yaml:"handler"`
	Service    serviceConfig.Config    `yaml:"service"`
	Store      storeConfig.Config      `yaml:"store"`
	Logger     loggerConfig.Config     `yaml:"logger"`
	Dispatch   dispatchConfig.Config   `yaml:"dispatch"`
	Simulation simulationConfig.Config `yaml:"simulation"`
}

// GetConfig returns the defaults overridden by environment variables.
func GetConfig() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func Default() Config {
	return Config{
		Handler: handlerConfig.Config{
			ServerAddr:  ":8080",
			TokenSecret: "coffee-secret",
		},
		Service: serviceConfig.Config{
			SimulationTrials: 10,
			SimulationSeed:   1,
			Workers:          3,
			AdminLogin:       "admin",
			AdminPassword:    "admin",
		},
		Logger: loggerConfig.Config{
			LogLevel: "info",
		},
		Dispatch: dispatchConfig.Config{
			AssignInterval:   5 * time.Second,
			CompleteInterval: 2 * time.Second,
			Policy:           "live",
			Strategy:         "greedy",
		},
		Simulation: simulationConfig.Config{
			Workers:     3,
			MinOrders:   200,
			MaxOrders:   300,
			Window:      3 * time.Hour,
			Step:        30 * time.Second,
			MaxSteps:    10000,
			LoyaltyRate: 0.2,
			Parallelism: 4,
		},
	}
}

// Load reads a YAML file on top of the defaults, then applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate отбрасывает значения, с которыми такты или симуляция не работают.
func (cfg Config) Validate() error {
	if cfg.Service.Workers <= 0 {
		return fmt.Errorf("service: workers must be positive, got %d", cfg.Service.Workers)
	}
	if err := cfg.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if err := cfg.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	if v, ok := os.LookupEnv("RUN_ADDRESS"); ok {
		cfg.Handler.ServerAddr = v
	}
	if v, ok := os.LookupEnv("TOKEN_SECRET"); ok {
		cfg.Handler.TokenSecret = v
	}
	if v, ok := os.LookupEnv("DATABASE_URI"); ok {
		cfg.Store.DBDsn = v
	}
	if v, ok := os.LookupEnv("LOYALTY_SYSTEM_ADDRESS"); ok {
		cfg.Service.LoyaltyAddr = v
	}
	if v, ok := os.LookupEnv("ADMIN_PASSWORD"); ok {
		cfg.Service.AdminPassword = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Logger.LogLevel = v
	}
	if v, ok := os.LookupEnv("ASSIGN_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dispatch.AssignInterval = d
		}
	}
	if v, ok := os.LookupEnv("COMPLETE_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Dispatch.CompleteInterval = d
		}
	}
	if v, ok := os.LookupEnv("SIMULATION_SEED"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Service.SimulationSeed = n
		}
	}
}
