package config

type Config struct {
	// адрес внешней программы лояльности, пусто - своя таблица клиентов
	LoyaltyAddr      string `yaml:"loyalty_address"`
	SimulationTrials int    `yaml:"simulation_trials"`
	SimulationSeed   int64  `yaml:"simulation_seed"`
	Workers          int    `yaml:"workers"`
	AdminLogin       string `yaml:"admin_login"`
	AdminPassword    string `yaml:"admin_password"`
}
