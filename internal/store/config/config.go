package config

type Config struct {
	DBDsn string `yaml:"database_uri"`
	// без DSN используется хранилище в памяти
	Memory bool `yaml:"memory"`
}
