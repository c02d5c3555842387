package config

type Config struct {
	ServerAddr  string `yaml:"server_address"`
	TokenSecret string `yaml:"token_secret"`
}
