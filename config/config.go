package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	GeoIP   GeoIPConfig   `yaml:"geoip"`
}

type ServerConfig struct {
	Port     string `yaml:"port"`
	GinMode  string `yaml:"gin_mode"`
	FEOrigin string `yaml:"fe_origin"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type GeoIPConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080"},
		Storage: StorageConfig{DataDir: "data"},
		Kafka:   KafkaConfig{Topic: "analytics.events"},
	}
}

// Load reads a YAML config file, expanding ${ENV_VAR} references before
// unmarshalling. Missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}

	return cfg, nil
}
