package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	minPort = 1024
	maxPort = 65535
)

var ErrInvalidPort = errors.New("invalid port")

type Config struct {
	LogLevel     string       `yaml:"log-level" env-default:"info"`
	Port         string       `yaml:"port" env-default:"8002"`
	UserDatabase UserDatabase `yaml:"user-database"`
	Redis        Redis        `yaml:"redis"`
}

type UserDatabase struct {
	Backend string `yaml:"backend" env-default:"file"`
	Path    string `yaml:"path" env-default:"./users.json"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	if err := config.validate(); err != nil {
		panic(err)
	}

	return config
}

func (that *Config) validate() error {
	port, err := strconv.Atoi(that.Port)
	if err != nil || port < minPort || port > maxPort {
		return fmt.Errorf("%w: %q, expecting an integer in range %d-%d", ErrInvalidPort, that.Port, minPort, maxPort)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
