package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/backendbuddy/backendbuddy/internal/core/constants"
)

// DefaultConfig returns a configuration with sensible defaults. Read and
// write timeouts stay disabled: the proxy streams request bodies and the
// admin WebSockets are long-lived.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            constants.DefaultAdminPort,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogDir:     "./logs",
			Theme:      "default",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			FileOutput: true,
		},
		Store: StoreConfig{
			Path: "backendbuddy.db",
		},
		TLS: TLSConfig{
			Enabled:  false,
			CertFile: "cert.pem",
			KeyFile:  "key.pem",
		},
	}
}

// Load loads configuration from an optional config file and environment
// variables. BACKENDBUDDY_LOG_LEVEL and USE_HTTPS are honoured directly
// since they predate the config file.
func Load() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("BACKENDBUDDY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if level := os.Getenv("BACKENDBUDDY_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if strings.EqualFold(os.Getenv("USE_HTTPS"), "true") {
		config.TLS.Enabled = true
	}

	return config, nil
}
