/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the wallet backend.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	RelayStatusQueue     string `mapstructure:"RELAY_STATUS_QUEUE"`
	RelayerAPIBaseURL    string `mapstructure:"RELAYER_API_BASE_URL"`
	RelayerAPIKey        string `mapstructure:"RELAYER_API_KEY"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`

	ChainID                      uint64 `mapstructure:"CHAIN_ID"`
	RelayChannelTTLMinutes       int    `mapstructure:"RELAY_CHANNEL_TTL_MINUTES"`
	RecoverConfirmRateLimit      int    `mapstructure:"RECOVER_CONFIRM_RATE_LIMIT_PER_MINUTE"`
	RecoverConfirmRateWindowSecs int    `mapstructure:"RECOVER_CONFIRM_RATE_WINDOW_SECONDS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RELAY_STATUS_QUEUE", "wallet_backend.relay_status")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "stackup:rate_limit")
	viper.SetDefault("CHAIN_ID", 80001)
	// 0 disables the channel-TTL sweeper; pending channels then stay
	// pending until a terminal event arrives.
	viper.SetDefault("RELAY_CHANNEL_TTL_MINUTES", 0)
	viper.SetDefault("RECOVER_CONFIRM_RATE_LIMIT_PER_MINUTE", 5)
	viper.SetDefault("RECOVER_CONFIRM_RATE_WINDOW_SECONDS", 60)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("RELAY_STATUS_QUEUE")
	_ = viper.BindEnv("RELAYER_API_BASE_URL")
	_ = viper.BindEnv("RELAYER_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("CHAIN_ID")
	_ = viper.BindEnv("RELAY_CHANNEL_TTL_MINUTES")
	_ = viper.BindEnv("RECOVER_CONFIRM_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RECOVER_CONFIRM_RATE_WINDOW_SECONDS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Platform-provided PORT (e.g. on a PaaS) overrides SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "stackup:rate_limit"
	}
	if config.RelayChannelTTLMinutes < 0 {
		config.RelayChannelTTLMinutes = 0
	}

	return
}
