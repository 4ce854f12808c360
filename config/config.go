package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var configFile string

type Config struct {
	// Store
	StoreURL     string        `mapstructure:"store.url"`
	StoreDBName  string        `mapstructure:"store.db_name"`
	StoreTimeout time.Duration `mapstructure:"store.timeout"`

	// Broker
	BrokerHost            string        `mapstructure:"broker.host"`
	BrokerPort            int           `mapstructure:"broker.port"`
	BrokerUsername        string        `mapstructure:"broker.username"`
	BrokerPassword        string        `mapstructure:"broker.password"`
	BrokerConnectTimeout  time.Duration `mapstructure:"broker.connect_timeout"`
	BrokerReconnectPeriod time.Duration `mapstructure:"broker.reconnect_period"`

	// Topics
	InboundTopic  string `mapstructure:"topics.inbound"`
	OutboundTopic string `mapstructure:"topics.outbound"`
	StatusTopic   string `mapstructure:"topics.status"`

	// Batching
	BatchWindowMS int `mapstructure:"batch.window_ms"`

	// HTTP Server
	HTTPServerAddress string        `mapstructure:"server.address"`
	HTTPServerTimeout time.Duration `mapstructure:"server.timeout"`
	CorsEnabled       bool          `mapstructure:"server.cors_enabled"`
	CorsOrigins       []string      `mapstructure:"server.cors_origins"`

	// Logging
	LogLevel  string `mapstructure:"logging.level"`
	LogFormat string `mapstructure:"logging.format"`
}

// BatchWindow returns the batch window as a duration.
func (c Config) BatchWindow() time.Duration {
	return time.Duration(c.BatchWindowMS) * time.Millisecond
}

// BrokerURL returns the broker address in the form the MQTT client expects.
func (c Config) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.BrokerHost, c.BrokerPort)
}

func SetConfigFile(file string) {
	configFile = file
}

func LoadConfig() (Config, error) {
	var config Config

	viper.SetConfigType("yaml")

	// Set defaults
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigName("config")
	}

	// Handle environment variables
	viper.SetEnvPrefix("FLEETSTATS")
	viper.AutomaticEnv()
	bindEnvOverrides()

	if err := viper.ReadInConfig(); err != nil {
		// Running from environment variables alone is supported
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, fmt.Errorf("error loading configuration: %w", err)
		}
	}

	// The struct tags are dotted key paths, so decode from a flat view of
	// the settings rather than viper's nested tree.
	flat := viper.NewWithOptions(viper.KeyDelimiter("::"))
	for _, key := range viper.AllKeys() {
		flat.Set(key, viper.Get(key))
	}

	if err := flat.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("error unmarshaling configuration: %w", err)
	}

	return config, nil
}

// bindEnvOverrides maps the flat environment variable names used in
// deployment manifests onto their config keys.
func bindEnvOverrides() {
	viper.BindEnv("store.url", "STORE_URL")
	viper.BindEnv("store.db_name", "STORE_DB_NAME")
	viper.BindEnv("broker.host", "BROKER_HOST")
	viper.BindEnv("broker.port", "BROKER_PORT")
	viper.BindEnv("broker.username", "BROKER_USERNAME")
	viper.BindEnv("broker.password", "BROKER_PASSWORD")
	viper.BindEnv("topics.inbound", "INBOUND_TOPIC")
	viper.BindEnv("batch.window_ms", "BATCH_WINDOW_MS")
	viper.BindEnv("logging.level", "LOG_LEVEL")
}

// Set default configuration values
func setDefaults() {
	// Store
	viper.SetDefault("store.url", "mongodb://localhost:27017")
	viper.SetDefault("store.db_name", "fleet")
	viper.SetDefault("store.timeout", "30s")

	// Broker
	viper.SetDefault("broker.host", "localhost")
	viper.SetDefault("broker.port", 1883)
	viper.SetDefault("broker.connect_timeout", "30s")
	viper.SetDefault("broker.reconnect_period", "5s")

	// Topics
	viper.SetDefault("topics.inbound", "fleet/vehicles/generated")
	viper.SetDefault("topics.outbound", "emi-gateway-materialized-view-updates")
	viper.SetDefault("topics.status", "fleet/reporter/status")

	// Batching
	viper.SetDefault("batch.window_ms", 1000)

	// HTTP Server
	viper.SetDefault("server.address", "0.0.0.0:8080")
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("server.cors_enabled", true)
	viper.SetDefault("server.cors_origins", []string{"*"})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
