package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Channel   ChannelConfig   `mapstructure:"channel"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type QueueConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BackoffBase  time.Duration `mapstructure:"backoff_base"`
	BackoffCap   time.Duration `mapstructure:"backoff_cap"`
	LeaseTimeout time.Duration `mapstructure:"lease_timeout"`
}

type MonitorConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	QueueName string        `mapstructure:"queue_name"`
}

type ChannelConfig struct {
	TransportURL   string        `mapstructure:"transport_url"`
	TransportToken string        `mapstructure:"transport_token"`
	StateTTL       time.Duration `mapstructure:"state_ttl"`
	RecentBuffer   int           `mapstructure:"recent_buffer"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("RELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only deployments are fine as long as defaults cover the rest
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.environment", "dev")
	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("queue.poll_interval", "1s")
	viper.SetDefault("queue.batch_size", 10)
	viper.SetDefault("queue.max_attempts", 3)
	viper.SetDefault("queue.backoff_base", "2s")
	viper.SetDefault("queue.backoff_cap", "30s")
	viper.SetDefault("queue.lease_timeout", "2m")
	viper.SetDefault("monitor.interval", "15s")
	viper.SetDefault("monitor.queue_name", "outbound-messages")
	viper.SetDefault("channel.state_ttl", "30s")
	viper.SetDefault("channel.recent_buffer", 256)
	viper.SetDefault("ratelimit.requests_per_second", 20)
}
