package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port                int `mapstructure:"port"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// 行锁等待上限，超时后返回 ResourceBusy
	LockWaitTimeoutSeconds int `mapstructure:"lock_wait_timeout_seconds"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	ContractEvents string `mapstructure:"contract_events"`
	AuctionEvents  string `mapstructure:"auction_events"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	// 业务时区，用于计算到期日和计息天数
	Timezone                    string `mapstructure:"timezone"`
	OverdueSweepIntervalMinutes int    `mapstructure:"overdue_sweep_interval_minutes"`
	OutboxIntervalMs            int    `mapstructure:"outbox_interval_ms"`
	OutboxBatchSize             int    `mapstructure:"outbox_batch_size"`
	MaxRetryCount               int    `mapstructure:"max_retry_count"`
	ConflictRetryAttempts       int    `mapstructure:"conflict_retry_attempts"`
}

func (b BusinessConfig) Location() (*time.Location, error) {
	return time.LoadLocation(b.Timezone)
}

// LocationOrUTC is Location for callers holding an already validated config.
func (b BusinessConfig) LocationOrUTC() *time.Location {
	loc, err := b.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}

func (b BusinessConfig) OverdueSweepInterval() time.Duration {
	return time.Duration(b.OverdueSweepIntervalMinutes) * time.Minute
}

func (b BusinessConfig) OutboxInterval() time.Duration {
	return time.Duration(b.OutboxIntervalMs) * time.Millisecond
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)

	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "")
	v.SetDefault("mysql.database", "pawnshop")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.lock_wait_timeout_seconds", 5)

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.contract_events", "pawn.contract.events")
	v.SetDefault("kafka.topic.auction_events", "pawn.auction.events")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("business.timezone", "Asia/Jakarta")
	v.SetDefault("business.overdue_sweep_interval_minutes", 60)
	v.SetDefault("business.outbox_interval_ms", 1000)
	v.SetDefault("business.outbox_batch_size", 100)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.conflict_retry_attempts", 3)
}

// LoadConfig 加载配置文件。configPath 为空时只使用默认值和 PAWN_ 前缀的环境变量。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if c.MySQL.Database == "" {
		errs = append(errs, errors.New("mysql.database is required"))
	}
	if c.MySQL.LockWaitTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("mysql.lock_wait_timeout_seconds must be positive"))
	}
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required"))
	}
	if _, err := c.Business.Location(); err != nil {
		errs = append(errs, fmt.Errorf("business.timezone: %w", err))
	}
	if c.Business.OverdueSweepIntervalMinutes <= 0 {
		errs = append(errs, errors.New("business.overdue_sweep_interval_minutes must be positive"))
	}
	if c.Business.OutboxIntervalMs <= 0 || c.Business.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("business outbox interval and batch size must be positive"))
	}
	if c.Business.ConflictRetryAttempts <= 0 {
		errs = append(errs, errors.New("business.conflict_retry_attempts must be positive"))
	}
	return errors.Join(errs...)
}
