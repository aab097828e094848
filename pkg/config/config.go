package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the typed configuration shared by the worker and the server.
// It is loaded and validated once in main and passed down by reference.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Gmail    GmailConfig    `yaml:"gmail"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Telegram TelegramConfig `yaml:"telegram"`
	Notify   NotifyConfig   `yaml:"notify"`
	Watch    WatchConfig    `yaml:"watch"`
	Redis    RedisConfig    `yaml:"redis"`
	DB       DBConfig       `yaml:"db"`
	MQ       MQConfig       `yaml:"mq"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// GmailConfig points at the OAuth client secret and the stored user token.
type GmailConfig struct {
	CredentialsFile   string  `yaml:"credentials_file"`
	TokenFile         string  `yaml:"token_file"`
	User              string  `yaml:"user"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type PubSubConfig struct {
	// Subscription is the full resource name,
	// projects/<project>/subscriptions/<name>.
	Subscription string        `yaml:"subscription"`
	MaxMessages  int64         `yaml:"max_messages"`
	Interval     time.Duration `yaml:"interval"`
	PullTimeout  time.Duration `yaml:"pull_timeout"`
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

type TelegramConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BotToken    string `yaml:"bot_token"`
	ChatID      string `yaml:"chat_id"`
	APIEndpoint string `yaml:"api_endpoint"`
}

// NotifyConfig tunes the notification pipeline.
type NotifyConfig struct {
	BodyLimit        int           `yaml:"body_limit"`
	ConsoleBodyLimit int           `yaml:"console_body_limit"`
	ErrorMode        string        `yaml:"error_mode"`
	AckPolicy        string        `yaml:"ack_policy"`
	MaxAttempts      int64         `yaml:"max_attempts"`
	DeadLetter       string        `yaml:"dead_letter"`
	DedupTTL         time.Duration `yaml:"dedup_ttl"`
}

// WatchConfig controls Gmail watch registration. An empty topic disables it.
type WatchConfig struct {
	Topic         string        `yaml:"topic"`
	LabelIDs      []string      `yaml:"label_ids"`
	RenewInterval time.Duration `yaml:"renew_interval"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Enabled reports whether a database host is configured.
func (c DBConfig) Enabled() bool { return c.Host != "" }

// Enabled reports whether a broker URL is configured.
func (c MQConfig) Enabled() bool { return c.URL != "" }

var (
	errorModes  = []string{"continue", "fail_fast"}
	ackPolicies = []string{"ack_all", "dead_letter", "ack_on_success"}
	deadLetters = []string{"log", "postgres", "amqp"}
)

// Default returns the configuration used when a key is absent from every
// source.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Gmail: GmailConfig{
			CredentialsFile:   "credentials.json",
			TokenFile:         "token.json",
			User:              "me",
			RequestsPerSecond: 2,
			Burst:             5,
		},
		PubSub: PubSubConfig{
			MaxMessages: 1,
			PullTimeout: 30 * time.Second,
		},
		Telegram: TelegramConfig{
			Enabled: true,
		},
		Notify: NotifyConfig{
			BodyLimit:        1000,
			ConsoleBodyLimit: 100,
			ErrorMode:        "continue",
			AckPolicy:        "dead_letter",
			MaxAttempts:      5,
			DeadLetter:       "log",
			DedupTTL:         24 * time.Hour,
		},
		Watch: WatchConfig{
			LabelIDs:      []string{"INBOX"},
			RenewInterval: 24 * time.Hour,
		},
		DB: DBConfig{
			Port: 5432,
		},
	}
}

// Validate checks the settings every binary depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			errs = append(errs, errors.New("telegram.bot_token is required when telegram is enabled"))
		}
		if strings.TrimSpace(c.Telegram.ChatID) == "" {
			errs = append(errs, errors.New("telegram.chat_id is required when telegram is enabled"))
		}
	}
	if c.Notify.BodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("notify.body_limit must be positive, got %d", c.Notify.BodyLimit))
	}
	if c.Notify.ConsoleBodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("notify.console_body_limit must be positive, got %d", c.Notify.ConsoleBodyLimit))
	}
	if !oneOf(c.Notify.ErrorMode, errorModes) {
		errs = append(errs, fmt.Errorf("notify.error_mode %q is not one of %v", c.Notify.ErrorMode, errorModes))
	}
	if !oneOf(c.Notify.AckPolicy, ackPolicies) {
		errs = append(errs, fmt.Errorf("notify.ack_policy %q is not one of %v", c.Notify.AckPolicy, ackPolicies))
	}
	if !oneOf(c.Notify.DeadLetter, deadLetters) {
		errs = append(errs, fmt.Errorf("notify.dead_letter %q is not one of %v", c.Notify.DeadLetter, deadLetters))
	}
	if c.Notify.AckPolicy == "ack_on_success" {
		if c.Notify.MaxAttempts < 1 {
			errs = append(errs, errors.New("notify.max_attempts must be at least 1"))
		}
		if !c.Redis.Enabled() {
			errs = append(errs, errors.New("notify.ack_policy ack_on_success needs redis.addr for attempt counting"))
		}
	}
	if c.Notify.DeadLetter == "postgres" && !c.DB.Enabled() {
		errs = append(errs, errors.New("notify.dead_letter postgres needs db.host"))
	}
	if c.Notify.DeadLetter == "amqp" && !c.MQ.Enabled() {
		errs = append(errs, errors.New("notify.dead_letter amqp needs mq.url"))
	}
	return errors.Join(errs...)
}

// Validate checks the settings the pull worker needs on top of Config.Validate.
func (c PubSubConfig) Validate() error {
	if !strings.HasPrefix(c.Subscription, "projects/") || !strings.Contains(c.Subscription, "/subscriptions/") {
		return fmt.Errorf("pubsub.subscription %q must look like projects/<project>/subscriptions/<name>", c.Subscription)
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("pubsub.max_messages must be at least 1, got %d", c.MaxMessages)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideTelegramFromEnv reads the bot credential and the allowed chat id.
func OverrideTelegramFromEnv(cfg *TelegramConfig) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.BotToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.ChatID = chatID
	}
}

func OverridePubSubFromEnv(cfg *PubSubConfig) {
	if sub := os.Getenv("PUBSUB_SUBSCRIPTION"); sub != "" {
		cfg.Subscription = sub
	}
	if path := os.Getenv("PUBSUB_CREDENTIALS_FILE"); path != "" {
		cfg.CredentialsFile = path
	}
}

func OverrideGmailFromEnv(cfg *GmailConfig) {
	if path := os.Getenv("GMAIL_CREDENTIALS_FILE"); path != "" {
		cfg.CredentialsFile = path
	}
	if path := os.Getenv("GMAIL_TOKEN_FILE"); path != "" {
		cfg.TokenFile = path
	}
}
