package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/database"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/gifter"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/hub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/log"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/notify"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/presence"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/pubsub"
	"github.com/LiveStak-Brad/CannaFamApp-sub000/internal/stream"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	PubSub    pubsub.Config   `mapstructure:"pubsub"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Media     MediaConfig     `mapstructure:"media"`
	Session   SessionConfig   `mapstructure:"session"`
	Stream    stream.Config   `mapstructure:"stream"`
	Presence  presence.Config `mapstructure:"presence"`
	Gifter    gifter.Config   `mapstructure:"gifter"`
	Push      notify.Config   `mapstructure:"push"`
	WebSocket hub.Config      `mapstructure:"websocket"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       log.Config      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ToDatabaseConfig converts to the connector's config shape.
func (c DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// MediaConfig configures media grant minting.
type MediaConfig struct {
	AppID       string        `mapstructure:"app_id"`
	TokenSecret string        `mapstructure:"token_secret"`
	TokenIssuer string        `mapstructure:"token_issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// SessionConfig configures the broadcast controller.
type SessionConfig struct {
	// PrimaryHostID is the designated streamer account; going live under
	// it triggers the push fanout.
	PrimaryHostID string `mapstructure:"primary_host_id"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Load reads configuration from ./config/config.yaml plus environment
// variables. A missing config file is fine; env vars carry the day.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8087)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "live_session")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/live.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "live-session")

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")

	v.SetDefault("media.app_id", "cannafam-live")
	v.SetDefault("media.token_secret", "dev-media-secret")
	v.SetDefault("media.token_issuer", "live-session")
	v.SetDefault("media.token_ttl", time.Hour)

	v.SetDefault("session.primary_host_id", "")

	v.SetDefault("stream.window_size", 200)
	v.SetDefault("stream.flash_duration", 5*time.Second)
	v.SetDefault("stream.emote_lifetime", 4*time.Second)
	v.SetDefault("stream.emote_max_active", 30)
	v.SetDefault("stream.self_echo_window", 10*time.Second)

	v.SetDefault("presence.poll_interval", 10*time.Second)
	v.SetDefault("presence.dedup_window", 2*time.Minute)

	v.SetDefault("gifter.global_interval", 30*time.Second)
	v.SetDefault("gifter.session_interval", 15*time.Second)

	v.SetDefault("push.url", "http://localhost:8090/push/batch")
	v.SetDefault("push.timeout", 10*time.Second)
	v.SetDefault("push.batch_size", 2000)

	v.SetDefault("websocket.ping_interval", 30*time.Second)
	v.SetDefault("websocket.pong_wait", 60*time.Second)
	v.SetDefault("websocket.write_wait", 10*time.Second)
	v.SetDefault("websocket.max_message_size", 4096)

	v.SetDefault("cache.prefix", "live")
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "live-session")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("media.app_id", "MEDIA_APP_ID")
	v.BindEnv("media.token_secret", "MEDIA_TOKEN_SECRET")
	v.BindEnv("session.primary_host_id", "PRIMARY_HOST_ID")
	v.BindEnv("push.url", "PUSH_GATEWAY_URL")
	v.BindEnv("push.api_key", "PUSH_GATEWAY_API_KEY")
	v.BindEnv("log.level", "LOG_LEVEL")
}
