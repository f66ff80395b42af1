// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. RELAY_HTTP_PORT.
const EnvPrefix = "RELAY"

// Config is the full relay configuration, one section per concern.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	WS      WSConfig      `mapstructure:"ws"`
	Lobby   LobbyConfig   `mapstructure:"lobby"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
}

// HTTPConfig controls the listener and the plain HTTP routes.
type HTTPConfig struct {
	Port       int    `mapstructure:"port"`
	StaticDir  string `mapstructure:"staticDir"`
	HealthPath string `mapstructure:"healthPath"`
}

// Addr is the listen address derived from Port.
func (h HTTPConfig) Addr() string { return fmt.Sprintf(":%d", h.Port) }

// WSConfig tunes each socket's keepalive, write deadline and buffers.
type WSConfig struct {
	PingInterval time.Duration `mapstructure:"pingInterval"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	OutboxSize   int           `mapstructure:"outboxSize"`
	ReadLimit    int64         `mapstructure:"readLimit"`
}

// LobbyConfig sets room code length and the map given to new lobbies.
type LobbyConfig struct {
	CodeLength int    `mapstructure:"codeLength"`
	DefaultMap string `mapstructure:"defaultMap"`
}

// RelayConfig configures the dispatcher.
type RelayConfig struct {
	LegacyGameAction bool `mapstructure:"legacyGameAction"`
	InboxSize        int  `mapstructure:"inboxSize"`
}

// RedisConfig configures the command journal. An empty Addr disables it.
type RedisConfig struct {
	Addr  string `mapstructure:"addr"`
	DB    int    `mapstructure:"db"`
	Queue string `mapstructure:"queue"`
}

// ArchiveConfig is read by the journal tail tool only. An empty DatabaseURL
// means entries are printed but not archived.
type ArchiveConfig struct {
	DatabaseURL   string        `mapstructure:"databaseUrl"`
	BatchSize     int           `mapstructure:"batchSize"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
}

// AuthConfig gates the socket upgrade. An empty JWTSecret leaves /ws open.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.staticDir", "./public")
	v.SetDefault("http.healthPath", "/healthz")

	v.SetDefault("ws.pingInterval", "30s")
	v.SetDefault("ws.writeTimeout", "5s")
	v.SetDefault("ws.outboxSize", 32)
	v.SetDefault("ws.readLimit", 1<<20)

	v.SetDefault("lobby.codeLength", 4)
	v.SetDefault("lobby.defaultMap", "map_default")

	v.SetDefault("relay.legacyGameAction", false)
	v.SetDefault("relay.inboxSize", 256)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "relay_commands")

	v.SetDefault("archive.databaseUrl", "")
	v.SetDefault("archive.batchSize", 20)
	v.SetDefault("archive.flushInterval", "500ms")

	v.SetDefault("auth.jwtSecret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from an optional yaml file in the working
// directory, then environment variables, over built-in defaults.
func Load(logger *logrus.Logger, fileName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PORT is what most hosting platforms inject
	if err := v.BindEnv("http.port", EnvPrefix+"_HTTP_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind http.port: %w", err)
	}

	// DATABASE_URL is the conventional name for the archive DSN
	if err := v.BindEnv("archive.databaseUrl", EnvPrefix+"_ARCHIVE_DATABASEURL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind archive.databaseUrl: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		logger.Debug("config file not found, relying on defaults and env vars")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Lobby.CodeLength <= 0 {
		return fmt.Errorf("lobby.codeLength must be positive, got %d", c.Lobby.CodeLength)
	}
	if !strings.HasPrefix(c.HTTP.HealthPath, "/") {
		return fmt.Errorf("http.healthPath must start with /: %q", c.HTTP.HealthPath)
	}
	return nil
}

// Apply sets the logger's level and formatter.
func (l LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(l.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log.format must be text or json, got %q", l.Format)
	}
	return nil
}
