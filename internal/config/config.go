// Package config loads host and client settings with viper: defaults, an
// optional JSON or YAML file, then AOW_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"age-of-war/server/internal/world"
)

// EnvPrefix namespaces environment overrides, e.g. AOW_SERVER_ADDR.
const EnvPrefix = "AOW"

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	DatagramAddr string `mapstructure:"datagramAddr"`
	FrameRate    int    `mapstructure:"frameRate"`
	LobbyName    string `mapstructure:"lobbyName"`
	Pprof        bool   `mapstructure:"pprof"`
}

type SyncConfig struct {
	Profile  string  `mapstructure:"profile"`
	Interval float64 `mapstructure:"interval"`
}

type IntakeConfig struct {
	RatePerSecond float64 `mapstructure:"ratePerSecond"`
	Burst         int     `mapstructure:"burst"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LoggingConfig struct {
	Level    string   `mapstructure:"level"`
	Sinks    []string `mapstructure:"sinks"`
	JSONPath string   `mapstructure:"jsonPath"`
	GELFAddr string   `mapstructure:"gelfAddr"`
	// Categories maps an event category to its own minimum level.
	Categories map[string]string `mapstructure:"categories"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"serviceName"`
}

type ClientConfig struct {
	ServerURL string        `mapstructure:"serverUrl"`
	PlayerID  string        `mapstructure:"playerId"`
	Name      string        `mapstructure:"name"`
	Headless  bool          `mapstructure:"headless"`
	Audio     bool          `mapstructure:"audio"`
	Datagram  bool          `mapstructure:"datagram"`
	Fallback  time.Duration `mapstructure:"fallback"`
}

// Config is the full settings tree.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Match   world.Settings `mapstructure:"match"`
	Sync    SyncConfig     `mapstructure:"sync"`
	Intake  IntakeConfig   `mapstructure:"intake"`
	Store   StoreConfig    `mapstructure:"store"`
	Logging LoggingConfig  `mapstructure:"logging"`
	Influx  InfluxConfig   `mapstructure:"influx"`
	OTel    OTelConfig     `mapstructure:"otel"`
	Client  ClientConfig   `mapstructure:"client"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.datagramAddr", "")
	v.SetDefault("server.frameRate", 60)
	v.SetDefault("server.lobbyName", "")
	v.SetDefault("server.pprof", false)

	def := world.DefaultSettings()
	v.SetDefault("match.mode", string(def.Mode))
	v.SetDefault("match.gameSpeed", def.GameSpeed)
	v.SetDefault("match.unitCost", def.UnitCost)
	v.SetDefault("match.goldMult", def.GoldMult)
	v.SetDefault("match.xpMult", def.XPMult)
	v.SetDefault("match.baseHp", def.BaseHP)
	v.SetDefault("match.xpReq", def.XPReq)
	v.SetDefault("match.layout", string(def.Layout))

	v.SetDefault("sync.profile", "default")
	v.SetDefault("sync.interval", 0.0)

	v.SetDefault("intake.ratePerSecond", 20.0)
	v.SetDefault("intake.burst", 10)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.sinks", []string{"console"})
	v.SetDefault("logging.jsonPath", "")
	v.SetDefault("logging.gelfAddr", "localhost:12201")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "age-of-war")
	v.SetDefault("influx.bucket", "matches")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.serviceName", "age-of-war")

	v.SetDefault("client.serverUrl", "ws://localhost:8080/ws")
	v.SetDefault("client.playerId", "")
	v.SetDefault("client.name", "")
	v.SetDefault("client.headless", false)
	v.SetDefault("client.audio", true)
	v.SetDefault("client.datagram", true)
	v.SetDefault("client.fallback", "500ms")
}

// Load reads path when non-empty and applies environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("config file not found: %w", err)
			}
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	cfg.Match = cfg.Match.Normalized()
	return cfg, nil
}
