package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML file location.
const ConfigPathEnvVar = "GATEKEEPER_CONFIG"

var DefaultConfigPaths = []string{
	"gatekeeper.yaml",
	"gatekeeper.yml",
	"/etc/gatekeeper/gatekeeper.yaml",
}

type Config struct {
	Env string `koanf:"env"` // "dev" | "prod"

	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Photos    PhotosConfig    `koanf:"photos"`
	Auth      AuthConfig      `koanf:"auth"`
	MQTT      MQTTConfig      `koanf:"mqtt"`
	Checkins  CheckinConfig   `koanf:"checkins"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	HTTPAddr       string        `koanf:"http_addr"`
	GRPCAddr       string        `koanf:"grpc_addr"` // empty disables the health endpoint
	CORSOrigins    []string      `koanf:"cors_origins"`
	LoginRateLimit int           `koanf:"login_rate_limit"` // attempts per minute per IP
	ShutdownGrace  time.Duration `koanf:"shutdown_grace"`
}

type StorageConfig struct {
	Driver  string `koanf:"driver"` // "json" | "sqlite"
	DataDir string `koanf:"data_dir"`
	DBPath  string `koanf:"db_path"`
}

type PhotosConfig struct {
	Driver      string `koanf:"driver"` // "fs" | "s3"
	Dir         string `koanf:"dir"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3PathStyle bool   `koanf:"s3_path_style"`
	S3Prefix    string `koanf:"s3_prefix"`

	// Static credentials; the default AWS chain is used when empty.
	S3AccessKeyID     string `koanf:"s3_access_key_id"`
	S3SecretAccessKey string `koanf:"s3_secret_access_key"`
}

type AuthConfig struct {
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	SessionSecret string        `koanf:"session_secret"` // random per process when empty
	SessionTTL    time.Duration `koanf:"session_ttl"`
}

type MQTTConfig struct {
	Broker      string `koanf:"broker"` // empty disables publishing
	ClientID    string `koanf:"client_id"`
	TopicPrefix string `koanf:"topic_prefix"`
	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
}

// CheckinConfig controls check-in history retention.
type CheckinConfig struct {
	RetentionDays      int `koanf:"retention_days"` // 0 = keep forever
	PruneIntervalHours int `koanf:"prune_interval_hours"`
}

type BootstrapConfig struct {
	CardUIDs []string `koanf:"card_uids"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() Config {
	return Config{
		Env: "dev",
		Server: ServerConfig{
			HTTPAddr:       ":3000",
			LoginRateLimit: 10,
			ShutdownGrace:  5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:  "json",
			DataDir: "./data",
			DBPath:  "./data/gatekeeper.db",
		},
		Photos: PhotosConfig{
			Driver:   "fs",
			Dir:      "./data/photos",
			S3Region: "us-east-1",
		},
		Auth: AuthConfig{
			Username:   "admin",
			Password:   "esp32admin",
			SessionTTL: time.Hour,
		},
		MQTT: MQTTConfig{
			ClientID:    "gatekeeper-server",
			TopicPrefix: "gatekeeper",
		},
		Checkins: CheckinConfig{
			RetentionDays:      30,
			PruneIntervalHours: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads .env (if present), the first config file found, then GATEKEEPER_*
// environment variables. Later layers win.
func Load() (Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("GATEKEEPER_", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitSliceFields(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.HTTPAddr) == "" {
		return errors.New("server.http_addr is required")
	}
	switch c.Storage.Driver {
	case "json":
		if c.Storage.DataDir == "" {
			return errors.New("storage.data_dir is required for the json driver")
		}
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("storage.db_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver %q is not one of json, sqlite", c.Storage.Driver)
	}
	switch c.Photos.Driver {
	case "fs":
		if c.Photos.Dir == "" {
			return errors.New("photos.dir is required for the fs driver")
		}
	case "s3":
		if c.Photos.S3Bucket == "" {
			return errors.New("photos.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("photos.driver %q is not one of fs, s3", c.Photos.Driver)
	}
	if c.Auth.Username == "" || c.Auth.Password == "" {
		return errors.New("auth.username and auth.password are required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Checkins.RetentionDays < 0 {
		return errors.New("checkins.retention_days must not be negative")
	}
	return nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.Photos.Driver = strings.ToLower(strings.TrimSpace(c.Photos.Driver))
	if c.Checkins.PruneIntervalHours <= 0 {
		c.Checkins.PruneIntervalHours = 6
	}
}

// UsesDefaultCredentials reports whether the shipped admin password is still in use.
func (c Config) UsesDefaultCredentials() bool {
	d := defaultConfig().Auth
	return c.Auth.Username == d.Username && c.Auth.Password == d.Password
}

var envKeys = map[string]string{
	"gatekeeper_env":                     "env",
	"gatekeeper_http_addr":               "server.http_addr",
	"gatekeeper_grpc_addr":               "server.grpc_addr",
	"gatekeeper_cors_origins":            "server.cors_origins",
	"gatekeeper_login_rate_limit":        "server.login_rate_limit",
	"gatekeeper_shutdown_grace":          "server.shutdown_grace",
	"gatekeeper_storage_driver":          "storage.driver",
	"gatekeeper_data_dir":                "storage.data_dir",
	"gatekeeper_db_path":                 "storage.db_path",
	"gatekeeper_photos_driver":           "photos.driver",
	"gatekeeper_photos_dir":              "photos.dir",
	"gatekeeper_photos_s3_bucket":        "photos.s3_bucket",
	"gatekeeper_photos_s3_region":        "photos.s3_region",
	"gatekeeper_photos_s3_endpoint":      "photos.s3_endpoint",
	"gatekeeper_photos_s3_path_style":    "photos.s3_path_style",
	"gatekeeper_photos_s3_prefix":        "photos.s3_prefix",
	"gatekeeper_photos_s3_access_key_id": "photos.s3_access_key_id",
	"gatekeeper_photos_s3_secret_key":    "photos.s3_secret_access_key",
	"gatekeeper_admin_username":          "auth.username",
	"gatekeeper_admin_password":          "auth.password",
	"gatekeeper_session_secret":          "auth.session_secret",
	"gatekeeper_session_ttl":             "auth.session_ttl",
	"gatekeeper_mqtt_broker":             "mqtt.broker",
	"gatekeeper_mqtt_client_id":          "mqtt.client_id",
	"gatekeeper_mqtt_topic_prefix":       "mqtt.topic_prefix",
	"gatekeeper_mqtt_username":           "mqtt.username",
	"gatekeeper_mqtt_password":           "mqtt.password",
	"gatekeeper_checkin_retention_days":  "checkins.retention_days",
	"gatekeeper_prune_interval_hours":    "checkins.prune_interval_hours",
	"gatekeeper_bootstrap_card_uids":     "bootstrap.card_uids",
	"gatekeeper_log_level":               "logging.level",
	"gatekeeper_log_format":              "logging.format",
}

// envTransform maps GATEKEEPER_* variables to koanf paths. Unknown names are
// ignored rather than guessed.
func envTransform(key string) string {
	return envKeys[strings.ToLower(key)]
}

var sliceKeys = []string{"server.cors_origins", "bootstrap.card_uids"}

func splitSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := splitCSV(s)
		if parts == nil {
			parts = []string{}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
