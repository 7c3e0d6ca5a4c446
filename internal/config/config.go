package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/fabrica-cultura/senhas/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "senhas.json"

	// DefaultPort is the default panel server port.
	DefaultPort = 8080

	// DefaultHost is the default panel server host.
	DefaultHost = "localhost"

	// DefaultDriver is the default storage driver.
	DefaultDriver = "sqlite"

	// DefaultDSN is the default SQLite database file.
	DefaultDSN = "senhas.db"

	// DefaultChannel is the default broadcast channel.
	DefaultChannel = "fabrica-cultura-sync"

	// DefaultLogoMaxBytes caps logo uploads at 2 MiB.
	DefaultLogoMaxBytes = 2 << 20
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

// Logo backends.
const (
	LogoDataURL = "dataurl"
	LogoDisk    = "disk"
	LogoS3      = "s3"
)

// Config represents the complete senhas.json configuration.
type Config struct {
	// Name labels this panel in logs and metrics.
	Name string `json:"name,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Storage selects the persistent store.
	Storage StorageConfig `json:"storage,omitempty"`

	// Bus configures the broadcast channel.
	Bus BusConfig `json:"bus,omitempty"`

	// Logo configures where uploaded logos go.
	Logo LogoConfig `json:"logo,omitempty"`

	// Alert configures the transmission alert.
	Alert AlertConfig `json:"alert,omitempty"`

	// Log configures logging.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains panel server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// PublicURL is the origin used in transmission links. Defaults to
	// the request origin.
	PublicURL string `json:"publicUrl,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g. "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`

	// Metrics exposes /metrics when true.
	Metrics bool `json:"metrics,omitempty"`
}

// StorageConfig selects and configures the persistent store.
type StorageConfig struct {
	// Driver is one of memory, sqlite, mysql, redis.
	Driver string `json:"driver,omitempty"`

	// DSN is the database/sql data source for sqlite and mysql.
	DSN string `json:"dsn,omitempty"`

	// Table is the key-value table for SQL drivers.
	Table string `json:"table,omitempty"`

	// Redis configures the redis driver and the bus bridge.
	Redis RedisConfig `json:"redis,omitempty"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// BusConfig configures the broadcast channel.
type BusConfig struct {
	// Channel is the channel name every context joins.
	Channel string `json:"channel,omitempty"`

	// Bridge relays the channel over Redis pub/sub so several panel
	// processes on the device share it. Uses Storage.Redis.
	Bridge bool `json:"bridge,omitempty"`
}

// LogoConfig configures logo uploads.
type LogoConfig struct {
	// Backend is one of dataurl, disk, s3.
	Backend string `json:"backend,omitempty"`

	// MaxBytes caps the upload size.
	MaxBytes int64 `json:"maxBytes,omitempty"`

	// Dir is the directory for the disk backend.
	Dir string `json:"dir,omitempty"`

	// URLPrefix is the public prefix the disk backend serves from.
	URLPrefix string `json:"urlPrefix,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 bucket settings for logo uploads.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// AlertConfig configures the transmission alert.
type AlertConfig struct {
	// Dwell is how long a counter stays highlighted (e.g. "4s").
	Dwell string `json:"dwell,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{Name: "senhas"}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for senhas.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. Comments and
// trailing commas are allowed.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E160").
				WithDetail("No senhas.json found in " + filepath.Dir(path)).
				WithSuggestion("Create senhas.json or run without --config to use the defaults")
		}
		return nil, errors.New("E161").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
		return nil, errors.New("E161").
			WithDetail("Failed to parse senhas.json: " + err.Error()).
			WithSuggestion("Check that senhas.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E161").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E180").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "senhas"
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}

	// Storage
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultDriver
	}
	if c.Storage.DSN == "" && c.Storage.Driver == DriverSQLite {
		c.Storage.DSN = DefaultDSN
	}
	if c.Storage.Table == "" {
		c.Storage.Table = "senhas_state"
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = "localhost:6379"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "senhas:"
	}

	// Bus
	if c.Bus.Channel == "" {
		c.Bus.Channel = DefaultChannel
	}

	// Logo
	if c.Logo.Backend == "" {
		c.Logo.Backend = LogoDataURL
	}
	if c.Logo.MaxBytes == 0 {
		c.Logo.MaxBytes = DefaultLogoMaxBytes
	}
	if c.Logo.Dir == "" {
		c.Logo.Dir = "logos"
	}
	if c.Logo.URLPrefix == "" {
		c.Logo.URLPrefix = "/logos/"
	}

	// Alert
	if c.Alert.Dwell == "" {
		c.Alert.Dwell = "4s"
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E162").
			WithDetail("server.port must be between 0 and 65535")
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	case DriverMySQL:
		if c.Storage.DSN == "" {
			return errors.New("E162").WithDetail("storage.dsn is required for the mysql driver")
		}
	default:
		return errors.New("E102").
			WithDetail("Unknown storage driver " + strconv.Quote(c.Storage.Driver))
	}
	switch c.Logo.Backend {
	case LogoDataURL, LogoDisk:
	case LogoS3:
		if c.Logo.S3.Bucket == "" {
			return errors.New("E162").WithDetail("logo.s3.bucket is required for the s3 backend")
		}
	default:
		return errors.New("E162").
			WithDetail("logo.backend must be dataurl, disk or s3")
	}
	if c.Logo.MaxBytes < 0 {
		return errors.New("E162").WithDetail("logo.maxBytes must not be negative")
	}
	for name, value := range map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"alert.dwell":            c.Alert.Dwell,
	} {
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return errors.New("E162").
				WithDetail(name + " must be a duration such as \"4s\"")
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E162").WithDetail("log.format must be text or json")
	}
	return nil
}

// Address returns the listen address of the panel server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the base URL of the panel server.
func (c *Config) URL() string {
	if c.Server.PublicURL != "" {
		return c.Server.PublicURL
	}
	return "http://" + c.Address()
}

// ShutdownTimeout returns the parsed graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Dwell returns the parsed alert highlight duration.
func (c *Config) Dwell() time.Duration {
	d, err := time.ParseDuration(c.Alert.Dwell)
	if err != nil {
		return 4 * time.Second
	}
	return d
}

// LogoDir returns the absolute path of the disk logo directory.
func (c *Config) LogoDir() string {
	if filepath.IsAbs(c.Logo.Dir) {
		return c.Logo.Dir
	}
	return filepath.Join(c.Dir(), c.Logo.Dir)
}

// SQLitePath resolves a relative SQLite DSN against the config directory.
func (c *Config) SQLitePath() string {
	dsn := c.Storage.DSN
	if dsn == "" || dsn == ":memory:" || filepath.IsAbs(dsn) || c.Dir() == "" {
		return dsn
	}
	if len(dsn) > 5 && dsn[:5] == "file:" {
		return dsn
	}
	return filepath.Join(c.Dir(), dsn)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing senhas.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E160").
				WithDetail("No senhas.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest senhas.json at or
// above the working directory, or the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return New(), nil
	}
	return Load(root)
}
