package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultFile is read when no config path is given and the file exists.
const DefaultFile = "kyubey.toml"

type Config struct {
	Database DatabaseConfig `toml:"database" json:"database"`
	Server   ServerConfig   `toml:"server" json:"server"`
	Logs     LogsConfig     `toml:"logs" json:"logs"`
}

type DatabaseConfig struct {
	URL             string   `toml:"url" json:"-"`
	MaxOpenConns    int      `toml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type ServerConfig struct {
	Port        int  `toml:"port" json:"port"`
	LogRequests bool `toml:"log_requests" json:"log_requests"`
}

type LogsConfig struct {
	BasePath    string            `toml:"base_path" json:"base_path"`
	StripANSI   bool              `toml:"strip_ansi" json:"strip_ansi"`
	ObjectStore ObjectStoreConfig `toml:"object_store" json:"object_store"`
}

// ObjectStoreConfig points the log reader at an S3-compatible bucket.
// It is used instead of BasePath when Bucket is set.
type ObjectStoreConfig struct {
	Endpoint  string `toml:"endpoint" json:"endpoint"`
	AccessKey string `toml:"access_key" json:"-"`
	SecretKey string `toml:"secret_key" json:"-"`
	Bucket    string `toml:"bucket" json:"bucket"`
	Prefix    string `toml:"prefix" json:"prefix"`
	UseSSL    bool   `toml:"use_ssl" json:"use_ssl"`
}

func (o ObjectStoreConfig) Enabled() bool {
	return o.Bucket != ""
}

// Duration decodes TOML strings such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{30 * time.Minute},
		},
		Server: ServerConfig{
			Port:        3000,
			LogRequests: true,
		},
		Logs: LogsConfig{
			StripANSI: true,
		},
	}
}

// Load resolves the configuration from defaults, the TOML file at path
// (or DefaultFile when present), a .env file and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := cfg.FromFile(path); err != nil {
			return nil, err
		}
	}
	// A missing .env is not an error; existing variables are never overridden.
	_ = godotenv.Load()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile merges the TOML file at path into c. Unknown keys are rejected.
func (c *Config) FromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "decode config file %s", path)
	}
	return checkUndecodedItems(metaData)
}

// FromString merges TOML text into c.
func (c *Config) FromString(data string) error {
	metaData, err := toml.Decode(data, c)
	if err != nil {
		return errors.Wrap(err, "decode config")
	}
	return checkUndecodedItems(metaData)
}

func checkUndecodedItems(metaData toml.MetaData) error {
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return errors.Errorf("unknown config items: %s", strings.Join(undecodedItems, ","))
	}
	return nil
}

// ApplyEnv overrides c with environment variables looked up through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	if v := get("DATABASE_URL"); v != "" {
		c.Database.URL = v
	} else if host := get("DB_HOST"); host != "" {
		c.Database.URL = connString(get("DB_USERNAME"), get("DB_PASSWORD"), host, get("DB_PORT"), get("DB_NAME"))
	}
	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	if v := get("KYUBEY_LOG_BASE_PATH"); v != "" {
		c.Logs.BasePath = v
	}
	if v := get("KYUBEY_STRIP_ANSI"); v != "" {
		strip, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid KYUBEY_STRIP_ANSI %q", v)
		}
		c.Logs.StripANSI = strip
	}

	objectStore := map[string]*string{
		"KYUBEY_OBJECT_STORE_ENDPOINT":   &c.Logs.ObjectStore.Endpoint,
		"KYUBEY_OBJECT_STORE_ACCESS_KEY": &c.Logs.ObjectStore.AccessKey,
		"KYUBEY_OBJECT_STORE_SECRET_KEY": &c.Logs.ObjectStore.SecretKey,
		"KYUBEY_OBJECT_STORE_BUCKET":     &c.Logs.ObjectStore.Bucket,
		"KYUBEY_OBJECT_STORE_PREFIX":     &c.Logs.ObjectStore.Prefix,
	}
	for key, field := range objectStore {
		if v := get(key); v != "" {
			*field = v
		}
	}
	if v := get("KYUBEY_OBJECT_STORE_USE_SSL"); v != "" {
		useSSL, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid KYUBEY_OBJECT_STORE_USE_SSL %q", v)
		}
		c.Logs.ObjectStore.UseSSL = useSSL
	}
	return nil
}

func connString(user, password, host, port, name string) string {
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Validate reports the first setting that makes the configuration unusable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required (set database.url, DATABASE_URL or DB_HOST)")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range 1..65535", c.Server.Port)
	}
	if c.Logs.BasePath == "" && !c.Logs.ObjectStore.Enabled() {
		return errors.New("a log source is required (set logs.base_path or logs.object_store.bucket)")
	}
	if c.Logs.ObjectStore.Enabled() && c.Logs.ObjectStore.Endpoint == "" {
		return errors.New("logs.object_store.endpoint is required when a bucket is set")
	}
	return nil
}
