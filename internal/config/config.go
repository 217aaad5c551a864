// Package config carga la configuración del servicio desde YAML y
// variables de entorno (las variables pisan el archivo).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver       string `yaml:"driver"` // memory | postgres
		DSN          string `yaml:"dsn"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
		AutoMigrate  bool   `yaml:"auto_migrate"`
	} `yaml:"storage"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Cache struct {
		Driver     string        `yaml:"driver"` // memory | redis
		Prefix     string        `yaml:"prefix"`
		PreviewTTL time.Duration `yaml:"preview_ttl"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Driver  string        `yaml:"driver"` // memory | redis
		Window  time.Duration `yaml:"window"`
		Preview int           `yaml:"preview_limit"`
		Consume int           `yaml:"consume_limit"`
		Auth    int           `yaml:"auth_limit"`
	} `yaml:"rate"`

	JWT struct {
		Issuer     string        `yaml:"issuer"`
		KID        string        `yaml:"kid"`
		SigningKey string        `yaml:"signing_key"` // seed ed25519 base64; vacío = efímera
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Invitations struct {
		TTL              time.Duration `yaml:"ttl"`
		TeacherSingleUse bool          `yaml:"teacher_single_use"`
		LinkBase         string        `yaml:"link_base"`
	} `yaml:"invitations"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		TLSMode  string `yaml:"tls_mode"`
	} `yaml:"smtp"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Default retorna la configuración con defaults razonables para dev.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.IdleTimeout = 60 * time.Second
	c.Storage.Driver = "memory"
	c.Redis.Addr = "localhost:6379"
	c.Cache.Driver = "memory"
	c.Cache.Prefix = "aulaviva"
	c.Cache.PreviewTTL = 5 * time.Minute
	c.Rate.Enabled = true
	c.Rate.Driver = "memory"
	c.Rate.Window = time.Minute
	c.Rate.Preview = 30
	c.Rate.Consume = 10
	c.Rate.Auth = 10
	c.JWT.Issuer = "http://localhost:8080"
	c.JWT.KID = "aulaviva-1"
	c.JWT.AccessTTL = 15 * time.Minute
	c.JWT.RefreshTTL = 30 * 24 * time.Hour
	c.Invitations.TTL = 7 * 24 * time.Hour
	c.Invitations.TeacherSingleUse = true
	c.Invitations.LinkBase = "aulaviva://invite"
	c.SMTP.Port = 587
	c.SMTP.TLSMode = "auto"
	c.Log.Level = "info"
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	return &c
}

// Load lee path (si existe) sobre los defaults, aplica env overrides y valida.
// path vacío o inexistente = solo defaults + env.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.MaxIdleConns = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	// REDIS / CACHE / RATE
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}
	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvDur("CACHE_PREVIEW_TTL"); ok {
		c.Cache.PreviewTTL = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_DRIVER"); ok {
		c.Rate.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_PREVIEW_LIMIT"); ok {
		c.Rate.Preview = v
	}
	if v, ok := getEnvInt("RATE_CONSUME_LIMIT"); ok {
		c.Rate.Consume = v
	}
	if v, ok := getEnvInt("RATE_AUTH_LIMIT"); ok {
		c.Rate.Auth = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvDur("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}

	// INVITATIONS
	if v, ok := getEnvDur("INVITATION_TTL"); ok {
		c.Invitations.TTL = v
	}
	if v, ok := getEnvBool("INVITATION_TEACHER_SINGLE_USE"); ok {
		c.Invitations.TeacherSingleUse = v
	}
	if v, ok := getEnvStr("INVITATION_LINK_BASE"); ok {
		c.Invitations.LinkBase = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS_MODE"); ok {
		c.SMTP.TLSMode = v
	}

	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

// Validate rechaza combinaciones inválidas.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", c.Storage.Driver))
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		errs = append(errs, fmt.Errorf("cache.driver: unknown %q", c.Cache.Driver))
	}
	if c.Rate.Driver != "memory" && c.Rate.Driver != "redis" {
		errs = append(errs, fmt.Errorf("rate.driver: unknown %q", c.Rate.Driver))
	}
	if c.Invitations.TTL <= 0 {
		errs = append(errs, errors.New("invitations.ttl must be positive"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("jwt ttls must be positive"))
	}
	if c.Rate.Enabled && c.Rate.Window <= 0 {
		errs = append(errs, errors.New("rate.window must be positive"))
	}
	return errors.Join(errs...)
}

// IsProd indica si el entorno es producción.
func (c *Config) IsProd() bool {
	return c.App.Env == "prod" || c.App.Env == "production"
}
