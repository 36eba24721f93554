package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// EnvPrefix prefixes the environment variables that override file values,
// e.g. SHORTENER_HTTP_SERVER_PORT or SHORTENER_REMOTE_LOG_TOKEN.
const EnvPrefix = "SHORTENER"

type Config struct {
	Env        string     `yaml:"env" envconfig:"env"`
	BaseURL    string     `yaml:"base_url" envconfig:"base_url"`
	HTTPServer HTTPServer `yaml:"http_server" envconfig:"http_server"`
	ShortCode  ShortCode  `yaml:"short_code" envconfig:"short_code"`
	URL        URL        `yaml:"url" envconfig:"url"`
	RemoteLog  RemoteLog  `yaml:"remote_log" envconfig:"remote_log"`
	RateLimit  RateLimit  `yaml:"rate_limit" envconfig:"rate_limit"`
	CORS       CORS       `yaml:"cors" envconfig:"cors"`
}

type HTTPServer struct {
	Port            int           `yaml:"port" envconfig:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"max_header_bytes"`
	CertFile        string        `yaml:"cert_file" envconfig:"cert_file"`
	KeyFile         string        `yaml:"key_file" envconfig:"key_file"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy      bool          `yaml:"trust_proxy" envconfig:"trust_proxy"`
}

var defaultHTTPServer = HTTPServer{
	Port:            8080,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    10 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 10 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type ShortCode struct {
	Length int `yaml:"length" envconfig:"length"`
}

var defaultShortCode = ShortCode{
	Length: 6,
}

type URL struct {
	DefaultValidity time.Duration `yaml:"default_validity" envconfig:"default_validity"`
	ClickLocation   string        `yaml:"click_location" envconfig:"click_location"`
}

var defaultURL = URL{
	DefaultValidity: 30 * time.Minute,
	ClickLocation:   "India",
}

// RemoteLog configures the best-effort log shipper. An empty Endpoint disables it.
type RemoteLog struct {
	Endpoint  string        `yaml:"endpoint" envconfig:"endpoint"`
	Token     string        `yaml:"token" envconfig:"token"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"timeout"`
	QueueSize int           `yaml:"queue_size" envconfig:"queue_size"`
}

var defaultRemoteLog = RemoteLog{
	Timeout:   3 * time.Second,
	QueueSize: 256,
}

// RateLimit configures the per-client limiter. A non-positive RPS disables it.
type RateLimit struct {
	RPS   float64 `yaml:"rps" envconfig:"rps"`
	Burst int     `yaml:"burst" envconfig:"burst"`
}

var defaultRateLimit = RateLimit{
	RPS:   20,
	Burst: 40,
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"allowed_origins"`
}

var defaultCORS = CORS{
	AllowedOrigins: []string{"http://localhost:3000"},
}

// Load reads the YAML config at path on top of the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to process env overrides: %w", op, err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	if c.HTTPServer.Port <= 0 || c.HTTPServer.Port > 65535 {
		return fmt.Errorf("http_server.port out of range: %d", c.HTTPServer.Port)
	}

	if c.Env == EnvProd && (c.HTTPServer.CertFile == "" || c.HTTPServer.KeyFile == "") {
		return fmt.Errorf("http_server.cert_file and http_server.key_file are required in %s", EnvProd)
	}

	if c.URL.DefaultValidity <= 0 {
		return fmt.Errorf("url.default_validity must be positive")
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.HTTPServer = defaultHTTPServer
	cfg.ShortCode = defaultShortCode
	cfg.URL = defaultURL
	cfg.RemoteLog = defaultRemoteLog
	cfg.RateLimit = defaultRateLimit
	cfg.CORS = defaultCORS
}
