// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserMode selects how the browser handle is resolved at acquisition time.
type BrowserMode string

const (
	// BrowserModeExplicit launches a configured browser with the allow-list and wait bounds applied.
	BrowserModeExplicit BrowserMode = "explicit"
	// BrowserModeDefault leaves the choice of browser to the agent.
	BrowserModeDefault BrowserMode = "default"
)

// BrowserConfig holds settings for the supervised browser session.
type BrowserConfig struct {
	Mode            BrowserMode   `mapstructure:"mode" yaml:"mode"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	AllowedDomains  []string      `mapstructure:"allowed_domains" yaml:"allowed_domains"`
	MinPageLoadWait time.Duration `mapstructure:"min_page_load_wait" yaml:"min_page_load_wait"`
	MaxPageLoadWait time.Duration `mapstructure:"max_page_load_wait" yaml:"max_page_load_wait"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// LLMProvider defines the supported vision model providers.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderGemini LLMProvider = "gemini"
)

// DefaultOllamaEndpoint is where a local Ollama server listens.
const DefaultOllamaEndpoint = "http://127.0.0.1:11434"

// AgentConfig configures the automation agent and the vision model behind it.
type AgentConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxActions  int           `mapstructure:"max_actions" yaml:"max_actions"`
	UseVision   bool          `mapstructure:"use_vision" yaml:"use_vision"`
	// RateLimit caps model requests per second; 0 disables the cap.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// PathsConfig locates the on-disk prompt library and run logs.
type PathsConfig struct {
	PromptsDir string `mapstructure:"prompts_dir" yaml:"prompts_dir"`
	LogsDir    string `mapstructure:"logs_dir" yaml:"logs_dir"`
}

// DatabaseConfig holds the database connection details. An empty URL keeps
// sessions in memory.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// AllowedOrigins lists the browser origins that may call the API. An entry
	// without a port on a loopback host matches every port.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// DefaultAllowedOrigins admits pages served from the local machine only.
var DefaultAllowedOrigins = []string{"http://localhost", "http://127.0.0.1", "http://[::1]"}

// DefaultAllowedDomains is the Microsoft 365 and SSO allow-list used when none is configured.
var DefaultAllowedDomains = []string{
	"office.com", "www.office.com",
	"login.microsoftonline.com", "microsoftonline.com",
	"microsoft.com", "www.microsoft.com",
	"microsoft365.com", "www.microsoft365.com",
	"outlook.office.com", "outlook.live.com", "www.outlook.com",
	"teams.microsoft.com", "www.teams.microsoft.com",
	"sharepoint.com", "www.sharepoint.com",
	"onedrive.live.com", "www.onedrive.live.com",
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration parameter.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "handoff")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.mode", string(BrowserModeExplicit))
	// The operator has to see the window to complete logins.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.allowed_domains", DefaultAllowedDomains)
	v.SetDefault("browser.min_page_load_wait", "2s")
	v.SetDefault("browser.max_page_load_wait", "25s")
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Agent --
	v.SetDefault("agent.provider", string(ProviderOllama))
	v.SetDefault("agent.model", "llama3.2-vision")
	v.SetDefault("agent.endpoint", DefaultOllamaEndpoint)
	v.SetDefault("agent.api_timeout", "5m")
	v.SetDefault("agent.temperature", 0.1)
	v.SetDefault("agent.max_actions", 25)
	v.SetDefault("agent.use_vision", true)
	v.SetDefault("agent.rate_limit", 0.0)

	// -- Paths --
	v.SetDefault("paths.prompts_dir", "./prompts")
	v.SetDefault("paths.logs_dir", "./logs")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Server --
	v.SetDefault("server.addr", "127.0.0.1:7860")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are only ever read from the environment.
	_ = v.BindEnv("agent.api_key", "HANDOFF_AGENT_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("database.url", "HANDOFF_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if c.Paths.PromptsDir == "" || c.Paths.LogsDir == "" {
		return fmt.Errorf("paths.prompts_dir and paths.logs_dir are required")
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch b.Mode {
	case BrowserModeExplicit, BrowserModeDefault:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", BrowserModeExplicit, BrowserModeDefault, b.Mode)
	}
	if b.MinPageLoadWait < 0 {
		return fmt.Errorf("min_page_load_wait must not be negative")
	}
	if b.MaxPageLoadWait <= 0 {
		return fmt.Errorf("max_page_load_wait must be a positive duration")
	}
	if b.MinPageLoadWait > b.MaxPageLoadWait {
		return fmt.Errorf("min_page_load_wait (%s) exceeds max_page_load_wait (%s)", b.MinPageLoadWait, b.MaxPageLoadWait)
	}
	return nil
}

// Validate checks the agent settings.
func (a *AgentConfig) Validate() error {
	switch a.Provider {
	case ProviderOllama:
		if a.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the ollama provider")
		}
	case ProviderGemini:
		if a.APIKey == "" {
			return fmt.Errorf("Gemini API key is required but not found. Ensure HANDOFF_AGENT_API_KEY or GEMINI_API_KEY is set")
		}
	default:
		return fmt.Errorf("unknown provider %q. Supported: [%s, %s]", a.Provider, ProviderOllama, ProviderGemini)
	}
	if a.Model == "" {
		return fmt.Errorf("model is required")
	}
	if a.MaxActions <= 0 {
		return fmt.Errorf("max_actions must be a positive integer")
	}
	if a.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}
