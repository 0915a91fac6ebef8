// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Healer() HealerConfig
	RateLimit() RateLimitConfig
	Security() SecurityConfig
	Backup() BackupConfig
	Audit() AuditConfig
	Runner() RunnerConfig
	LLM() LLMModelConfig
	Git() GitConfig

	SetHealerDryRun(bool)
	SetHealerMaxRetries(int)
	SetHealerResultsPath(string)
	SetHealerProjectRoot(string)
	SetHealerReviewFixes(bool)
	SetGitCommitFixes(bool)
}

// Config holds the entire application configuration.
type Config struct {
	// --- Ambient ---
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	// --- Pipeline ---
	HealerCfg    HealerConfig    `mapstructure:"healer" yaml:"healer"`
	RateLimitCfg RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	SecurityCfg  SecurityConfig  `mapstructure:"security" yaml:"security"`
	// --- Mutation Safety ---
	BackupCfg    BackupConfig    `mapstructure:"backup" yaml:"backup"`
	AuditCfg     AuditConfig     `mapstructure:"audit" yaml:"audit"`
	RunnerCfg    RunnerConfig    `mapstructure:"runner" yaml:"runner"`
	// --- External Services ---
	LLMCfg       LLMModelConfig  `mapstructure:"llm" yaml:"llm"`
	GitCfg       GitConfig       `mapstructure:"git" yaml:"git"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Healer() HealerConfig       { return c.HealerCfg }
func (c *Config) RateLimit() RateLimitConfig { return c.RateLimitCfg }
func (c *Config) Security() SecurityConfig   { return c.SecurityCfg }
func (c *Config) Backup() BackupConfig       { return c.BackupCfg }
func (c *Config) Audit() AuditConfig         { return c.AuditCfg }
func (c *Config) Runner() RunnerConfig       { return c.RunnerCfg }
func (c *Config) LLM() LLMModelConfig        { return c.LLMCfg }
func (c *Config) Git() GitConfig             { return c.GitCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetHealerDryRun(b bool)        { c.HealerCfg.DryRun = b }
func (c *Config) SetHealerMaxRetries(n int)     { c.HealerCfg.MaxRetries = n }
func (c *Config) SetHealerResultsPath(p string) { c.HealerCfg.ResultsPath = p }
func (c *Config) SetHealerProjectRoot(p string) { c.HealerCfg.ProjectRoot = p }
func (c *Config) SetHealerReviewFixes(b bool)   { c.HealerCfg.ReviewFixes = b }
func (c *Config) SetGitCommitFixes(b bool)      { c.GitCfg.CommitFixes = b }

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// HealerConfig drives a healing session.
type HealerConfig struct {
	// ResultsPath is the test results document. Empty means auto-discover
	// under ProjectRoot.
	ResultsPath string `mapstructure:"results_path" yaml:"results_path"`
	ProjectRoot string `mapstructure:"project_root" yaml:"project_root"`
	MaxRetries  int    `mapstructure:"max_retries" yaml:"max_retries"`
	// APITimeout bounds a single reasoning call, not the whole retry loop.
	APITimeout       time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	AbortOnInjection bool          `mapstructure:"abort_on_injection" yaml:"abort_on_injection"`
	ReviewFixes      bool          `mapstructure:"review_fixes" yaml:"review_fixes"`
	DryRun           bool          `mapstructure:"dry_run" yaml:"dry_run"`
	ContextLines     int           `mapstructure:"context_lines" yaml:"context_lines"`
}

// RateLimitConfig bounds calls to the reasoning service.
type RateLimitConfig struct {
	MaxCalls int           `mapstructure:"max_calls" yaml:"max_calls"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// SecurityConfig sets the sanitizer ceilings.
type SecurityConfig struct {
	MaxInputLength int `mapstructure:"max_input_length" yaml:"max_input_length"`
	MaxCodeSize    int `mapstructure:"max_code_size" yaml:"max_code_size"`
}

// BackupConfig controls where backups live and how long they are kept.
type BackupConfig struct {
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	MaxAge   time.Duration `mapstructure:"max_age" yaml:"max_age"`
	MaxCount int           `mapstructure:"max_count" yaml:"max_count"`
}

// AuditConfig locates the append-only audit log.
type AuditConfig struct {
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// RunnerConfig describes how a single test file is re-executed.
// The literal {file} in Command is replaced with the test path.
type RunnerConfig struct {
	Command []string      `mapstructure:"command" yaml:"command"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GitConfig defines the committer identity for verified fixes.
type GitConfig struct {
	CommitFixes bool   `mapstructure:"commit_fixes" yaml:"commit_fixes"`
	AuthorName  string `mapstructure:"author_name" yaml:"author_name"`
	AuthorEmail string `mapstructure:"author_email" yaml:"author_email"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMModelConfig defines the configuration for the reasoning model.
type LLMModelConfig struct {
	Provider          LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model             string            `mapstructure:"model" yaml:"model"`
	FastModel         string            `mapstructure:"fast_model" yaml:"fast_model"`
	APIKey            string            `mapstructure:"api_key" yaml:"-"` // never written back to disk
	APITimeout        time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP              float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK              int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens         int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64           `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	// SafetyFilters maps a harm category name to a block threshold.
	SafetyFilters     map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// Defaults alone always decode; a failure here is a programming error.
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "suture")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	// Color names resolve through the observability color map.
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Healer --
	v.SetDefault("healer.results_path", "")
	v.SetDefault("healer.project_root", ".") // relative display paths and git root
	v.SetDefault("healer.max_retries", 3)
	v.SetDefault("healer.api_timeout", "60s")
	v.SetDefault("healer.abort_on_injection", false)
	v.SetDefault("healer.review_fixes", false)
	v.SetDefault("healer.dry_run", false)
	v.SetDefault("healer.context_lines", 8)

	// -- Rate Limit --
	v.SetDefault("rate_limit.max_calls", 10)
	v.SetDefault("rate_limit.window", "60s")

	// -- Security --
	v.SetDefault("security.max_input_length", 5000)
	v.SetDefault("security.max_code_size", 100000)

	// -- Backup --
	v.SetDefault("backup.dir", ".suture/backups")
	v.SetDefault("backup.max_age", "168h")
	v.SetDefault("backup.max_count", 5)

	// -- Audit --
	v.SetDefault("audit.log_file", ".suture/audit.log")

	// -- Runner --
	// {file} is replaced with the test path before exec.
	v.SetDefault("runner.command", []string{"npx", "playwright", "test", "{file}", "--reporter=json"})
	v.SetDefault("runner.timeout", "2m")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-2.5-pro")
	v.SetDefault("llm.fast_model", "gemini-2.5-flash")
	v.SetDefault("llm.api_timeout", "90s")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.top_p", 0.95)
	v.SetDefault("llm.top_k", 40)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.requests_per_second", 1.0)

	// -- Git --
	v.SetDefault("git.commit_fixes", false)
	v.SetDefault("git.author_name", "suture-bot")
	v.SetDefault("git.author_email", "suture@localhost")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Step 1: bind secrets. Sensitive values come from the environment only.
	_ = v.BindEnv("llm.api_key", "GEMINI_API_KEY", "SUTURE_LLM_API_KEY")

	// Step 2: decode. Durations such as "60s" are parsed by mapstructure hooks.
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Step 3: expand ~ before anything touches the filesystem.
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	// Step 4: reject the config as a whole rather than fail mid-session.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every configured filesystem path.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.HealerCfg.ResultsPath,
		&c.HealerCfg.ProjectRoot,
		&c.BackupCfg.Dir,
		&c.AuditCfg.LogFile,
		&c.LoggerCfg.LogFile,
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.HealerCfg.Validate(); err != nil {
		return fmt.Errorf("healer configuration invalid: %w", err)
	}
	if err := c.RateLimitCfg.Validate(); err != nil {
		return fmt.Errorf("rate_limit configuration invalid: %w", err)
	}
	// -- Security --
	if c.SecurityCfg.MaxInputLength <= 0 {
		return fmt.Errorf("security.max_input_length must be a positive integer")
	}
	if c.SecurityCfg.MaxCodeSize <= 0 {
		return fmt.Errorf("security.max_code_size must be a positive integer")
	}
	// -- Backup and Audit --
	if c.BackupCfg.Dir == "" {
		return fmt.Errorf("backup.dir is required")
	}
	if c.BackupCfg.MaxCount < 0 || c.BackupCfg.MaxAge < 0 {
		return fmt.Errorf("backup.max_count and backup.max_age must not be negative")
	}
	if c.AuditCfg.LogFile == "" {
		return fmt.Errorf("audit.log_file is required")
	}
	// -- Runner --
	if len(c.RunnerCfg.Command) == 0 {
		return fmt.Errorf("runner.command must not be empty")
	}
	if c.RunnerCfg.Timeout <= 0 {
		return fmt.Errorf("runner.timeout must be a positive duration")
	}
	// -- LLM --
	// The API key is checked when a client is built, not here, so that
	// commands which never call the model still run without one.
	if c.LLMCfg.Provider != ProviderGemini {
		return fmt.Errorf("unsupported llm.provider: %q", c.LLMCfg.Provider)
	}
	return nil
}

// Validate checks the healer settings.
func (h *HealerConfig) Validate() error {
	if h.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be greater than 0")
	}
	if h.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	if h.ContextLines < 0 {
		return fmt.Errorf("context_lines must not be negative")
	}
	return nil
}

// Validate checks the rate limit window.
func (r *RateLimitConfig) Validate() error {
	if r.MaxCalls <= 0 {
		return fmt.Errorf("max_calls must be greater than 0")
	}
	if r.Window <= 0 {
		return fmt.Errorf("window must be a positive duration")
	}
	return nil
}
