package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/generate"
	"github.com/starford/ansuz/internal/mochi"
	"github.com/starford/ansuz/internal/proposal"
	"github.com/starford/ansuz/internal/reconcile"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Backup   BackupConfig      `yaml:"backup"`
	Sources  SourcesConfig     `yaml:"sources"`
	Inbox    InboxConfig       `yaml:"inbox"`
	Auth     AuthConfig        `yaml:"auth"`
	Proposal ProposalConfig    `yaml:"proposal"`
	Mochi    MochiConfig       `yaml:"mochi"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.SQLite, &c.Backup, &c.Sources, &c.Inbox, &c.Auth, &c.Proposal, &c.Mochi,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// BackupConfig holds the directory receiving database snapshots.
type BackupConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the backup configuration.
func (c *BackupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SourcesConfig holds the directory where uploaded source files are kept.
type SourcesConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the sources configuration.
func (c *SourcesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// InboxConfig controls the watched drop directory.
type InboxConfig struct {
	Dir     string `yaml:"dir"`
	Enabled bool   `yaml:"enabled"`
	UserID  int64  `yaml:"user_id"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.UserID, validation.Min(int64(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ProposalConfig holds generation and proposal lifecycle settings.
type ProposalConfig struct {
	Backend               string          `yaml:"backend"`
	MaxNotes              int             `yaml:"max_notes"`
	DefaultLang           string          `yaml:"default_lang"`
	MaxSourceChars        int             `yaml:"max_source_chars"`
	TolerateMissingHandle bool            `yaml:"tolerate_missing_handle"`
	MaxConcurrent         int64           `yaml:"max_concurrent"`
	Codex                 CodexConfig     `yaml:"codex"`
	Ollama                OllamaConfig    `yaml:"ollama"`
	Anthropic             AnthropicConfig `yaml:"anthropic"`
}

// CodexConfig configures the codex CLI backend.
type CodexConfig struct {
	Cmd     string        `yaml:"cmd"`
	Model   string        `yaml:"model"`
	WorkDir string        `yaml:"workdir"`
	Timeout time.Duration `yaml:"timeout"`
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig configures the Anthropic Messages API backend.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// Validate validates the proposal configuration.
func (c *ProposalConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.By(func(any) error {
			_, err := generate.ParseBackend(c.Backend)
			return err
		})),
		validation.Field(&c.MaxNotes, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.DefaultLang, validation.Required, validation.Length(2, 2)),
		validation.Field(&c.MaxSourceChars, validation.Required, validation.Min(100)),
		validation.Field(&c.MaxConcurrent, validation.Min(int64(0))),
	); err != nil {
		return fmt.Errorf("proposal: %w", err)
	}
	if b, _ := generate.ParseBackend(c.Backend); b == generate.BackendAnthropic && c.Anthropic.APIKey == "" {
		return errors.New("proposal: anthropic-api backend requires anthropic.api_key")
	}
	return nil
}

// GeneratorOptions converts the configuration into generate.Options.
func (c *ProposalConfig) GeneratorOptions() (generate.Options, error) {
	backend, err := generate.ParseBackend(c.Backend)
	if err != nil {
		return generate.Options{}, err
	}
	return generate.Options{
		Backend:       backend,
		MaxConcurrent: c.MaxConcurrent,
		Codex: generate.CodexOptions{
			Binary:  c.Codex.Cmd,
			Model:   c.Codex.Model,
			WorkDir: c.Codex.WorkDir,
			Timeout: c.Codex.Timeout,
		},
		Ollama: generate.OllamaOptions{
			BaseURL: c.Ollama.BaseURL,
			Model:   c.Ollama.Model,
			Timeout: c.Ollama.Timeout,
		},
		Anthropic: generate.AnthropicOptions{
			APIKey:    c.Anthropic.APIKey,
			Model:     c.Anthropic.Model,
			MaxTokens: c.Anthropic.MaxTokens,
			Retry:     generate.DefaultRetryConfig(),
		},
	}, nil
}

// ServiceConfig converts the configuration into proposal.Config.
func (c *ProposalConfig) ServiceConfig() proposal.Config {
	return proposal.Config{
		MaxNotes:              c.MaxNotes,
		DefaultLang:           c.DefaultLang,
		MaxSourceChars:        c.MaxSourceChars,
		TolerateMissingHandle: c.TolerateMissingHandle,
	}
}

// MochiConfig holds the remote card service settings.
type MochiConfig struct {
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	DeckID        string        `yaml:"deck_id"`
	PageSize      int           `yaml:"page_size"`
	Retries       int           `yaml:"retries"`
	RetrySleep    time.Duration `yaml:"retry_sleep"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

// Validate validates the Mochi configuration.
func (c *MochiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(mochi.MaxPageSize)),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.Timeout, validation.Required),
		validation.Field(&c.RatePerSecond, validation.Min(0.0)),
	)
}

// ClientFactory returns a reconcile.ClientFactory bound to this configuration.
func (c *MochiConfig) ClientFactory(logger *slog.Logger) reconcile.ClientFactory {
	return func(apiKey string) reconcile.Client {
		return mochi.NewClient(mochi.Options{
			BaseURL:       c.BaseURL,
			APIKey:        apiKey,
			Timeout:       c.Timeout,
			Retries:       c.Retries,
			RetrySleep:    c.RetrySleep,
			RatePerSecond: c.RatePerSecond,
			Logger:        logger,
		})
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./data/ansuz.db",
		},
		Backup: BackupConfig{
			Dir: "./data/backups",
		},
		Sources: SourcesConfig{
			Dir: "./data/sources",
		},
		Inbox: InboxConfig{
			Dir: "./data/inbox",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Proposal: ProposalConfig{
			Backend:        "auto",
			MaxNotes:       3,
			DefaultLang:    "en",
			MaxSourceChars: 12000,
			MaxConcurrent:  2,
			Codex: CodexConfig{
				Cmd:     "codex",
				Timeout: 120 * time.Second,
			},
			Ollama: OllamaConfig{
				BaseURL: "http://127.0.0.1:11434",
				Model:   "qwen2.5:3b",
				Timeout: 60 * time.Second,
			},
			Anthropic: AnthropicConfig{
				Model:     "claude-3-5-haiku-latest",
				MaxTokens: 2048,
			},
		},
		Mochi: MochiConfig{
			BaseURL:       mochi.DefaultBaseURL,
			PageSize:      mochi.DefaultPageSize,
			Retries:       4,
			RetrySleep:    600 * time.Millisecond,
			Timeout:       25 * time.Second,
			RatePerSecond: 5,
		},
	}
}
