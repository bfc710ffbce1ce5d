package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/codex/internal/generation"
	"github.com/starford/codex/internal/manuscript"
	"github.com/starford/codex/internal/manuscriptservice"
	"github.com/starford/codex/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Storage     StorageConfig     `yaml:"storage"`
	Generation  GenerationConfig  `yaml:"generation"`
	Composer    ComposerConfig    `yaml:"composer"`
	Views       ViewsConfig       `yaml:"views"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.Storage, &c.Generation, &c.Composer, &c.Attachments, &c.Auth,
	}
	for _, v := range validators {
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

// StorageConfig selects the persistence driver.
//
// Path is the database file for the sqlite driver and the directory for the
// file driver. Watch reloads edits made by other processes and only applies
// to the file driver.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	Watch  bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = storage.DriverSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(storage.DriverSQLite, storage.DriverFile, storage.DriverMemory)),
		validation.Field(&c.Path, validation.When(c.Driver != storage.DriverMemory, validation.Required)),
	)
}

// WatchEnabled reports whether the file watcher should run.
func (c *StorageConfig) WatchEnabled() bool {
	return c.Watch && c.Driver == storage.DriverFile
}

// GenerationConfig configures the text generation backend. An empty API key
// disables generation.
type GenerationConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c *GenerationConfig) toGeneration() generation.Config {
	return generation.Config{APIKey: c.APIKey, Model: c.Model, Timeout: c.Timeout}
}

// ComposerConfig tunes the composer.
type ComposerConfig struct {
	ManualThreshold int    `yaml:"manual_threshold"`
	DefaultTopic    string `yaml:"default_topic"`
	TimestampLayout string `yaml:"timestamp_layout"`
}

// Validate validates the composer configuration.
func (c *ComposerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ManualThreshold, validation.Min(0)),
		validation.Field(&c.DefaultTopic, validation.RuneLength(0, 200)),
	)
}

// ViewsConfig holds the kanban column labels.
type ViewsConfig struct {
	KanbanColumns []string `yaml:"kanban_columns"`
}

// AttachmentsConfig holds the directory uploaded images are stored in.
type AttachmentsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the attachments configuration.
func (c *AttachmentsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, for a journal on localhost.
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

func (c *Config) serviceConfig() manuscriptservice.Config {
	return manuscriptservice.Config{
		KanbanColumns:     c.Views.KanbanColumns,
		GenerationTimeout: c.Generation.Timeout,
		Composer: manuscript.ComposerConfig{
			ManualThreshold: c.Composer.ManualThreshold,
			DefaultTopic:    c.Composer.DefaultTopic,
		},
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
		Storage: StorageConfig{
			Driver: storage.DriverSQLite,
			Path:   "./codex.db",
			Watch:  true,
		},
		Generation: GenerationConfig{
			Model:   generation.DefaultModel,
			Timeout: generation.DefaultTimeout,
		},
		Composer: ComposerConfig{
			ManualThreshold: manuscript.DefaultManualThreshold,
			DefaultTopic:    manuscript.DefaultTopic,
			TimestampLayout: manuscript.DefaultTimestampLayout,
		},
		Views: ViewsConfig{
			KanbanColumns: manuscriptservice.DefaultKanbanColumns,
		},
		Attachments: AttachmentsConfig{
			Path: "./attachments",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
