package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/mdstrip/internal/ledger"
	"github.com/starford/mdstrip/internal/rewrite"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var localeRe = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Content ContentConfig     `yaml:"content"`
	Links   LinksConfig       `yaml:"links"`
	Ledger  LedgerConfig      `yaml:"ledger"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Links.Validate(); err != nil {
		return err
	}
	if err := c.Ledger.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// LedgerPath returns the ledger location. A relative path is taken
// relative to the content root so each root keeps its own ledger.
func (c *Config) LedgerPath() string {
	if filepath.IsAbs(c.Ledger.Path) {
		return c.Ledger.Path
	}
	return filepath.Join(c.Content.Root, c.Ledger.Path)
}

// RewriteLinks returns the link settings used by the rewrite pipeline.
func (c *Config) RewriteLinks() rewrite.LinkConfig {
	return rewrite.LinkConfig{
		Origin:       c.Links.Origin,
		Locale:       c.Links.Locale,
		ResourcesDir: c.Content.ResourcesDir,
		AssetsDir:    c.Content.AssetsDir,
	}
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

// ContentConfig describes the content root being rewritten.
// ResourcesDir and AssetsDir are relative to Root.
type ContentConfig struct {
	Root         string `yaml:"root"`
	ResourcesDir string `yaml:"resources_dir"`
	AssetsDir    string `yaml:"assets_dir"`
	Workers      int    `yaml:"workers"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	if c.Workers == 0 {
		c.Workers = ledger.DefaultWorkers
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.ResourcesDir, validation.Required),
		validation.Field(&c.AssetsDir, validation.Required),
		validation.Field(&c.Workers, validation.Min(1), validation.Max(64)),
	)
}

// LinksConfig holds the remote documentation site used for unresolved terms.
type LinksConfig struct {
	Origin string `yaml:"origin"`
	Locale string `yaml:"locale"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Origin, validation.Required, is.URL),
		validation.Field(&c.Locale, validation.Required, validation.Match(localeRe)),
	)
}

// LedgerConfig holds the SQLite ledger location.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the ledger configuration.
func (c *LedgerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	links := rewrite.DefaultLinks()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Root:         ".",
			ResourcesDir: links.ResourcesDir,
			AssetsDir:    links.AssetsDir,
			Workers:      ledger.DefaultWorkers,
		},
		Links: LinksConfig{
			Origin: links.Origin,
			Locale: links.Locale,
		},
		Ledger: LedgerConfig{
			Path: ".mdstrip/ledger.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
