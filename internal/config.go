package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Index   IndexConfig       `yaml:"index"`
	Auth    AuthConfig        `yaml:"auth"`
	Search  SearchConfig      `yaml:"search"`
	Catalog CatalogConfig     `yaml:"catalog"`
	MCP     MCPConfig         `yaml:"mcp"`
	CORS    CORSConfig        `yaml:"cors"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.SQLite, &c.Index, &c.Auth, &c.Search, &c.Catalog, &c.Events} {
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

// SQLiteConfig holds the primary database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// IndexConfig holds the search index database configuration.
type IndexConfig struct {
	Path string `yaml:"path"`
	// ReindexOnStart rebuilds every team's index when the server starts.
	ReindexOnStart bool `yaml:"reindex_on_start"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no credentials required; requests act as DefaultUser.
//   - "token": static Bearer token; requests act as DefaultUser.
//   - "jwt": HS256 Bearer JWT signed with Secret; the subject is the user.
type AuthConfig struct {
	Mode        string `yaml:"mode"`
	Token       string `yaml:"token"`
	Secret      string `yaml:"secret"`
	Issuer      string `yaml:"issuer"`
	DefaultUser string `yaml:"default_user"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
		validation.Field(&c.DefaultUser, validation.When(c.Mode != AuthModeJWT, validation.Required)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeJWT && c.Secret == "" {
		return fmt.Errorf("auth: mode is %q but secret is empty", AuthModeJWT)
	}
	return nil
}

// AuthEnabled returns true when requests must carry credentials.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken || c.Mode == AuthModeJWT
}

// SearchConfig holds filter compilation and session settings.
type SearchConfig struct {
	// GroupClauses parenthesizes multi-value field clauses in compiled
	// expressions. Off reproduces the flat "a OR b AND c" form.
	GroupClauses bool          `yaml:"group_clauses"`
	SessionSize  int           `yaml:"session_size"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SessionSize, validation.Required, validation.Min(1)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Second)),
	)
}

// CatalogConfig points at a directory of asset-type templates applied to
// one team. An empty Path disables the catalog.
type CatalogConfig struct {
	Path     string        `yaml:"path"`
	TeamID   string        `yaml:"team_id"`
	Debounce time.Duration `yaml:"debounce"`
	Watch    bool          `yaml:"watch"`
}

// Enabled reports whether a catalog directory is configured.
func (c *CatalogConfig) Enabled() bool { return c.Path != "" }

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TeamID, validation.When(c.Enabled(), validation.Required)),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// MCPConfig holds the identity the stdio MCP server acts as.
type MCPConfig struct {
	UserID string `yaml:"user_id"`
	TeamID string `yaml:"team_id"`
}

// Validate validates the MCP configuration. It is only checked by the mcp
// command.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UserID, validation.Required),
	)
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EventsConfig holds SSE settings.
type EventsConfig struct {
	FacetsThrottle time.Duration `yaml:"facets_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FacetsThrottle, validation.Min(time.Duration(0))),
	)
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
			Path: "./othala.db",
		},
		Index: IndexConfig{
			Path:           "./othala-index.db",
			ReindexOnStart: true,
		},
		Auth: AuthConfig{
			Mode:        AuthModeDisabled,
			Issuer:      "othala",
			DefaultUser: "local",
		},
		Search: SearchConfig{
			GroupClauses: true,
			SessionSize:  1024,
			SessionTTL:   30 * time.Minute,
		},
		Catalog: CatalogConfig{
			Debounce: 200 * time.Millisecond,
			Watch:    true,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Events: EventsConfig{
			FacetsThrottle: 2 * time.Second,
		},
	}
}
