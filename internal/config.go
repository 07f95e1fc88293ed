package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled   = "disabled"
	AuthModeToken      = "token"
	AuthModeIntrospect = "introspect"
)

// Object storage backends.
const (
	ObjectsBackendFS = "fs"
	ObjectsBackendS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Objects ObjectsConfig     `yaml:"objects"`
	Auth    AuthConfig        `yaml:"auth"`
	Model   ModelConfig       `yaml:"model"`
	Cron    CronConfig        `yaml:"cron"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Objects.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Model.Validate()
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

// ObjectsConfig holds attachment storage configuration.
//
// Backend selects the provider:
//   - "fs" (default): local directory, suitable for single-host setups.
//   - "s3": any S3-compatible object store; Bucket must be set.
type ObjectsConfig struct {
	Backend        string   `yaml:"backend"`
	Path           string   `yaml:"path"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	S3             S3Config `yaml:"s3"`
}

// S3Config holds S3 connection configuration.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Validate validates the objects configuration.
func (c *ObjectsConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = ObjectsBackendFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(ObjectsBackendFS, ObjectsBackendS3)),
	); err != nil {
		return err
	}
	if c.Backend == ObjectsBackendFS && c.Path == "" {
		return fmt.Errorf("objects: backend is %q but path is empty", ObjectsBackendFS)
	}
	if c.Backend == ObjectsBackendS3 && c.S3.Bucket == "" {
		return fmt.Errorf("objects: backend is %q but s3.bucket is empty", ObjectsBackendS3)
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the owner identity is resolved:
//   - "disabled" (default): every request maps to Owner, for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "introspect": bearer tokens are resolved through an OAuth2-style
//     introspection endpoint; IntrospectURL must be non-empty.
type AuthConfig struct {
	Mode          string `yaml:"mode"`
	Token         string `yaml:"token"`
	Owner         string `yaml:"owner"`
	IntrospectURL string `yaml:"introspect_url"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if c.Owner == "" {
		c.Owner = "local"
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(AuthModeDisabled, AuthModeToken, AuthModeIntrospect)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	if c.Mode == AuthModeIntrospect && c.IntrospectURL == "" {
		return fmt.Errorf("auth: mode is %q but introspect_url is empty", AuthModeIntrospect)
	}
	return nil
}

// ModelConfig holds model provider configuration. The api key is only
// needed by the HTTP server; the MCP subcommand runs without one, so the
// requirement is enforced at server startup rather than here.
type ModelConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Validate validates the model configuration.
func (c *ModelConfig) Validate() error {
	return nil
}

// CronConfig guards the cron endpoints.
type CronConfig struct {
	Token string `yaml:"token"`
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
			Path: "./minne.db",
		},
		Objects: ObjectsConfig{
			Backend:        ObjectsBackendFS,
			Path:           "./attachments",
			MaxUploadBytes: 20 << 20,
		},
		Auth: AuthConfig{
			Mode:  AuthModeDisabled,
			Owner: "local",
		},
	}
}
