package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Media    MediaConfig    `mapstructure:"media"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`

	// TokenLifetimeMinutes is the lifetime of access tokens in minutes.
	TokenLifetimeMinutes int `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`

	// RefreshTokenLifetimeMinutes is the lifetime of refresh tokens in minutes.
	// Must be longer than the access token lifetime.
	RefreshTokenLifetimeMinutes int `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`

	// VerificationTokenLifetimeMinutes is the lifetime of the single-use
	// email verification tokens issued at registration.
	VerificationTokenLifetimeMinutes int `mapstructure:"verification_token_lifetime_minutes" validate:"required,gt=0"`
}

// RedisConfig contains settings for the capsule list cache. The cache is
// optional: an empty address disables it and every list hits the store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// MediaConfig contains settings for the S3-backed media store. An empty
// bucket disables media uploads.
type MediaConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`

	// Endpoint overrides the S3 endpoint for local development
	// (e.g. a LocalStack or MinIO instance).
	Endpoint string `mapstructure:"endpoint"`
}
