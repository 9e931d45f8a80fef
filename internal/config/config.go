package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Token locations accepted in JWT_TOKEN_LOCATION.
const (
	LocationHeaders = "headers"
	LocationCookies = "cookies"
)

// Storage backends accepted in STORAGE_BACKEND.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Roles     RolesConfig
	RateLimit RateLimitConfig
	OAuth     OAuthConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StorageConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	DSN     string
	Timeout time.Duration
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	RateLimitDB int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool
	TokenLocation   []string
}

// InHeaders reports whether bearer headers are an accepted token location.
func (j JWTConfig) InHeaders() bool { return contains(j.TokenLocation, LocationHeaders) }

// InCookies reports whether cookies are an accepted token location.
func (j JWTConfig) InCookies() bool { return contains(j.TokenLocation, LocationCookies) }

// InitialRole is a role seeded at startup.
type InitialRole struct {
	Name        string
	Description string
}

type RolesConfig struct {
	DefaultUserRole string
	PremiumRole     string
	AdminRole       string
	Initial         []InitialRole
}

// Seeds reports whether name is among the initial roles.
func (r RolesConfig) Seeds(name string) bool {
	for _, role := range r.Initial {
		if role.Name == name {
			return true
		}
	}
	return false
}

type RateLimitConfig struct {
	RequestsPerMinute int
	PublicRPS         float64
	PublicBurst       int
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether the provider has credentials.
func (p OAuthProviderConfig) Enabled() bool { return p.ClientID != "" && p.ClientSecret != "" }

type OAuthConfig struct {
	RedirectBaseURL    string
	Google             OAuthProviderConfig
	GoogleIssuer       string
	Yandex             OAuthProviderConfig
	YandexUserInfoURL  string
	AllowInsecureToken bool
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_BACKEND", BackendMongo)
	v.SetDefault("MONGODB_DATABASE", "auth")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("POSTGRES_TIMEOUT", 10)
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_RATE_LIMIT_DB", 9)
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRES", 1)
	v.SetDefault("JWT_REFRESH_TOKEN_EXPIRES", 720)
	v.SetDefault("JWT_COOKIE_SECURE", false)
	v.SetDefault("JWT_TOKEN_LOCATION", "headers, cookies")
	v.SetDefault("ROLE_DEFAULT_USER_ROLE", "user")
	v.SetDefault("ROLE_PREMIUM_ROLE", "subscriber")
	v.SetDefault("ROLE_ADMIN_ROLE", "admin")
	v.SetDefault("ROLE_INITIAL_ROLES", "user:Registered user,subscriber:Premium subscriber,admin:Administrator")
	v.SetDefault("REQUEST_LIMIT_PER_MINUTE", 20)
	v.SetDefault("PUBLIC_RATE_LIMIT_RPS", 5)
	v.SetDefault("PUBLIC_RATE_LIMIT_BURST", 10)
	v.SetDefault("OAUTH_REDIRECT_BASE_URL", "http://localhost:5001")
	v.SetDefault("OAUTH_GOOGLE_ISSUER", "https://accounts.google.com")
	v.SetDefault("OAUTH_YANDEX_USER_INFO_URL", "https://login.yandex.ru/info?format=json")

	initial, err := ParseInitialRoles(v.GetString("ROLE_INITIAL_ROLES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			DSN:     v.GetString("POSTGRES_DSN"),
			Timeout: time.Duration(v.GetInt("POSTGRES_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:        v.GetString("REDIS_HOST"),
			Port:        v.GetString("REDIS_PORT"),
			Password:    v.GetString("REDIS_PASSWORD"),
			DB:          v.GetInt("REDIS_DB"),
			RateLimitDB: v.GetInt("REDIS_RATE_LIMIT_DB"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET_KEY"),
			AccessTokenTTL:  time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRES")) * time.Hour,
			RefreshTokenTTL: time.Duration(v.GetInt("JWT_REFRESH_TOKEN_EXPIRES")) * time.Hour,
			CookieSecure:    v.GetBool("JWT_COOKIE_SECURE"),
			TokenLocation:   ParseTokenLocation(v.GetString("JWT_TOKEN_LOCATION")),
		},
		Roles: RolesConfig{
			DefaultUserRole: v.GetString("ROLE_DEFAULT_USER_ROLE"),
			PremiumRole:     v.GetString("ROLE_PREMIUM_ROLE"),
			AdminRole:       v.GetString("ROLE_ADMIN_ROLE"),
			Initial:         initial,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: v.GetInt("REQUEST_LIMIT_PER_MINUTE"),
			PublicRPS:         v.GetFloat64("PUBLIC_RATE_LIMIT_RPS"),
			PublicBurst:       v.GetInt("PUBLIC_RATE_LIMIT_BURST"),
		},
		OAuth: OAuthConfig{
			RedirectBaseURL:    strings.TrimRight(v.GetString("OAUTH_REDIRECT_BASE_URL"), "/"),
			Google:             OAuthProviderConfig{ClientID: v.GetString("OAUTH_GOOGLE_CLIENT_ID"), ClientSecret: v.GetString("OAUTH_GOOGLE_CLIENT_SECRET")},
			GoogleIssuer:       v.GetString("OAUTH_GOOGLE_ISSUER"),
			Yandex:             OAuthProviderConfig{ClientID: v.GetString("OAUTH_YANDEX_CLIENT_ID"), ClientSecret: v.GetString("OAUTH_YANDEX_CLIENT_SECRET")},
			YandexUserInfoURL:  v.GetString("OAUTH_YANDEX_USER_INFO_URL"),
			AllowInsecureToken: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive (access=%s refresh=%s)", c.JWT.AccessTokenTTL, c.JWT.RefreshTokenTTL)
	}
	if len(c.JWT.TokenLocation) == 0 {
		return fmt.Errorf("JWT_TOKEN_LOCATION must name at least one of %q, %q", LocationHeaders, LocationCookies)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("REQUEST_LIMIT_PER_MINUTE must be positive")
	}
	if c.Roles.DefaultUserRole == "" {
		return fmt.Errorf("ROLE_DEFAULT_USER_ROLE is required")
	}
	if !c.Roles.Seeds(c.Roles.DefaultUserRole) {
		return fmt.Errorf("ROLE_DEFAULT_USER_ROLE %q is not one of ROLE_INITIAL_ROLES", c.Roles.DefaultUserRole)
	}
	if c.Roles.AdminRole != "" && !c.Roles.Seeds(c.Roles.AdminRole) {
		return fmt.Errorf("ROLE_ADMIN_ROLE %q is not one of ROLE_INITIAL_ROLES", c.Roles.AdminRole)
	}
	switch c.Storage.Backend {
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo storage backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres storage backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

// ParseTokenLocation splits a comma-separated location list, keeping only known values.
func ParseTokenLocation(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if (p == LocationHeaders || p == LocationCookies) && !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// ParseInitialRoles parses "name:description,name2:description2".
func ParseInitialRoles(raw string) ([]InitialRole, error) {
	var roles []InitialRole
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc, _ := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("ROLE_INITIAL_ROLES: empty role name in %q", part)
		}
		roles = append(roles, InitialRole{Name: name, Description: strings.TrimSpace(desc)})
	}
	return roles, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
