package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/viper"
)

// MinSecretKeyLength is the minimum signing key size in bytes.
const MinSecretKeyLength = 32

// ErrInvalidConfig marks any configuration problem detected at startup.
var ErrInvalidConfig = errors.New("invalid configuration")

type ServerConfig struct {
	Port string `mapstructure:"port"`
	// TrustedProxies lists the addresses or CIDR ranges whose X-Forwarded-For header is honored.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Migrate  bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig is the signing configuration consumed by the token service.
type JWTConfig struct {
	SecretKey          string `mapstructure:"secret_key"`
	Issuer             string `mapstructure:"issuer"`
	Audience           string `mapstructure:"audience"`
	AccessTokenMinutes int    `mapstructure:"access_token_minutes"`
	RefreshTokenDays   int    `mapstructure:"refresh_token_days"`
	RevokeChainOnReuse bool   `mapstructure:"revoke_chain_on_reuse"`
}

type PasswordConfig struct {
	Algorithm         string `mapstructure:"algorithm"`
	BcryptCost        int    `mapstructure:"bcrypt_cost"`
	Argon2MemoryKiB   uint32 `mapstructure:"argon2_memory_kib"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SeedConfig describes the bootstrap administrator. An empty password disables seeding.
type SeedConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Password PasswordConfig `mapstructure:"password"`
	Log      LogConfig      `mapstructure:"log"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

var AppConfig Config

// LoadConfig reads config.yml from path (optional), applies environment
// overrides such as JWT_SECRET_KEY and validates the result into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Load is LoadConfig without touching the package-level AppConfig.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "taskmanager")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.issuer", "task-manager-api")
	v.SetDefault("jwt.audience", "task-manager-clients")
	v.SetDefault("jwt.access_token_minutes", 30)
	v.SetDefault("jwt.refresh_token_days", 7)
	v.SetDefault("jwt.revoke_chain_on_reuse", true)

	v.SetDefault("password.algorithm", "argon2id")
	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("password.argon2_memory_kib", 64*1024)
	v.SetDefault("password.argon2_iterations", 3)
	v.SetDefault("password.argon2_parallelism", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("seed.admin_username", "admin")
	v.SetDefault("seed.admin_email", "admin@taskmanager.com")
	v.SetDefault("seed.admin_password", "")
}

// Validate reports every missing or out-of-range value that would make the
// service unable to start.
func (c *Config) Validate() error {
	var problems []string

	if err := c.JWT.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("database.driver must be postgres or memory, got %q", c.Database.Driver))
	}

	switch c.Password.Algorithm {
	case "argon2id", "bcrypt", "sha256":
	default:
		problems = append(problems, fmt.Sprintf("password.algorithm must be argon2id, bcrypt or sha256, got %q", c.Password.Algorithm))
	}

	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	}
	for _, p := range c.Server.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			problems = append(problems, fmt.Sprintf("server.trusted_proxies: %v", err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks the signing configuration on its own so the token service
// can refuse to start with a bad key even when built outside LoadConfig.
func (j JWTConfig) Validate() error {
	var problems []string
	if len(j.SecretKey) < MinSecretKeyLength {
		problems = append(problems, fmt.Sprintf("jwt.secret_key must be at least %d bytes", MinSecretKeyLength))
	}
	if strings.TrimSpace(j.Issuer) == "" {
		problems = append(problems, "jwt.issuer is required")
	}
	if strings.TrimSpace(j.Audience) == "" {
		problems = append(problems, "jwt.audience is required")
	}
	if j.AccessTokenMinutes <= 0 {
		problems = append(problems, "jwt.access_token_minutes must be positive")
	}
	if j.RefreshTokenDays <= 0 {
		problems = append(problems, "jwt.refresh_token_days must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ParseProxy accepts a single address or a CIDR range.
func ParseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid proxy range %q", s)
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid proxy address %q", s)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
