package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string
	HTTP        HTTP
	Admin       AdminHTTP
	CORSOrigins []string `mapstructure:"cors_origins"`
	// HomePath is where clients land after deleting their account.
	HomePath string `mapstructure:"home_path"`
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type OAuthClient struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type OAuth struct {
	Google          OAuthClient
	GitHub          OAuthClient `mapstructure:"github"`
	TimeoutSec      int         `mapstructure:"timeout_sec"`
	SuccessRedirect string      `mapstructure:"success_redirect"`
	FailureRedirect string      `mapstructure:"failure_redirect"`
	CookieSecure    bool        `mapstructure:"cookie_secure"`
}

func (o OAuth) Timeout() time.Duration { return time.Duration(o.TimeoutSec) * time.Second }

type Media struct {
	Root         string
	PublicPrefix string `mapstructure:"public_prefix"`
}

type Lock struct {
	// Backend is "local" (single process) or "redis".
	Backend string
	TTLMs   int `mapstructure:"ttl_ms"`
	WaitMs  int `mapstructure:"wait_ms"`
}

type Username struct {
	MaxLen          int `mapstructure:"max_len"`
	NumericAttempts int `mapstructure:"numeric_attempts"`
	NumericMax      int `mapstructure:"numeric_max"`
	RandomAttempts  int `mapstructure:"random_attempts"`
	RandomLen       int `mapstructure:"random_len"`
}

type Identity struct {
	Lock     Lock
	Username Username
}

type Lifecycle struct {
	// DestroyMode is "hard" or "soft" for the account row itself.
	DestroyMode string `mapstructure:"destroy_mode"`
}

type Config struct {
	App       App
	Log       Log
	JWT       JWT
	DB        DB
	Redis     Redis `mapstructure:"redis"`
	OAuth     OAuth `mapstructure:"oauth"`
	Media     Media
	Identity  Identity
	Lifecycle Lifecycle
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "portfolio-accounts")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 10)
	v.SetDefault("app.http.writetimeoutsec", 15)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.home_path", "/")
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "portfolio-accounts")
	v.SetDefault("jwt.accesstokenttlmin", 60*24)
	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("oauth.timeout_sec", 10)
	v.SetDefault("oauth.success_redirect", "/")
	v.SetDefault("oauth.failure_redirect", "/login")
	v.SetDefault("media.root", "./storage")
	v.SetDefault("media.public_prefix", "/storage")
	v.SetDefault("identity.lock.backend", "local")
	v.SetDefault("identity.lock.ttl_ms", 10000)
	v.SetDefault("identity.lock.wait_ms", 5000)
	v.SetDefault("identity.username.max_len", 30)
	v.SetDefault("identity.username.numeric_attempts", 5)
	v.SetDefault("identity.username.numeric_max", 999)
	v.SetDefault("identity.username.random_attempts", 3)
	v.SetDefault("identity.username.random_len", 6)
	v.SetDefault("lifecycle.destroy_mode", "hard")
}

// Read loads the YAML file at path (CONFIG_PATH or the local file when
// empty). Environment variables override it as APP_<SECTION>_<KEY>; a .env
// file in the working directory is loaded first when present.
func Read(path string) (*Config, error) {
	_ = godotenv.Load()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatal(err)
	}
	return c
}
