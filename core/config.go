package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		StaticDir       string // STATIC_DIR
		DisableReqLogs  bool
	}

	SessionConfig struct {
		Secret string `validate:"required"` // JWT_SECRET
		MaxAge time.Duration
	}

	OAuthConfig struct {
		ServerURL string // OAUTH_SERVER_URL
		Timeout   time.Duration
	}

	ForgeConfig struct {
		APIURL string
		APIKey string
	}

	DatabaseConfig struct {
		Engine        string `validate:"oneof=postgres memory"` // DATABASE_ENGINE
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		UserTTL  time.Duration
	}

	KafkaConfig struct {
		Brokers       []string
		ActivityTopic string
	}

	GoogleConfig struct {
		ClientID     string
		ClientSecret string
		RedirectURI  string
		PlacesAPIKey string
		PlacesURL    string
		GeminiAPIKey string
		GeminiModel  string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string `validate:"required"`
		AppID            string // VITE_APP_ID, also the OAuth client id
		OwnerOpenID      string // OWNER_OPEN_ID
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail string `validate:"required,email"`
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Session  SessionConfig
		OAuth    OAuthConfig
		Forge    ForgeConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Kafka    KafkaConfig
		Google   GoogleConfig
	}
)

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) FromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// envAliases are the deployment variable names read in addition to the prefixed ones.
var envAliases = map[string]string{
	"appID":               "VITE_APP_ID",
	"ownerOpenID":         "OWNER_OPEN_ID",
	"frontendBaseURL":     "FRONTEND_BASE_URL",
	"server.staticDir":    "STATIC_DIR",
	"session.secret":      "JWT_SECRET",
	"oauth.serverURL":     "OAUTH_SERVER_URL",
	"forge.apiURL":        "BUILT_IN_FORGE_API_URL",
	"forge.apiKey":        "BUILT_IN_FORGE_API_KEY",
	"database.engine":     "DATABASE_ENGINE",
	"redis.addr":          "REDIS_ADDR",
	"google.clientID":     "GOOGLE_CLIENT_ID",
	"google.clientSecret": "GOOGLE_CLIENT_SECRET",
	"google.redirectURI":  "GOOGLE_REDIRECT_URI",
	"google.placesAPIKey": "GOOGLE_PLACES_API_KEY",
	"google.geminiAPIKey": "GEMINI_API_KEY",
}

// NewConfig loads the configuration from defaults, the optional config/.env.<env> file and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. PROD_SESSION_SECRET.
// The unprefixed names of envAliases are read too; a prefixed variable wins over its alias.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", "memory")
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := env + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			log.Fatalf("config.BindEnv(%s): %v", key, err)
		}
	}

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("config.Validate: %v", err)
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Teleapo")
	v.SetDefault("appID", "teleapo-local")
	v.SetDefault("ownerOpenID", "")
	v.SetDefault("workDir", Getwd())
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost.dev")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.staticDir", "")
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("session.secret", "k2!x8r$w0-session-secret-for-local-dev-only")
	v.SetDefault("session.maxAge", 365*24*time.Hour)

	v.SetDefault("oauth.serverURL", "")
	v.SetDefault("oauth.timeout", 30*time.Second)

	v.SetDefault("forge.apiURL", "")
	v.SetDefault("forge.apiKey", "")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "teleapo")
	v.SetDefault("database.user", "teleapo")
	v.SetDefault("database.password", "teleapo")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.userTTL", 5*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.activityTopic", "teleapo.activity")

	v.SetDefault("google.clientID", "")
	v.SetDefault("google.clientSecret", "")
	v.SetDefault("google.redirectURI", "http://localhost:3000/api/google/callback")
	v.SetDefault("google.placesAPIKey", "")
	v.SetDefault("google.placesURL", "https://places.googleapis.com/v1")
	v.SetDefault("google.geminiAPIKey", "")
	v.SetDefault("google.geminiModel", "gemini-2.5-flash")
}

// Validate checks the loaded configuration. Production-like envs must not run on development secrets.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if !(c.Debug || c.TestMode) && strings.HasSuffix(c.Session.Secret, "for-local-dev-only") {
		return NewValidationError(errDevSecret, FieldError{Field: "session.secret", Error: errDevSecret.Error()})
	}
	return nil
}
