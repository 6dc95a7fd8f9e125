package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/fwojciec/secretary"
	"github.com/fwojciec/secretary/store"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Backend names.
const (
	backendAuto      = "auto"
	backendGemini    = "gemini"
	backendAnthropic = "anthropic"
	backendOpenAI    = "openai"
)

// Profile store names.
const (
	profilesSQLite = "sqlite"
	profilesMySQL  = "mysql"
)

const (
	defaultHTTPAddr      = "127.0.0.1:8080"
	defaultFlushSchedule = "@every 1m"
	defaultLogLevel      = "info"
	dotenvFile           = ".env"
)

// Config is the resolved configuration, built once per invocation.
type Config struct {
	Backend       string
	GeminiKey     string
	AnthropicKey  string
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string
	MaxRetries    int
	MaxMessages   int

	DataDir      string
	ProfileStore string
	MySQLDSN     string
	JWTSecret    string
	UserName     string
	UserEmail    string

	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	HTTPAddr      string
	FlushSchedule string
	LogLevel      string
	LogFile       string
}

// lookupFunc reads one configuration variable.
type lookupFunc func(key string) (string, bool)

// envLookup reads the process environment, then the .env file at path. A
// missing file is not an error.
func envLookup(path string) (lookupFunc, error) {
	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		dotenv = map[string]string{}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// mapLookup serves variables from m.
func mapLookup(m map[string]string) lookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// resolveConfig reads every variable through lookup, falling back to the
// defaults.
func resolveConfig(lookup lookupFunc) (Config, error) {
	str := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	var firstErr error
	num := func(key string, def int) int {
		v, ok := lookup(key)
		if !ok || v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s=%q is not a number: %w", key, v, secretary.ErrValidation)
		}
		return n
	}

	cfg := Config{
		Backend:       str("SECRETARY_BACKEND", backendAuto),
		GeminiKey:     str("GEMINI_API_KEY", ""),
		AnthropicKey:  str("ANTHROPIC_API_KEY", ""),
		OpenAIKey:     str("OPENAI_API_KEY", ""),
		OpenAIBaseURL: str("OPENAI_BASE_URL", ""),
		Model:         str("SECRETARY_MODEL", ""),
		MaxRetries:    num("SECRETARY_MAX_RETRIES", 3),
		MaxMessages:   num("SECRETARY_MAX_MESSAGES", store.DefaultMaxMessages),
		DataDir:       str("SECRETARY_DATA_DIR", defaultDataDir()),
		ProfileStore:  str("SECRETARY_PROFILE_STORE", profilesSQLite),
		MySQLDSN:      str("SECRETARY_MYSQL_DSN", ""),
		JWTSecret:     str("SECRETARY_JWT_SECRET", ""),
		UserName:      str("SECRETARY_USER_NAME", osUser()),
		UserEmail:     str("SECRETARY_USER_EMAIL", ""),
		SMTPAddr:      str("SECRETARY_SMTP_ADDR", ""),
		SMTPUser:      str("SECRETARY_SMTP_USER", ""),
		SMTPPassword:  str("SECRETARY_SMTP_PASSWORD", ""),
		SMTPFrom:      str("SECRETARY_SMTP_FROM", ""),
		HTTPAddr:      str("SECRETARY_HTTP_ADDR", defaultHTTPAddr),
		FlushSchedule: str("SECRETARY_FLUSH_SCHEDULE", defaultFlushSchedule),
		LogLevel:      str("SECRETARY_LOG_LEVEL", defaultLogLevel),
	}
	if firstErr != nil {
		return Config{}, firstErr
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(fs *pflag.FlagSet, cfg *Config) {
	override := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	override("backend", &cfg.Backend)
	override("model", &cfg.Model)
	override("data-dir", &cfg.DataDir)
	override("log-level", &cfg.LogLevel)
	override("log-file", &cfg.LogFile)
	override("addr", &cfg.HTTPAddr)
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Backend {
	case backendAuto, backendGemini, backendAnthropic, backendOpenAI:
	default:
		return fmt.Errorf("unknown backend %q: must be gemini, anthropic or openai: %w", c.Backend, secretary.ErrValidation)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("SECRETARY_MAX_RETRIES must be positive, got %d: %w", c.MaxRetries, secretary.ErrValidation)
	}
	if c.MaxMessages <= 0 {
		return fmt.Errorf("SECRETARY_MAX_MESSAGES must be positive, got %d: %w", c.MaxMessages, secretary.ErrValidation)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory required: %w", secretary.ErrValidation)
	}
	switch c.ProfileStore {
	case profilesSQLite:
	case profilesMySQL:
		if c.MySQLDSN == "" {
			return fmt.Errorf("SECRETARY_MYSQL_DSN required for the mysql profile store: %w", secretary.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown profile store %q: must be sqlite or mysql: %w", c.ProfileStore, secretary.ErrValidation)
	}
	if _, err := cron.ParseStandard(c.FlushSchedule); err != nil {
		return fmt.Errorf("SECRETARY_FLUSH_SCHEDULE %q: %w: %w", c.FlushSchedule, secretary.ErrValidation, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level %q: %w: %w", c.LogLevel, secretary.ErrValidation, err)
	}
	return nil
}

// SMTPEnabled reports whether enough is set to send mail.
func (c Config) SMTPEnabled() bool {
	return c.SMTPAddr != "" && c.SMTPFrom != ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".secretary")
}

func osUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "user"
}
