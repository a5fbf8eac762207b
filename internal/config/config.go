// Package config loads process configuration shared by the editor host and
// the engine process.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/dev-razz/Typerra/internal/appdirs"
	"github.com/dev-razz/Typerra/internal/envfile"
	"github.com/dev-razz/Typerra/internal/liveness"
	"github.com/dev-razz/Typerra/internal/model"
)

const (
	BackendFake         = "fake"
	BackendOpenAICompat = "openaicompat"
)

type Config struct {
	DataDir  string         `mapstructure:"-"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Models   ModelsConfig   `mapstructure:"models"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Liveness LivenessConfig `mapstructure:"liveness"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Log      LogConfig      `mapstructure:"log"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Debug    bool           `mapstructure:"debug"`
}

type BackendConfig struct {
	Kind        string        `mapstructure:"kind" validate:"oneof=fake openaicompat"`
	BaseURL     string        `mapstructure:"base_url" validate:"required_if=Kind openaicompat"`
	APIKeyEnv   string        `mapstructure:"api_key_env"`
	PullMissing bool          `mapstructure:"pull_missing"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type ModelsConfig struct {
	Corrector string   `mapstructure:"corrector"`
	Rewriter  string   `mapstructure:"rewriter"`
	Generator string   `mapstructure:"generator"`
	Languages []string `mapstructure:"languages"`
}

type BridgeConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type LivenessConfig struct {
	Interval        time.Duration `mapstructure:"interval" validate:"gt=0"`
	ActivityVisible time.Duration `mapstructure:"activity_visible" validate:"gt=0"`
	ActivityHidden  time.Duration `mapstructure:"activity_hidden" validate:"gt=0"`
	PingMiss        time.Duration `mapstructure:"ping_miss" validate:"gt=0"`
}

type RealtimeConfig struct {
	Debounce    time.Duration `mapstructure:"debounce" validate:"gte=0"`
	MinInterval time.Duration `mapstructure:"min_interval" validate:"gte=0"`
	MaxChars    int           `mapstructure:"max_chars" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type EngineConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.kind", BackendFake)
	v.SetDefault("backend.base_url", "http://127.0.0.1:11434")
	v.SetDefault("backend.api_key_env", "TYPERRA_API_KEY")
	v.SetDefault("backend.pull_missing", false)
	v.SetDefault("backend.timeout", 120*time.Second)
	v.SetDefault("models.corrector", "qwen2.5:1.5b")
	v.SetDefault("models.rewriter", "qwen2.5:3b")
	v.SetDefault("models.generator", "qwen2.5:3b")
	v.SetDefault("models.languages", []string{"en"})
	v.SetDefault("bridge.timeout", 60*time.Second)
	v.SetDefault("liveness.interval", 15*time.Second)
	v.SetDefault("liveness.activity_visible", 10*time.Minute)
	v.SetDefault("liveness.activity_hidden", 3*time.Minute)
	v.SetDefault("liveness.ping_miss", 60*time.Second)
	v.SetDefault("realtime.debounce", 350*time.Millisecond)
	v.SetDefault("realtime.min_interval", 800*time.Millisecond)
	v.SetDefault("realtime.max_chars", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("engine.path", "")
	v.SetDefault("debug", false)
}

// Load reads configuration from defaults, the optional config file and the
// environment. Env var overrides use the TYPERRA_ prefix.
func Load() (Config, error) {
	envfile.Load()

	dataDir, err := appdirs.DataDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	if path := os.Getenv("TYPERRA_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(appdirs.ConfigPath(dataDir))
	}
	v.SetEnvPrefix("TYPERRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !missingConfig(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DataDir = dataDir
	c.Backend.Kind = strings.ToLower(strings.TrimSpace(c.Backend.Kind))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func missingConfig(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ModelNames maps each engine kind to its configured backend model.
func (c Config) ModelNames() map[model.Kind]string {
	return map[model.Kind]string{
		model.KindCorrector: c.Models.Corrector,
		model.KindRewriter:  c.Models.Rewriter,
		model.KindGenerator: c.Models.Generator,
	}
}

func (c Config) LivenessConfig() liveness.Config {
	return liveness.Config{
		Interval:        c.Liveness.Interval,
		ActivityVisible: c.Liveness.ActivityVisible,
		ActivityHidden:  c.Liveness.ActivityHidden,
		PingMiss:        c.Liveness.PingMiss,
	}
}

// APIKey returns the backend key from the configured environment variable.
func (c Config) APIKey() string {
	if c.Backend.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.Backend.APIKeyEnv))
}
