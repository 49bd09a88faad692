// Package profile resolves the process configuration once at startup.
//
// The relay core treats the resulting Profile as an immutable input; no
// component re-reads the environment after Load returns.
package profile

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tzefoong/relaybot/internal/errkit"
)

// Profile is the configuration to start the relay bot.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the transport surface.
	Addr string
	// Port is the binding port for the transport surface.
	Port int

	// Driver is the database driver ("postgres" or "sqlite").
	Driver string
	// DSN points to where relaybot stores messages and settings.
	DSN string

	// Provider selects the backend family ("openai" covers any
	// OpenAI-compatible endpoint via BaseURL).
	Provider string
	// Model is the default model identifier; conversations may override it.
	Model string
	// APIKey authenticates against the backend.
	APIKey string
	// BaseURL overrides the backend endpoint (xAI, DeepSeek, Groq, ...).
	BaseURL string

	// MaxContextTokens caps the tokens sent in one request, further bounded
	// by the model's own context window.
	MaxContextTokens int
	// TextReserveTokens is held back for the reply on text-only turns.
	TextReserveTokens int
	// ImageReserveTokens is held back for the reply on turns carrying an
	// image; image-grounded answers tend to run longer.
	ImageReserveTokens int
	// ImageTokenCost overrides the per-image token charge; zero keeps the
	// provider default.
	ImageTokenCost int

	// RequestTimeout bounds a single backend call.
	RequestTimeout time.Duration
	// Timezone is the reference timezone for the prompt time-context line.
	Timezone string
	// DisableTimeContext drops the time-context line from system prompts.
	DisableTimeContext bool

	// EnforceGrants rejects senders missing from the grant list.
	EnforceGrants bool
	// HistoryFetchLimit bounds how many recent messages one request loads.
	HistoryFetchLimit int
	// RetentionKeepRecent is how many messages the cleanup pass keeps per
	// multi-party conversation.
	RetentionKeepRecent int

	// Version is the current version of the bot.
	Version string
}

// Version is stamped at release time.
const Version = "1.1.1"

// Load resolves the profile from the environment (RELAYBOT_* variables) and
// an optional config file.
func Load(configFile string) (*Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("relaybot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "prod")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("driver", "postgres")
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("max_context_tokens", 16000)
	v.SetDefault("text_reserve_tokens", 1000)
	v.SetDefault("image_reserve_tokens", 2000)
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("timezone", "Asia/Singapore")
	v.SetDefault("enforce_grants", true)
	v.SetDefault("history_fetch_limit", 500)
	v.SetDefault("retention_keep_recent", 100)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errkit.Wrap(err, errkit.CodeConfiguration, "read config file")
		}
	}

	p := &Profile{
		Mode:                v.GetString("mode"),
		Addr:                v.GetString("addr"),
		Port:                v.GetInt("port"),
		Driver:              v.GetString("driver"),
		DSN:                 v.GetString("dsn"),
		Provider:            v.GetString("provider"),
		Model:               v.GetString("model"),
		APIKey:              v.GetString("api_key"),
		BaseURL:             v.GetString("base_url"),
		MaxContextTokens:    v.GetInt("max_context_tokens"),
		TextReserveTokens:   v.GetInt("text_reserve_tokens"),
		ImageReserveTokens:  v.GetInt("image_reserve_tokens"),
		ImageTokenCost:      v.GetInt("image_token_cost"),
		RequestTimeout:      v.GetDuration("request_timeout"),
		Timezone:            v.GetString("timezone"),
		DisableTimeContext:  v.GetBool("disable_time_context"),
		EnforceGrants:       v.GetBool("enforce_grants"),
		HistoryFetchLimit:   v.GetInt("history_fetch_limit"),
		RetentionKeepRecent: v.GetInt("retention_keep_recent"),
		Version:             Version,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// IsDev reports whether the profile runs in development mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate checks the invariants that make a profile usable. A violation is
// a configuration error, fatal at startup rather than per-request.
func (p *Profile) Validate() error {
	switch p.Driver {
	case "postgres", "sqlite":
	default:
		return errkit.Configurationf("unknown database driver %q", p.Driver)
	}
	if p.DSN == "" {
		return errkit.Configuration("dsn is required")
	}
	if p.Provider != "openai" {
		return errkit.Configurationf("unknown provider %q", p.Provider)
	}
	if p.APIKey == "" {
		return errkit.Configuration("api_key is required")
	}
	if p.MaxContextTokens <= 0 {
		return errkit.Configuration("max_context_tokens must be positive")
	}
	if p.TextReserveTokens <= 0 || p.ImageReserveTokens <= 0 {
		return errkit.Configuration("reserve tokens must be positive")
	}
	if p.TextReserveTokens >= p.MaxContextTokens {
		return errkit.Configurationf("text reserve %d must be below max context tokens %d",
			p.TextReserveTokens, p.MaxContextTokens)
	}
	if p.ImageReserveTokens >= p.MaxContextTokens {
		return errkit.Configurationf("image reserve %d must be below max context tokens %d",
			p.ImageReserveTokens, p.MaxContextTokens)
	}
	if p.ImageTokenCost < 0 {
		return errkit.Configuration("image_token_cost must not be negative")
	}
	if p.RequestTimeout <= 0 {
		return errkit.Configuration("request_timeout must be positive")
	}
	if p.HistoryFetchLimit <= 0 {
		return errkit.Configuration("history_fetch_limit must be positive")
	}
	return nil
}
