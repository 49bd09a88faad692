package relay

import (
	"log/slog"

	"github.com/tzefoong/relaybot/internal/errkit"
	"github.com/tzefoong/relaybot/internal/profile"
	"github.com/tzefoong/relaybot/llm"
	"github.com/tzefoong/relaybot/llm/openai"
)

// NewProvider builds the backend provider for the profile. The "openai"
// family covers any OpenAI-compatible endpoint via BaseURL; unknown families
// are a configuration error.
func NewProvider(p *profile.Profile, model string, logger *slog.Logger) (llm.Provider, error) {
	switch p.Provider {
	case "openai":
		return openai.New(openai.Config{
			APIKey:         p.APIKey,
			BaseURL:        p.BaseURL,
			Model:          model,
			Timeout:        p.RequestTimeout,
			ImageTokenCost: p.ImageTokenCost,
		}, logger)
	default:
		return nil, errkit.Configurationf("unknown provider %q", p.Provider)
	}
}
