package llms

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/faughnn/factreel/internal/config"
)

var (
	defaultClient     *Client
	defaultClientOnce sync.Once
	Logger            zerolog.Logger // Package-level logger for use by providers
)

// Initialize sets up the LLM system with a logger, loading the configured
// provider's API key and registering every provider that has one.
func Initialize(l zerolog.Logger) {
	Logger = l.With().Str("component", "llms").Logger()
	AppName = "factreel"

	settings, err := config.LoadSettings()
	if err != nil {
		Logger.Error().Err(err).Msg("failed to load settings for LLM providers")
	} else {
		LoadAPIKeysFromSettings(settings)
	}

	GetDefaultClient()
	RegisterDefaultProviders()

	Logger.Info().Msg("LLM client system initialized")
}

// GetDefaultClient returns the default LLM client instance.
func GetDefaultClient() *Client {
	defaultClientOnce.Do(func() {
		defaultClient = NewClient()
	})
	return defaultClient
}

// LoadAPIKeysFromSettings stores the §6-configured adapter's LLM API key
// under its provider name, the way the teacher's three-key variant stored
// openai/openrouter/google separately — this module only carries one
// configured LLM provider at a time (adapters.llm.provider), so only that
// slot is populated.
func LoadAPIKeysFromSettings(settings config.Settings) {
	provider := settings.Adapters.LLM.Provider
	if provider == "" {
		provider = "google"
	}
	APIKeys.Store(provider, settings.Adapters.LLM.APIKey)

	if Logger.Debug().Enabled() {
		Logger.Debug().
			Str("provider", provider).
			Bool("has_key", APIKeys.Has(provider)).
			Msg("LLM provider API key status")
	}
}

// RegisterDefaultProviders registers whichever provider has a stored API
// key against the default client, setting the first one registered as
// default.
func RegisterDefaultProviders() {
	client := GetDefaultClient()
	registered := 0

	register := func(name string, provider Provider) {
		if !APIKeys.Has(name) {
			return
		}
		client.RegisterProvider(provider)
		registered++
		if registered == 1 {
			client.SetDefaultProvider(name)
		}
	}

	register("openai", NewOpenAIProvider(APIKeys.Get("openai")))
	register("openrouter", NewOpenRouterProvider(APIKeys.Get("openrouter")))
	register("google", NewGoogleProvider(APIKeys.Get("google")))

	Logger.Info().Int("count", registered).Msg("LLM providers registered")
}
