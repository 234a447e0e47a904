package ai

import (
	"fmt"
	"strings"
)

// Provider selects the chat completion endpoint.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderCustom Provider = "custom"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.0-flash"
)

// Settings are the user facing AI settings, persisted in the key-value store
// under SettingsKey.
type Settings struct {
	Provider     Provider `json:"provider" yaml:"provider" jsonschema:"enum=openai,enum=gemini,enum=custom,default=openai"`
	APIKey       string   `json:"apiKey" yaml:"api_key" jsonschema:"description=API key, supports ${ENV} expansion"`
	Model        string   `json:"model,omitempty" yaml:"model" jsonschema:"description=model name, provider default when empty"`
	CustomAPIURL string   `json:"customApiUrl,omitempty" yaml:"custom_api_url" jsonschema:"description=base URL of an OpenAI compatible API for the custom provider"`
}

// SettingsKey is the key-value store key of the AI settings.
const SettingsKey = "settings:ai"

// endpoint resolves the base URL and model for the provider.
func (s Settings) endpoint() (baseURL, model string, err error) {
	switch Provider(strings.ToLower(string(s.Provider))) {
	case "", ProviderOpenAI:
		baseURL, model = openAIBaseURL, defaultOpenAIModel
	case ProviderGemini:
		baseURL, model = geminiBaseURL, defaultGeminiModel
	case ProviderCustom:
		if s.CustomAPIURL == "" {
			return "", "", fmt.Errorf("custom provider needs customApiUrl")
		}
		baseURL, model = strings.TrimRight(s.CustomAPIURL, "/"), defaultOpenAIModel
	default:
		return "", "", fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.Model != "" {
		model = s.Model
	}
	return baseURL, model, nil
}

// Redacted returns a copy safe to show, with the API key masked.
func (s Settings) Redacted() Settings {
	if len(s.APIKey) > 8 {
		s.APIKey = s.APIKey[:4] + "..." + s.APIKey[len(s.APIKey)-4:]
	} else if s.APIKey != "" {
		s.APIKey = "***"
	}
	return s
}
