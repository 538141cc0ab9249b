// Package config resolves the process-wide settings record from
// environment variables. There is no config-file loader here: that is an
// out-of-scope external collaborator; construction fails fast, the way
// the teacher's config.Load does for a missing file, except the source
// of truth here is os.Getenv rather than YAML.
package config

import (
	"os"
	"strconv"
	"time"

	"legacywebanalyzer/internal/model"
)

// ProviderCreds holds the API key and default chat model for one LLM
// provider. A provider is considered "configured" when APIKey is non-empty.
type ProviderCreds struct {
	APIKey string
	Model  string
}

// Settings is the single immutable configuration record for the process.
// It is built once by Load and never mutated afterward.
type Settings struct {
	Step1Model    string
	Step2Model    string
	FallbackModel string

	OpenAI    ProviderCreds
	Anthropic ProviderCreds
	Google    ProviderCreds

	OutputRoot         string
	DiscoveryTimeout   time.Duration
	DiscoveryMaxDepth  int
	MaxConcurrentPages int
	MaxRetriesPerPage  int
	PlaywrightHeadless bool
}

// Getenv is the minimal environment-lookup interface, implemented by
// os.Getenv in production and a map in tests.
type Getenv func(key string) string

// Load resolves Settings from the given environment lookup function. It
// returns a *model.ConfigError naming the first missing required
// variable ("fails fast ... naming the missing variable").
func Load(getenv Getenv) (*Settings, error) {
	s := &Settings{
		Step1Model:    getenv("STEP1_MODEL"),
		Step2Model:    getenv("STEP2_MODEL"),
		FallbackModel: getenv("FALLBACK_MODEL"),
		OpenAI: ProviderCreds{
			APIKey: getenv("OPENAI_API_KEY"),
			Model:  getenv("OPENAI_CHAT_MODEL"),
		},
		Anthropic: ProviderCreds{
			APIKey: getenv("ANTHROPIC_API_KEY"),
			Model:  getenv("ANTHROPIC_CHAT_MODEL"),
		},
		Google: ProviderCreds{
			APIKey: getenv("GEMINI_API_KEY"),
			Model:  getenv("GEMINI_CHAT_MODEL"),
		},
		OutputRoot:         getenv("OUTPUT_ROOT"),
		DiscoveryMaxDepth:  3,
		MaxConcurrentPages: 3,
		MaxRetriesPerPage:  1,
		PlaywrightHeadless: true,
	}

	if s.Step1Model == "" {
		return nil, &model.ConfigError{Variable: "STEP1_MODEL"}
	}
	if s.Step2Model == "" {
		return nil, &model.ConfigError{Variable: "STEP2_MODEL"}
	}
	if s.FallbackModel == "" {
		return nil, &model.ConfigError{Variable: "FALLBACK_MODEL"}
	}

	anyProvider := false
	if s.OpenAI.APIKey != "" {
		anyProvider = true
		if s.OpenAI.Model == "" {
			return nil, &model.ConfigError{Variable: "OPENAI_CHAT_MODEL", Reason: "required when OPENAI_API_KEY is set"}
		}
	}
	if s.Anthropic.APIKey != "" {
		anyProvider = true
		if s.Anthropic.Model == "" {
			return nil, &model.ConfigError{Variable: "ANTHROPIC_CHAT_MODEL", Reason: "required when ANTHROPIC_API_KEY is set"}
		}
	}
	if s.Google.APIKey != "" {
		anyProvider = true
		if s.Google.Model == "" {
			return nil, &model.ConfigError{Variable: "GEMINI_CHAT_MODEL", Reason: "required when GEMINI_API_KEY is set"}
		}
	}
	if !anyProvider {
		return nil, &model.ConfigError{Variable: "OPENAI_API_KEY|ANTHROPIC_API_KEY|GEMINI_API_KEY", Reason: "at least one provider key is required"}
	}

	if s.OutputRoot == "" {
		s.OutputRoot = "./output"
	}

	s.DiscoveryTimeout = 30 * time.Second
	if v := getenv("DISCOVERY_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			s.DiscoveryTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := getenv("DISCOVERY_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.DiscoveryMaxDepth = n
		}
	}
	if v := getenv("MAX_CONCURRENT_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > 5 {
				n = 5
			}
			s.MaxConcurrentPages = n
		}
	}
	if v := getenv("MAX_RETRIES_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.MaxRetriesPerPage = n
		}
	}
	if v := getenv("PLAYWRIGHT_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.PlaywrightHeadless = b
		}
	}

	return s, nil
}

// LoadFromOS resolves Settings using the real process environment.
func LoadFromOS() (*Settings, error) {
	return Load(os.Getenv)
}
