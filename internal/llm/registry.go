package llm

import (
	"fmt"
	"strings"

	"legacywebanalyzer/internal/config"
)

// Role identifies a logical model slot resolved from Settings, per
// spec.md §4.7.
type Role string

const (
	RoleStep1    Role = "STEP1_MODEL"
	RoleStep2    Role = "STEP2_MODEL"
	RoleFallback Role = "FALLBACK_MODEL"
)

// Resolved is a role resolved to a concrete (provider, model_id) pair.
type Resolved struct {
	Role     Role
	Provider Provider
	ModelID  string
}

// knownModelPrefixes maps an identifier's naming convention to its
// provider, adapted from model_registry.py's ModelInfo.provider
// association (which pins every known model_id to one provider) but
// generalized to prefix-matching since config.go intentionally leaves
// model identifiers free-form (no hardcoded per-model_id catalog of
// cost, context length, or display name; pricing is the per-provider
// costPer1K table below).
var knownModelPrefixes = []struct {
	prefix   string
	provider Provider
}{
	{"gpt-", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"claude-", ProviderAnthropic},
	{"gemini-", ProviderGoogle},
}

// Registry resolves a configured Settings into concrete provider/model
// pairs for each role, failing fast when a role's configured identifier
// cannot be matched to a provider, per spec.md §4.7 ("unknown model
// identifiers fail with the identifier echoed").
type Registry struct {
	settings *config.Settings
}

// NewRegistry builds a Registry over resolved settings.
func NewRegistry(s *config.Settings) *Registry {
	return &Registry{settings: s}
}

// Resolve maps a role to its configured (provider, model_id) pair.
func (r *Registry) Resolve(role Role) (Resolved, error) {
	var modelID string
	switch role {
	case RoleStep1:
		modelID = r.settings.Step1Model
	case RoleStep2:
		modelID = r.settings.Step2Model
	case RoleFallback:
		modelID = r.settings.FallbackModel
	default:
		return Resolved{}, fmt.Errorf("llm: unknown role %q", role)
	}

	provider, err := detectProvider(modelID)
	if err != nil {
		return Resolved{}, fmt.Errorf("llm: role %s: %w", role, err)
	}

	if err := r.requireConfigured(provider, modelID); err != nil {
		return Resolved{}, err
	}

	return Resolved{Role: role, Provider: provider, ModelID: modelID}, nil
}

func detectProvider(modelID string) (Provider, error) {
	lower := strings.ToLower(modelID)
	for _, known := range knownModelPrefixes {
		if strings.HasPrefix(lower, known.prefix) {
			return known.provider, nil
		}
	}
	return "", fmt.Errorf("model identifier %q not recognized by any known provider naming convention", modelID)
}

func (r *Registry) requireConfigured(provider Provider, modelID string) error {
	var key string
	switch provider {
	case ProviderOpenAI:
		key = r.settings.OpenAI.APIKey
	case ProviderAnthropic:
		key = r.settings.Anthropic.APIKey
	case ProviderGoogle:
		key = r.settings.Google.APIKey
	}
	if key == "" {
		return fmt.Errorf("llm: model %q resolves to provider %s, which has no API key configured", modelID, provider)
	}
	return nil
}

// costPer1K mirrors model_registry.py's ModelInfo.cost_per_1k_prompt/
// cost_per_1k_completion table, reduced to the model families this
// registry actually resolves against (prefix-matched, not exact
// model_id, since config.go leaves STEP1_MODEL/etc free-form).
var costPer1K = map[Provider]struct{ prompt, completion float64 }{
	ProviderOpenAI:    {prompt: 0.01, completion: 0.03},
	ProviderAnthropic: {prompt: 0.003, completion: 0.015},
	ProviderGoogle:    {prompt: 0.0025, completion: 0.0075},
}

// EstimateCost approximates dollar cost for a resolved model's token
// usage, the same per-1k-token arithmetic as model_registry.py's
// calculate_cost, used for C12's pre-run cost estimate. Realized token
// usage is not recorded, so no realized cost is reported.
func (r *Registry) EstimateCost(provider Provider, promptTokens, completionTokens int) float64 {
	rates, ok := costPer1K[provider]
	if !ok {
		return 0
	}
	return (float64(promptTokens)/1000)*rates.prompt + (float64(completionTokens)/1000)*rates.completion
}
