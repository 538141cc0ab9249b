package llm

import (
	"testing"

	"legacywebanalyzer/internal/config"
)

func testSettings() *config.Settings {
	return &config.Settings{
		Step1Model:    "claude-3-haiku-20240307",
		Step2Model:    "gpt-4-turbo",
		FallbackModel: "gemini-1.5-flash",
		OpenAI:        config.ProviderCreds{APIKey: "sk-test", Model: "gpt-4-turbo"},
		Anthropic:     config.ProviderCreds{APIKey: "sk-ant-test", Model: "claude-3-haiku-20240307"},
		Google:        config.ProviderCreds{APIKey: "", Model: ""},
	}
}

func TestRegistry_ResolveKnownRoles(t *testing.T) {
	reg := NewRegistry(testSettings())

	got, err := reg.Resolve(RoleStep1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != ProviderAnthropic {
		t.Fatalf("expected anthropic, got %s", got.Provider)
	}

	got, err = reg.Resolve(RoleStep2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Provider != ProviderOpenAI {
		t.Fatalf("expected openai, got %s", got.Provider)
	}
}

func TestRegistry_ResolveFailsWhenProviderNotConfigured(t *testing.T) {
	reg := NewRegistry(testSettings())
	_, err := reg.Resolve(RoleFallback)
	if err == nil {
		t.Fatal("expected error: gemini key not configured")
	}
}

func TestRegistry_ResolveFailsForUnknownRole(t *testing.T) {
	reg := NewRegistry(testSettings())
	_, err := reg.Resolve(Role("NOT_A_ROLE"))
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestDetectProvider_UnrecognizedModel(t *testing.T) {
	_, err := detectProvider("some-unknown-model-9000")
	if err == nil {
		t.Fatal("expected error for unrecognized model identifier")
	}
}
