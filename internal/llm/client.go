// Package llm implements C6 (provider facade) and C7 (model registry &
// config resolver). The three hand-rolled provider clients are adapted
// directly from ncecere-raito's internal/llm/llm.go (openAIClient,
// anthropicClient, googleClient built on net/http+encoding/json against
// each provider's public chat endpoint) — generalized from single-shot
// field extraction to the chat(messages, model_id, opts) contract
// spec.md §4.6 requires, and given the retry/backoff ladder the teacher
// never needed (it called a provider once per scrape job).
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"legacywebanalyzer/internal/config"
	"legacywebanalyzer/internal/metrics"
	"legacywebanalyzer/internal/model"
)

// Provider identifies a logical LLM provider.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// Message is one turn in a chat exchange.
type Message struct {
	Role    string
	Content string
}

// ChatOptions controls a single chat call.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ChatResponse is the facade's unified result shape.
type ChatResponse struct {
	Content    string
	TokensIn   int
	TokensOut  int
	ModelID    string
	Provider   Provider
}

// providerClient is the narrow interface each provider client implements,
// mirroring the teacher's llm.Client abstraction.
type providerClient interface {
	chat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error)
}

// Facade implements C6: a unified chat() over the three provider clients,
// with exponential-backoff retries on transient errors.
type Facade struct {
	clients map[Provider]providerClient
}

// NewFacade builds provider clients from resolved settings. A provider
// with no credentials configured is simply absent from the facade; Chat
// returns LLMError if asked to use one.
func NewFacade(s *config.Settings) *Facade {
	f := &Facade{clients: make(map[Provider]providerClient)}
	httpClient := &http.Client{Timeout: 60 * time.Second}

	if s.OpenAI.APIKey != "" {
		f.clients[ProviderOpenAI] = &openAIClient{apiKey: s.OpenAI.APIKey, http: httpClient}
	}
	if s.Anthropic.APIKey != "" {
		f.clients[ProviderAnthropic] = &anthropicClient{apiKey: s.Anthropic.APIKey, http: httpClient}
	}
	if s.Google.APIKey != "" {
		f.clients[ProviderGoogle] = &googleClient{apiKey: s.Google.APIKey, http: httpClient}
	}
	return f
}

// backoffSchedule is the 1s/2s/4s/8s/16s ladder from spec.md §4.6.
var backoffSchedule = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
}

// transientError carries a provider-advertised retry-after delay.
type transientError struct {
	retryAfter time.Duration
	cause      error
}

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }

// Chat calls provider with the resolved model ID, retrying transient
// errors per the backoff schedule. It never returns partial content:
// either a full ChatResponse or a typed LLMError.
func (f *Facade) Chat(ctx context.Context, provider Provider, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error) {
	client, ok := f.clients[provider]
	if !ok {
		return ChatResponse{}, &model.LLMError{Provider: string(provider), Model: modelID, Reason: "provider not configured"}
	}

	var lastErr error
	for attempt := 0; attempt < len(backoffSchedule)+1; attempt++ {
		if attempt > 0 {
			metrics.RecordLLMRetry(string(provider))
			delay := backoffSchedule[attempt-1]
			var te *transientError
			if errors.As(lastErr, &te) && te.retryAfter > 0 {
				delay = te.retryAfter
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.RecordLLMCall(string(provider), modelID, "failed")
				return ChatResponse{}, &model.LLMError{Provider: string(provider), Model: modelID, Reason: ctx.Err().Error()}
			}
		}

		resp, err := client.chat(ctx, modelID, messages, opts)
		if err == nil {
			resp.ModelID = modelID
			resp.Provider = provider
			metrics.RecordLLMCall(string(provider), modelID, "ok")
			return resp, nil
		}
		lastErr = err

		var te *transientError
		if !errors.As(err, &te) {
			metrics.RecordLLMCall(string(provider), modelID, "failed")
			return ChatResponse{}, &model.LLMError{Provider: string(provider), Model: modelID, Reason: err.Error()}
		}
	}

	metrics.RecordLLMCall(string(provider), modelID, "failed")
	return ChatResponse{}, &model.LLMError{Provider: string(provider), Model: modelID, Reason: fmt.Sprintf("exhausted retries: %v", lastErr)}
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
