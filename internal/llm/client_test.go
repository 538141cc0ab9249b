package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	calls   int
	failN   int
	failErr error
}

func (f *fakeClient) chat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error) {
	f.calls++
	if f.calls <= f.failN {
		return ChatResponse{}, f.failErr
	}
	return ChatResponse{Content: "ok"}, nil
}

func TestFacade_Chat_SucceedsOnFirstTry(t *testing.T) {
	fc := &fakeClient{}
	f := &Facade{clients: map[Provider]providerClient{ProviderOpenAI: fc}}

	resp, err := f.Chat(context.Background(), ProviderOpenAI, "gpt-4-turbo", nil, ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if fc.calls != 1 {
		t.Fatalf("expected 1 call, got %d", fc.calls)
	}
}

func TestFacade_Chat_RetriesTransientThenSucceeds(t *testing.T) {
	fc := &fakeClient{failN: 2, failErr: &transientError{cause: errors.New("temporary")}}
	f := &Facade{clients: map[Provider]providerClient{ProviderOpenAI: fc}}

	// The real backoff schedule applies, so this test sleeps through the
	// first two waits (1s and 2s), which stays well within the harness
	// budget.
	resp, err := f.Chat(context.Background(), ProviderOpenAI, "gpt-4-turbo", nil, ChatOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if fc.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", fc.calls)
	}
}

func TestFacade_Chat_NonTransientFailsImmediately(t *testing.T) {
	fc := &fakeClient{failN: 1, failErr: errors.New("bad request")}
	f := &Facade{clients: map[Provider]providerClient{ProviderOpenAI: fc}}

	_, err := f.Chat(context.Background(), ProviderOpenAI, "gpt-4-turbo", nil, ChatOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if fc.calls != 1 {
		t.Fatalf("expected 1 call (no retry for non-transient error), got %d", fc.calls)
	}
}

func TestFacade_Chat_UnconfiguredProvider(t *testing.T) {
	f := &Facade{clients: map[Provider]providerClient{}}
	_, err := f.Chat(context.Background(), ProviderGoogle, "gemini-pro", nil, ChatOptions{})
	if err == nil {
		t.Fatal("expected error for unconfigured provider")
	}
}
