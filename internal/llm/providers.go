package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// openAIClient implements providerClient using OpenAI-compatible Chat
// Completions, adapted from the teacher's openAIClient.ExtractFields.
type openAIClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

type anthropicClient struct {
	apiKey string
	http   *http.Client
}

type googleClient struct {
	apiKey string
	http   *http.Client
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *openAIClient) chat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error) {
	var chatMessages []openAIChatMessage
	for _, m := range messages {
		chatMessages = append(chatMessages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	body := openAIChatRequest{
		Model:       modelID,
		Messages:    chatMessages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, err
	}

	base := c.baseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, &transientError{cause: err}
	}
	defer resp.Body.Close()

	if isRetryableStatus(resp.StatusCode) {
		return ChatResponse{}, &transientError{retryAfter: parseRetryAfter(resp.Header), cause: fmt.Errorf("openai chat completion status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResponse{}, fmt.Errorf("openai chat completion failed with status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ChatResponse{}, err
	}
	if len(parsed.Choices) == 0 {
		return ChatResponse{}, errors.New("openai chat completion returned no choices")
	}

	return ChatResponse{
		Content:   parsed.Choices[0].Message.Content,
		TokensIn:  parsed.Usage.PromptTokens,
		TokensOut: parsed.Usage.CompletionTokens,
	}, nil
}

type anthropicMessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                 `json:"role"`
	Content []anthropicTextContent `json:"content"`
}

type anthropicTextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicMessagesResponse struct {
	Content []anthropicTextContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *anthropicClient) chat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var system string
	var chatMessages []anthropicMessage
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		chatMessages = append(chatMessages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicTextContent{{Type: "text", Text: m.Content}},
		})
	}

	body := anthropicMessagesRequest{Model: modelID, MaxTokens: maxTokens, System: system, Messages: chatMessages}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, &transientError{cause: err}
	}
	defer resp.Body.Close()

	if isRetryableStatus(resp.StatusCode) {
		return ChatResponse{}, &transientError{retryAfter: parseRetryAfter(resp.Header), cause: fmt.Errorf("anthropic messages status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResponse{}, fmt.Errorf("anthropic messages request failed with status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var parsed anthropicMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ChatResponse{}, err
	}
	if len(parsed.Content) == 0 {
		return ChatResponse{}, errors.New("anthropic messages returned no content")
	}

	return ChatResponse{
		Content:   parsed.Content[0].Text,
		TokensIn:  parsed.Usage.InputTokens,
		TokensOut: parsed.Usage.OutputTokens,
	}, nil
}

type googleGenerateContentRequest struct {
	Contents          []googleContent          `json:"contents"`
	SystemInstruction *googleContent           `json:"systemInstruction,omitempty"`
	GenerationConfig  googleGenerationConfig   `json:"generationConfig,omitempty"`
}

type googleGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text,omitempty"`
}

type googleGenerateContentResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Gemini encodes the model in the request path rather than the body.
func (c *googleClient) chat(ctx context.Context, modelID string, messages []Message, opts ChatOptions) (ChatResponse, error) {
	var system *googleContent
	var contents []googleContent
	for _, m := range messages {
		if m.Role == "system" {
			system = &googleContent{Parts: []googlePart{{Text: m.Content}}}
			continue
		}
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		contents = append(contents, googleContent{Role: role, Parts: []googlePart{{Text: m.Content}}})
	}

	body := googleGenerateContentRequest{
		Contents:          contents,
		SystemInstruction: system,
		GenerationConfig:  googleGenerationConfig{Temperature: opts.Temperature, MaxOutputTokens: opts.MaxTokens},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return ChatResponse{}, err
	}

	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", modelID, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ChatResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, &transientError{cause: err}
	}
	defer resp.Body.Close()

	if isRetryableStatus(resp.StatusCode) {
		return ChatResponse{}, &transientError{retryAfter: parseRetryAfter(resp.Header), cause: fmt.Errorf("google generateContent status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResponse{}, fmt.Errorf("google generateContent failed with status %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var parsed googleGenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ChatResponse{}, err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return ChatResponse{}, errors.New("google generateContent returned no candidates")
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return ChatResponse{
		Content:   sb.String(),
		TokensIn:  parsed.UsageMetadata.PromptTokenCount,
		TokensOut: parsed.UsageMetadata.CandidatesTokenCount,
	}, nil
}
