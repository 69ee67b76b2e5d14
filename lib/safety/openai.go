package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	tokenizer "github.com/sandwich-go/gpt3-encoder"
	"github.com/sashabaranov/go-openai"

	"github.com/guardlex/guardlex/lib/safecheck"
)

//go:generate moq --out mocks/openai_client.go --pkg mocks --skip-ensure . openAIClient:OpenAIClientMock

// openAIChecker is an alternative moderation backend using an OpenAI model.
// It follows the same degrade contract as the censor checker, any failure
// produces a neutral safe verdict instead of an error.
type openAIChecker struct {
	client openAIClient
	params OpenAIConfig
}

// OpenAIConfig contains parameters for openAIChecker
type OpenAIConfig struct {
	// https://platform.openai.com/docs/api-reference/chat/create#chat/create-max_tokens
	MaxTokensResponse int // hard limit for the number of tokens in the response
	// the OpenAI has a limit for the number of tokens in the request + response
	MaxTokensRequest  int // max request length in tokens
	MaxSymbolsRequest int // fallback: max request length in symbols, if tokenizer was failed
	Model             string
	SystemPrompt      string
}

type openAIClient interface {
	CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

const defaultModerationPrompt = `I'll give you a text that is going to be used as input for a large language model and you will return me a json with three fields: {"unsafe": true/false, "category":"why this text is disallowed", "confidence":1-100}. Set unsafe:true only if the text clearly contains disallowed content`

type openAIResponse struct {
	Unsafe     bool   `json:"unsafe"`
	Category   string `json:"category"`
	Confidence int    `json:"confidence"`
}

// newOpenAIChecker makes a moderation checker backed by an OpenAI model
func newOpenAIChecker(client openAIClient, params OpenAIConfig) *openAIChecker {
	if params.SystemPrompt == "" {
		params.SystemPrompt = defaultModerationPrompt
	}
	if params.MaxTokensResponse == 0 {
		params.MaxTokensResponse = 1024
	}
	if params.MaxTokensRequest == 0 {
		params.MaxTokensRequest = 1024
	}
	if params.MaxSymbolsRequest == 0 {
		params.MaxSymbolsRequest = 8192
	}
	if params.Model == "" {
		params.Model = "gpt-4o-mini"
	}
	return &openAIChecker{client: client, params: params}
}

func (o *openAIChecker) available() bool { return o.client != nil }

// detect submits the text for moderation and maps the model's json verdict into
// the local shape. Confidence comes back as 1-100 and is scaled to [0, 1].
func (o *openAIChecker) detect(ctx context.Context, text string) (safecheck.RemoteVerdict, error) {
	if o.client == nil {
		return neutralVerdict("openai client not set"), nil
	}
	if text == "" {
		return safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskSafe, Confidence: 1.0,
			Details: map[string]any{"reason": "empty text"}}, nil
	}

	resp, err := o.sendRequest(ctx, text)
	if err != nil {
		log.Printf("[WARN] openai moderation failed: %v", err)
		return neutralVerdict(fmt.Sprintf("openai error: %v", err)), nil
	}

	confidence := min(1.0, max(0.0, float64(resp.Confidence)/100))
	details := map[string]any{
		"category":         resp.Category,
		"detection_method": safecheck.MethodAPI,
	}
	if resp.Unsafe {
		return safecheck.RemoteVerdict{IsSafe: false, RiskLevel: safecheck.RiskHigh,
			Confidence: confidence, Details: details}, nil
	}
	return safecheck.RemoteVerdict{IsSafe: true, RiskLevel: safecheck.RiskSafe,
		Confidence: confidence, Details: details}, nil
}

func (o *openAIChecker) sendRequest(ctx context.Context, text string) (response openAIResponse, err error) {
	// reduce the request size with tokenizer and fallback to default reducer if it fails.
	// the api limits request + response tokens together, the response part is
	// always reserved, so the request has to fit into MaxTokensRequest.
	reduceRequest := func(text string) (result string) {
		// defaultReducer is a fallback if tokenizer fails
		defaultReducer := func(text string) (result string) {
			if len(text) <= o.params.MaxSymbolsRequest {
				return text
			}
			return text[:o.params.MaxSymbolsRequest]
		}

		encoder, tokErr := tokenizer.NewEncoder()
		if tokErr != nil {
			return defaultReducer(text)
		}

		tokens, encErr := encoder.Encode(text)
		if encErr != nil {
			return defaultReducer(text)
		}

		if len(tokens) <= o.params.MaxTokensRequest {
			return text
		}

		return encoder.Decode(tokens[:o.params.MaxTokensRequest])
	}

	r := reduceRequest(text)

	data := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: o.params.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: r},
	}

	resp, err := o.client.CreateChatCompletion(ctx,
		openai.ChatCompletionRequest{Model: o.params.Model, MaxTokens: o.params.MaxTokensResponse, Messages: data})
	if err != nil {
		return openAIResponse{}, err
	}

	if len(resp.Choices) == 0 {
		return openAIResponse{}, fmt.Errorf("no choices in response")
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &response); err != nil {
		return openAIResponse{}, fmt.Errorf("can't unmarshal response: %w", err)
	}

	return response, nil
}
