package llms

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements the Provider interface for OpenAI's chat
// completions API.
type OpenAIProvider struct {
	client *openai.Client
	apiKey string
	models []ModelInfo
}

// NewOpenAIProvider creates a new OpenAI provider with the given API key.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	if apiKey == "" {
		if Logger.Debug().Enabled() {
			Logger.Debug().Msg("Empty API key provided to OpenAI provider")
		}
		return nil
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIProvider{
		client: &client,
		apiKey: apiKey,
		models: []ModelInfo{
			{
				ID:           "gpt-4-turbo",
				Name:         "GPT-4 Turbo",
				Description:  "Most capable GPT-4 model, optimized for speed and cost",
				MaxTokens:    128000,
				Capabilities: []string{"summarization", "creative", "reasoning"},
				ProviderName: "openai",
			},
			{
				ID:           "gpt-4",
				Name:         "GPT-4",
				Description:  "Powerful GPT-4 model for complex tasks",
				MaxTokens:    8192,
				Capabilities: []string{"summarization", "creative", "reasoning"},
				ProviderName: "openai",
			},
			{
				ID:           "gpt-3.5-turbo",
				Name:         "GPT-3.5 Turbo",
				Description:  "Efficient, cost-effective GPT model",
				MaxTokens:    16385,
				Capabilities: []string{"summarization", "basic-reasoning"},
				ProviderName: "openai",
			},
		},
	}
}

// GetName returns the provider's name
func (p *OpenAIProvider) GetName() string {
	return "openai"
}

// GetDescription returns the provider's description
func (p *OpenAIProvider) GetDescription() string {
	return "OpenAI API for models like GPT-4 and GPT-3.5"
}

// RequiresAPIKey indicates if the provider needs an API key
func (p *OpenAIProvider) RequiresAPIKey() bool {
	return true
}

// GetAvailableModels returns the list of available models. The list is
// hardcoded rather than fetched, since OpenAI's /models endpoint returns
// far more than chat-capable models and would need the same kind of
// filtering GoogleProvider does against the live API.
func (p *OpenAIProvider) GetAvailableModels(ctx context.Context) []ModelInfo {
	return p.models
}

// Complete generates a completion from the prompt via the OpenAI chat
// completions API.
func (p *OpenAIProvider) Complete(ctx context.Context, request CompletionRequest) (CompletionResponse, error) {
	if p.apiKey == "" || p.client == nil {
		return CompletionResponse{}, errors.New("openai client not initialized: missing API key")
	}

	if request.Prompt == "" {
		return CompletionResponse{}, fmt.Errorf("%w: prompt cannot be empty for OpenAI", ErrInvalidRequest)
	}

	modelValid := false
	for _, model := range p.models {
		if model.ID == request.Model {
			modelValid = true
			break
		}
	}
	if !modelValid && request.Model != "" {
		return CompletionResponse{}, fmt.Errorf("invalid model: %s", request.Model)
	}

	model := request.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature >= 0 {
		params.Temperature = openai.Float(request.Temperature)
	}
	if request.TopP > 0 {
		params.TopP = openai.Float(request.TopP)
	}
	if request.N > 0 {
		params.N = openai.Int(request.N)
	}
	if request.FrequencyPenalty != 0.0 {
		params.FrequencyPenalty = openai.Float(request.FrequencyPenalty)
	}
	if request.PresencePenalty != 0.0 {
		params.PresencePenalty = openai.Float(request.PresencePenalty)
	}
	if request.Seed != 0 {
		params.Seed = openai.Int(request.Seed)
	}
	if len(request.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: request.StopSequences,
		}
	}
	if request.User != "" {
		params.User = openai.String(request.User)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			Logger.Error().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("OpenAI API error")
		}
		return CompletionResponse{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, errors.New("no choices returned from OpenAI completion")
	}

	choice := resp.Choices[0]
	return CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Model:    string(resp.Model),
		Provider: p.GetName(),
	}, nil
}
