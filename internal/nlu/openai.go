package nlu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIExtractor runs extraction through the OpenAI chat API with the JSON
// response format enforced.
type OpenAIExtractor struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIExtractor creates a new OpenAI extraction client.
func NewOpenAIExtractor(apiKey string, timeout time.Duration) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	return &OpenAIExtractor{
		client:  openai.NewClient(apiKey),
		model:   defaultOpenAIModel,
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (e *OpenAIExtractor) Name() string {
	return "openai"
}

// Extract analyzes one customer message.
func (e *OpenAIExtractor) Extract(ctx context.Context, req *Request) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req.Known)},
	}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == model.RoleAgent {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: buildUserContent(&Request{Message: req.Message}),
	})

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrMalformedResponse)
	}

	return parseExtraction(resp.Choices[0].Message.Content)
}
