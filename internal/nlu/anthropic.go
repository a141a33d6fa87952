package nlu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/buzz-lite/delivery-coordinator/internal/model"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicExtractor runs extraction through the Anthropic messages API.
// There is no JSON response mode, so the prompt demands JSON-only output and
// the parser cuts away any surrounding prose.
type AnthropicExtractor struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicExtractor creates a new Anthropic extraction client.
func NewAnthropicExtractor(apiKey string, timeout time.Duration) (*AnthropicExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	return &AnthropicExtractor{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   defaultAnthropicModel,
		timeout: timeout,
	}, nil
}

// Name returns the provider name.
func (e *AnthropicExtractor) Name() string {
	return "anthropic"
}

// Extract analyzes one customer message.
func (e *AnthropicExtractor) Extract(ctx context.Context, req *Request) (*Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text := func(content string) anthropic.MessageParam {
		return anthropic.MessageParam{
			Role: anthropic.F(anthropic.MessageParamRoleUser),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(content),
				},
			}),
		}
	}

	messages := []anthropic.MessageParam{text(buildSystemPrompt(req.Known))}
	for _, t := range req.History {
		m := text(t.Content)
		if t.Role == model.RoleAgent {
			m.Role = anthropic.F(anthropic.MessageParamRoleAssistant)
		}
		messages = append(messages, m)
	}
	messages = append(messages, text(buildUserContent(&Request{Message: req.Message})))

	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(e.model),
		MaxTokens: anthropic.F(int64(1024)),
		Messages:  anthropic.F(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	return parseExtraction(content)
}
