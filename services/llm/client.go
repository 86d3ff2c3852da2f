package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"research_platform_backend/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrNotConfigured is returned when no API key was provided at startup.
// Callers should surface this as a 503 rather than a 500.
var ErrNotConfigured = errors.New("llm service not configured")

const (
	maxResponseTokens   = 4096
	samplingTemperature = 0.4

	terminalSystemPrompt = "You are a research assistant on an Indian equity research platform. " +
		"Answer investor questions about markets, sectors and listed companies concisely. " +
		"You are not a financial advisor; remind users that responses are informational and " +
		"not investment advice when they ask for direct buy or sell guidance."

	draftSystemPrompt = "You draft equity research reports for SEBI-registered analysts. " +
		"Produce a structured report with sections for thesis, financial highlights, valuation, " +
		"risks and disclosures. Include a standard disclaimer section. The analyst will review " +
		"and edit the draft before submission; do not present it as final published research."
)

// Client wraps the Anthropic messages API for terminal chat and report drafting.
type Client struct {
	api     anthropic.Client
	model   string
	enabled bool
}

// Reply is a completed LLM turn with token accounting for the transcript.
type Reply struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// NewClient builds a client; an empty apiKey yields a disabled client whose
// methods return ErrNotConfigured.
func NewClient(apiKey, model string) *Client {
	if apiKey == "" {
		return &Client{enabled: false}
	}
	return &Client{
		api:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		enabled: true,
	}
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Chat sends the thread history plus the new user message and returns the
// assistant reply.
func (c *Client) Chat(ctx context.Context, history []models.ChatMessage, userMessage string) (*Reply, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, msg := range history {
		switch msg.Role {
		case models.ChatRoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.ChatRoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	return c.complete(ctx, terminalSystemPrompt, messages)
}

// DraftReport asks the model for a structured research report draft on a
// ticker from the analyst's notes.
func (c *Client) DraftReport(ctx context.Context, ticker, notes string) (*Reply, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Draft a research report for %s.\n", ticker)
	if notes != "" {
		fmt.Fprintf(&prompt, "\nAnalyst notes to incorporate:\n%s\n", notes)
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.String())),
	}
	return c.complete(ctx, draftSystemPrompt, messages)
}

func (c *Client) complete(ctx context.Context, systemPrompt string, messages []anthropic.MessageParam) (*Reply, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxResponseTokens,
		Temperature: anthropic.Float(samplingTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: messages,
	}

	message, err := c.api.Messages.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	if len(message.Content) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	var text strings.Builder
	for _, block := range message.Content {
		text.WriteString(block.Text)
	}

	return &Reply{
		Text:         text.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}
