package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wellness-chatbot/internal/llm"
	"wellness-chatbot/pkg"
)

// ErrNoResponse is returned when no provider produced any text.
var ErrNoResponse = errors.New("no response generated")

const (
	conversationTemperature = 0.7
	voiceMaxTokens          = 150
	textMaxTokens           = 300
)

// Conversation produces an ordinary assistant turn.  OpenAI is the default
// provider; Perplexity answers deep-search requests and falls back to OpenAI
// when it fails.
type Conversation struct {
	OpenAI     llm.Client
	Perplexity llm.Client
}

// BuildSystemPrompt composes the base prompt, the session style and any
// non-empty context blocks.
func BuildSystemPrompt(voice bool, company, personal string) string {
	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\n")
	if voice {
		b.WriteString(VoicePrompt)
	} else {
		b.WriteString(TextPrompt)
	}
	if company != "" {
		b.WriteString("\n\n" + CompanyContextHeader + "\n" + company)
	}
	if personal != "" {
		b.WriteString("\n\n" + PersonalContextHeader + "\n" + personal)
	}
	return b.String()
}

// Reply runs one conversational turn.  The returned Result is degraded when
// deep search was requested but the answer came from the fallback.
func (c *Conversation) Reply(ctx context.Context, req *pkg.ChatRequest, system string) (Result[string], error) {
	maxTokens := textMaxTokens
	if req.IsVoice() {
		maxTokens = voiceMaxTokens
	}

	if req.DeepSearch && req.AIProvider == pkg.ProviderPerplexity {
		text, err := c.complete(ctx, c.Perplexity, llm.PerplexityFormatter{}, system, req.Messages, maxTokens)
		if err == nil && strings.TrimSpace(text) != "" {
			return Ok(text), nil
		}
		if err == nil {
			err = ErrNoResponse
		}

		fallback, ferr := c.complete(ctx, c.OpenAI, llm.OpenAIFormatter{},
			system+"\n\n"+DeepSearchDisclaimer, req.Messages, maxTokens)
		if ferr != nil {
			return Result[string]{}, fmt.Errorf("deep search fallback: %w", ferr)
		}
		if strings.TrimSpace(fallback) == "" {
			return Result[string]{}, ErrNoResponse
		}
		return Degrade(fallback+DeepSearchUnavailableNote, DeepSearchUnavailable, err), nil
	}

	text, err := c.complete(ctx, c.OpenAI, llm.OpenAIFormatter{}, system, req.Messages, maxTokens)
	if err != nil {
		return Result[string]{}, fmt.Errorf("generate reply: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result[string]{}, ErrNoResponse
	}
	return Ok(text), nil
}

func (c *Conversation) complete(ctx context.Context, client llm.Client, f llm.Formatter, system string, history []pkg.ChatMessage, maxTokens int) (string, error) {
	if client == nil {
		return "", llm.ErrMissingAPIKey
	}
	return client.Complete(ctx, llm.Request{
		Messages:    f.Format(system, history),
		Temperature: conversationTemperature,
		MaxTokens:   maxTokens,
	})
}
