package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/adntgv/gptree/pkg/backend"
	"github.com/adntgv/gptree/pkg/logger"
	"github.com/adntgv/gptree/pkg/models"
)

const (
	summaryInstruction = "Summarize the following conversation in 2-3 bullet points. Be concise but capture key insights."
	titleInstruction   = "Generate a short, descriptive title (5-7 words max) for this conversation."
	maxRetries         = 2
)

// Provider implements backend.Provider using the Google Gen AI SDK.
type Provider struct {
	client *genai.Client
	model  string
}

var _ backend.Provider = (*Provider)(nil)

// New creates a new Gemini provider.
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Provider{client: client, model: model}, nil
}

// Complete sends the conversation history and returns the generated reply.
// Transient failures are retried internally with exponential backoff.
func (p *Provider) Complete(ctx context.Context, history []backend.Turn) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("history cannot be empty")
	}
	contents, system := BuildContents(history)
	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Second << (attempt - 1)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			lastErr = err
			logger.Warn("gemini_complete_failed", "attempt", attempt+1, "error", err)
			continue
		}
		return responseText(resp), nil
	}
	return "", fmt.Errorf("failed to generate response after %d attempts: %w", maxRetries+1, lastErr)
}

// Summarize produces a short recap of the whole thread.
func (p *Provider) Summarize(ctx context.Context, th *models.Thread) (string, error) {
	return p.instructed(ctx, summaryInstruction, transcript(th.Messages))
}

// Title produces a title from the thread's first few messages.
func (p *Provider) Title(ctx context.Context, th *models.Thread) (string, error) {
	msgs := th.Messages
	if len(msgs) > 3 {
		msgs = msgs[:3]
	}
	return p.instructed(ctx, titleInstruction, transcript(msgs))
}

func (p *Provider) instructed(ctx context.Context, instruction, input string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: input}}}}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// BuildContents converts backend turns into genai contents. System turns
// are folded into a single system instruction; user and assistant turns map
// to the "user" and "model" roles.
func BuildContents(history []backend.Turn) ([]*genai.Content, string) {
	var contents []*genai.Content
	var system []string
	for _, t := range history {
		switch t.Role {
		case models.AuthorSystem:
			system = append(system, t.Text)
		case models.AuthorAssistant:
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: t.Text}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: t.Text}},
			})
		}
	}
	return contents, strings.Join(system, "\n")
}

// transcript renders messages as "AUTHOR: text" lines, the form the
// summary and title prompts expect.
func transcript(msgs []models.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(string(m.Author)))
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	return b.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}
