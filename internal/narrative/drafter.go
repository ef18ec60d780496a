// Package narrative drafts a report introduction from the week's
// water-balance summaries. It is optional: without an API key the feature
// is simply absent, never an error.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jfarrand/cropcast/internal/balance"
)

// Drafter turns summaries into a short intro paragraph via the OpenAI API.
type Drafter struct {
	client openai.Client
	model  string
}

// NewDrafter reads OPENAI_API_KEY from the environment. Callers treat the
// error as "feature disabled" and carry on.
func NewDrafter() (*Drafter, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Drafter{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Draft returns a two-to-three sentence introduction for a weekly report
// covering the given summaries.
func (d *Drafter) Draft(ctx context.Context, summaries []balance.Summary) (string, error) {
	if len(summaries) == 0 {
		return "", errors.New("no summaries to draft from")
	}

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: d.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You write brief, factual introductions for weekly agricultural irrigation reports. Two or three sentences, no greetings, no markdown."),
			openai.UserMessage(buildPrompt(summaries)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("draft intro: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildPrompt flattens the summaries into the bullet list the model works
// from. Only already-computed numbers go in; the model never sees raw data.
func buildPrompt(summaries []balance.Summary) string {
	var b strings.Builder
	b.WriteString("Water-balance summary for the week:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s, %s: forecast crop water use %.2f in (%s need)",
			s.LocationName, s.CropName, s.ETcForecast, s.Need)
		if s.ActualDays > 0 {
			fmt.Fprintf(&b, ", measured ET so far %.2f in", s.ETcActual)
		}
		if s.Station == balance.StationOutOfRegion {
			b.WriteString(", no station coverage")
		}
		b.WriteString("\n")
	}
	b.WriteString("Write the introduction paragraph.")
	return b.String()
}
