// Package advisor turns prediction results into a short natural-language
// advisory. Best-effort: when no API key is configured or the call fails,
// the primary result is delivered without it.
package advisor

import (
	"context"
	"fmt"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"mandiCropBot/internal/backend"
)

type Advisor struct {
	cli     oa.Client
	enabled bool
}

func New(apiKey string) *Advisor {
	if apiKey == "" {
		return &Advisor{}
	}
	return &Advisor{cli: oa.NewClient(option.WithAPIKey(apiKey)), enabled: true}
}

func (a *Advisor) Enabled() bool { return a.enabled }

const systemPrompt = `You are an agricultural market analyst advising Indian farmers and traders. You will receive a commodity price prediction for a specific mandi (market) with recent history context.

Your response must follow this exact structure:

**Outlook:**
[One or two sentences on what the predicted price implies versus recent prices]

**Suggestion:**
[Whether to consider selling now, holding, or watching the market, with a one-line reason]

**Caveats:**
[Data-quality caveats: short history, padded windows, model uncertainty]

Guidelines:
- Keep the whole answer under 120 words
- Never promise outcomes; this is a statistical estimate
- Mention the padded flag only when it is set`

// Advise builds the advisory message for a prediction. recentAvg may be zero
// when no history was available.
func (a *Advisor) Advise(ctx context.Context, p backend.Prediction, recentAvg float64) (string, error) {
	if !a.enabled {
		return "", fmt.Errorf("advisor disabled: no API key")
	}

	user := fmt.Sprintf(
		"Commodity: %s\nState: %s\nMarket: %s\nPredicted next modal price: %.2f\nModel window: %d, points used: %d, padded: %v\n",
		p.Commodity, p.State, p.Market, p.PredictedNextPrice, p.WindowSize, p.UsedPoints, p.Padded)
	if recentAvg > 0 {
		user += fmt.Sprintf("Average of recent observed prices: %.2f\n", recentAvg)
	} else {
		user += "No recent price history was available.\n"
	}

	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(systemPrompt),
			oa.UserMessage(user),
		},
		MaxTokens: oa.Int(400),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
