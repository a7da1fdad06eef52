// Package parse turns free-form text like "coffee 3.50 yesterday" into a
// transaction draft using a Gemini model.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"pocketbook/internal/core"
	"pocketbook/internal/log"
)

// Parser extracts transaction drafts from natural language.
type Parser struct {
	client *genai.Client
	model  string
	logger *log.Logger
	now    func() time.Time
}

func NewParser(ctx context.Context, model string) (*Parser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Parser{
		client: client,
		model:  model,
		logger: log.New(log.Config{Component: log.ComponentParser}),
		now:    time.Now,
	}, nil
}

const promptTemplate = `You are a bookkeeping assistant. Extract exactly one transaction from the user's text.

Output STRICT JSON only (no comments, no extra text): a single JSON object with these fields:
- "description": string, a short cleaned-up label
- "amount": string, the positive decimal amount, e.g. "12.50"
- "kind": string, "income" or "expense"
- "date": string, ISO format "YYYY-MM-DD", or null

Rules:
- Today is %s. Resolve relative dates like "yesterday" against it.
- If the text names no date at all, output null for "date". NEVER invent a date.
- If the text does not clearly describe a money amount, output null for "amount".
- Treat salaries, allowances, refunds and money received as "income"; everything else is "expense".
- Return ONLY valid raw JSON.
- Do NOT wrap the response in code fences.
- Do NOT use ` + "```json" + ` or any Markdown.
- Output must begin with "{" and end with "}".
`

// ParseTransaction asks the model for a draft. It returns nil on any failure,
// the caller falls back to manual entry.
func (p *Parser) ParseTransaction(ctx context.Context, text string) *core.Transaction {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	prompt := fmt.Sprintf(promptTemplate, p.now().Format(core.DateLayout))

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{Text: "User text:\n" + text},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		p.logger.WarnContext(ctx, "Model call failed", "error", err)
		return nil
	}

	rawText := resp.Text()
	if rawText == "" {
		p.logger.WarnContext(ctx, "Empty response from model")
		return nil
	}

	tx, err := decodeParsed(cleanModelJSON(rawText), p.now())
	if err != nil {
		p.logger.WarnContext(ctx, "Unusable model output", "error", err)
		return nil
	}
	return tx
}

// parsedTransaction is the JSON shape the model is asked to produce.
type parsedTransaction struct {
	Description string  `json:"description"`
	Amount      *string `json:"amount"`
	Kind        string  `json:"kind"`
	Date        *string `json:"date"`
}

// decodeParsed validates the model output and fills the date with today when
// the text named none.
func decodeParsed(raw string, now time.Time) (*core.Transaction, error) {
	var parsed parsedTransaction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	if parsed.Amount == nil {
		return nil, fmt.Errorf("model found no amount")
	}
	amount, err := decimal.NewFromString(*parsed.Amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", *parsed.Amount, err)
	}

	date := core.Today(now)
	if parsed.Date != nil && *parsed.Date != "" {
		date, err = core.ParseDate(*parsed.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", *parsed.Date, err)
		}
	}

	tx := &core.Transaction{
		Date:        date,
		Description: strings.TrimSpace(parsed.Description),
		Amount:      amount,
		Kind:        core.Kind(parsed.Kind),
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draft: %w", err)
	}
	return tx, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
