// Package formatter is the LLM collaborator: it picks the most newsworthy
// of the surviving candidates and writes publish-ready post text. It never
// takes part in the gate decisions themselves.
package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"go.uber.org/zap"

	"newsgate/gatekeeper"
	"newsgate/repository"
)

const selectPrompt = `You are the editor of a tech and business news channel.

Here are the latest candidate news items:

%s

Task:
1. Pick the TOP %d most interesting and important items
2. For each, write a post of 100-150 words, readable, with emoji
3. Add hashtags

Answer with ONLY a JSON array, no explanations:
[
  {
    "original_index": 1,
    "formatted_text": "...",
    "hashtags": ["#Example"]
  }
]`

type selection struct {
	OriginalIndex int      `json:"original_index"`
	FormattedText string   `json:"formatted_text"`
	Hashtags      []string `json:"hashtags"`
}

type Formatter struct {
	llm           llms.Model
	maxCandidates int
	topN          int
	logger        *zap.Logger
}

func New(apiKey, model string, maxCandidates, topN int, logger *zap.Logger) (*Formatter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key not configured")
	}
	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return &Formatter{
		llm:           llm,
		maxCandidates: maxCandidates,
		topN:          topN,
		logger:        logger,
	}, nil
}

// SelectAndFormat asks the model to rank and write up the top items. Any
// failure degrades to an empty selection at the call site, never a crash.
func (f *Formatter) SelectAndFormat(ctx context.Context, items []repository.NewsItem) ([]gatekeeper.Candidate, error) {
	if len(items) == 0 {
		return nil, nil
	}

	pool := items
	if len(pool) > f.maxCandidates {
		pool = pool[:f.maxCandidates]
	}

	var b strings.Builder
	for i, item := range pool {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   Source: %s\n\n", i+1, item.Title, item.Description, item.Source)
	}
	prompt := fmt.Sprintf(selectPrompt, b.String(), f.topN)

	raw, err := llms.GenerateFromSinglePrompt(ctx, f.llm, prompt, llms.WithMaxTokens(2000))
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	candidates, err := parseSelection(raw, pool, f.topN)
	if err != nil {
		return nil, err
	}

	f.logger.Info("formatter selected candidates",
		zap.Int("pool", len(pool)), zap.Int("selected", len(candidates)))
	return candidates, nil
}

// parseSelection maps the model's JSON back onto the candidate pool,
// tolerating markdown code fences around the array.
func parseSelection(raw string, pool []repository.NewsItem, topN int) ([]gatekeeper.Candidate, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var selections []selection
	if err := json.Unmarshal([]byte(cleaned), &selections); err != nil {
		return nil, fmt.Errorf("unparseable formatter response: %w", err)
	}

	candidates := make([]gatekeeper.Candidate, 0, topN)
	for _, sel := range selections {
		if len(candidates) >= topN {
			break
		}
		idx := sel.OriginalIndex - 1
		if idx < 0 || idx >= len(pool) || sel.FormattedText == "" {
			continue
		}
		text := sel.FormattedText
		if len(sel.Hashtags) > 0 {
			text += "\n\n" + strings.Join(sel.Hashtags, " ")
		}
		candidates = append(candidates, gatekeeper.Candidate{Item: pool[idx], Text: text})
	}
	return candidates, nil
}

// Fallback takes the first n items verbatim when no LLM is configured.
func Fallback(items []repository.NewsItem, n int) []gatekeeper.Candidate {
	if len(items) < n {
		n = len(items)
	}
	candidates := make([]gatekeeper.Candidate, 0, n)
	for _, item := range items[:n] {
		text := item.Title
		if item.Description != "" {
			text += "\n\n" + item.Description
		}
		candidates = append(candidates, gatekeeper.Candidate{Item: item, Text: text})
	}
	return candidates
}
