package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/botarena/botarena/pkg/types"
	"github.com/tidwall/gjson"
)

// ChatMessage is one message in an OpenAI-compatible chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

// LLMProposer asks an OpenAI-compatible chat endpoint for a
// configuration delta. The model is treated as opaque: whatever JSON
// object it returns becomes the proposal, and any malformed reply is
// an error the round survives.
type LLMProposer struct {
	http   *http.Client
	url    string
	token  string
	model  string
	logger *slog.Logger
}

// NewLLMProposer builds a proposer from environment configuration:
// BOTARENA_LLM_BASE, BOTARENA_LLM_KEY and BOTARENA_LLM_MODEL.
func NewLLMProposer() *LLMProposer {
	base := os.Getenv("BOTARENA_LLM_BASE")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	model := os.Getenv("BOTARENA_LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &LLMProposer{
		http:   &http.Client{Timeout: 60 * time.Second},
		url:    strings.TrimRight(base, "/") + "/chat/completions",
		token:  os.Getenv("BOTARENA_LLM_KEY"),
		model:  model,
		logger: slog.Default(),
	}
}

// Propose sends the round context to the model and extracts a delta
// from its reply.
func (p *LLMProposer) Propose(ctx context.Context, req ProposalRequest) (map[string]any, error) {
	metricsJSON, _ := json.MarshalIndent(req.Metrics.Summary(), "", "  ")
	configJSON, _ := json.MarshalIndent(req.CurrentConfig, "", "  ")
	historyJSON, _ := json.MarshalIndent(req.History, "", "  ")

	messages := []ChatMessage{
		{Role: "system", Content: systemPrompt(req.Side)},
		{Role: "user", Content: fmt.Sprintf(
			"Round metrics:\n%s\n\nCurrent configuration:\n%s\n\nYour past proposals and their outcomes:\n%s\n\nReturn ONLY a JSON object: the partial configuration delta to try next round.",
			metricsJSON, configJSON, historyJSON)},
	}

	body, _ := json.Marshal(chatRequest{Model: p.model, Messages: messages, Temperature: 0.7})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("proposal request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("proposal endpoint returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read completion: %w", err)
	}
	delta, err := ParseDelta(string(raw))
	if err != nil {
		return nil, err
	}
	p.logger.Info("proposal received",
		slog.String("side", string(req.Side)),
		slog.Int("fields", len(delta)),
	)
	return delta, nil
}

// ParseDelta pulls the proposal object out of a chat completion. The
// content may wrap the JSON in markdown fences or prose; the first
// top-level object wins.
func ParseDelta(completion string) (map[string]any, error) {
	content := gjson.Get(completion, "choices.0.message.content").String()
	if content == "" {
		return nil, fmt.Errorf("completion has no message content")
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in completion content")
	}
	candidate := content[start : end+1]
	if !gjson.Valid(candidate) {
		return nil, fmt.Errorf("completion content is not valid JSON")
	}

	var delta map[string]any
	if err := json.Unmarshal([]byte(candidate), &delta); err != nil {
		return nil, fmt.Errorf("failed to decode delta: %w", err)
	}
	if len(delta) == 0 {
		return nil, nil
	}
	return delta, nil
}

func systemPrompt(side types.Side) string {
	if side == types.SideRed {
		return "You are the attacker in a bot-detection arena. You control a traffic " +
			"generation profile (JSON). Propose a partial delta to the profile that " +
			"raises your extraction rate while evading the detector. Change at most " +
			"three fields. Respond with a single JSON object."
	}
	return "You are the detector in a bot-detection arena. You control a scoring " +
		"policy (feature weights/thresholds and four action bands, YAML schema " +
		"mirrored as JSON). Propose a partial delta that suppresses bots harder " +
		"without raising false positives. Keep action bands strictly increasing. " +
		"Change at most three fields. Respond with a single JSON object."
}
