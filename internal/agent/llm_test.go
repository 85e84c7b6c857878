package agent

import (
	"encoding/json"
	"testing"
)

func completionWith(content string) string {
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"role": "assistant", "content": content},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

// --- ParseDelta Tests ---

func TestParseDelta_PlainObject(t *testing.T) {
	delta, err := ParseDelta(completionWith(`{"requestsPerMinute": 45}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta["requestsPerMinute"] != 45.0 {
		t.Errorf("expected rpm 45, got %v", delta["requestsPerMinute"])
	}
}

func TestParseDelta_MarkdownFences(t *testing.T) {
	content := "Here is my proposal:\n```json\n{\"warmup\": true, \"requestsPerMinute\": 30}\n```\nGood luck."
	delta, err := ParseDelta(completionWith(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta["warmup"] != true {
		t.Errorf("fenced JSON not extracted: %v", delta)
	}
	if delta["requestsPerMinute"] != 30.0 {
		t.Errorf("expected rpm 30, got %v", delta["requestsPerMinute"])
	}
}

func TestParseDelta_NestedObject(t *testing.T) {
	content := `{"features": {"reqs_per_min": {"weight": 4.5}}}`
	delta, err := ParseDelta(completionWith(content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	features, ok := delta["features"].(map[string]any)
	if !ok {
		t.Fatalf("nested object lost: %v", delta)
	}
	rule := features["reqs_per_min"].(map[string]any)
	if rule["weight"] != 4.5 {
		t.Errorf("expected weight 4.5, got %v", rule["weight"])
	}
}

func TestParseDelta_NoContent(t *testing.T) {
	if _, err := ParseDelta(`{"choices": []}`); err == nil {
		t.Error("empty choices must error")
	}
	if _, err := ParseDelta(completionWith("")); err == nil {
		t.Error("empty content must error")
	}
}

func TestParseDelta_NoObjectInContent(t *testing.T) {
	if _, err := ParseDelta(completionWith("I refuse to answer.")); err == nil {
		t.Error("prose without JSON must error")
	}
}

func TestParseDelta_InvalidJSON(t *testing.T) {
	if _, err := ParseDelta(completionWith(`{"rpm": }`)); err == nil {
		t.Error("broken JSON must error")
	}
}

func TestParseDelta_EmptyObjectMeansNoProposal(t *testing.T) {
	delta, err := ParseDelta(completionWith(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delta != nil {
		t.Errorf("empty object should mean no proposal, got %v", delta)
	}
}
