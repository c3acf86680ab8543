package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// mockProvider implements Provider for testing.
type mockProvider struct {
	response   string
	err        error
	lastPrompt string
	calls      int
}

func (m *mockProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Timeout: time.Second, Backoff: 0}
}

func rumorResponse(t *testing.T) string {
	t.Helper()
	resp, err := json.Marshal(map[string]any{
		"probability":       80,
		"reasoning":         "Multiple outlets report advanced talks",
		"confidence":        "high",
		"isTransferRumor":   true,
		"isRelevantToBetis": true,
		"players":           []map[string]string{{"name": "Isco", "role": "target"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(resp)
}

func TestAnalyzeRumor(t *testing.T) {
	mock := &mockProvider{response: rumorResponse(t)}
	a := NewAnalyzer(mock, testPolicy(), 0)

	analysis, ok := a.Analyze(context.Background(), Request{Title: "Isco vuelve al Betis", Source: "X"})
	if !ok {
		t.Fatal("expected successful analysis")
	}
	if analysis.Probability == nil || *analysis.Probability != 80 {
		t.Error("expected probability 80")
	}
	stored := analysis.StoredProbability()
	if stored == nil || *stored != 80 {
		t.Error("expected stored probability 80")
	}
	if !analysis.IsRelevant {
		t.Error("expected relevant")
	}
	if len(analysis.Players) != 1 || analysis.Players[0].Name != "Isco" {
		t.Fatalf("expected Isco extracted, got %+v", analysis.Players)
	}
	if analysis.Players[0].Role != "target" {
		t.Errorf("expected role 'target', got %q", analysis.Players[0].Role)
	}
}

func TestNonRumorForcesZeroProbability(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"probability":       60, // classifier contradicts itself
		"reasoning":         "Match report, not transfer news",
		"confidence":        "high",
		"isTransferRumor":   false,
		"isRelevantToBetis": true,
	})
	mock := &mockProvider{response: string(resp)}
	a := NewAnalyzer(mock, testPolicy(), 0)

	analysis, ok := a.Analyze(context.Background(), Request{Title: "Betis 2-0 Sevilla"})
	if !ok {
		t.Fatal("expected successful analysis")
	}
	stored := analysis.StoredProbability()
	if stored == nil || *stored != 0 {
		t.Error("expected isTransferRumor=false to force stored probability 0")
	}
}

func TestUndeterminedKeepsNilProbability(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"probability":       nil,
		"reasoning":         "Not enough text to decide",
		"confidence":        "low",
		"isTransferRumor":   nil,
		"isRelevantToBetis": true,
	})
	mock := &mockProvider{response: string(resp)}
	a := NewAnalyzer(mock, testPolicy(), 0)

	analysis, ok := a.Analyze(context.Background(), Request{Title: "?"})
	if !ok {
		t.Fatal("expected successful analysis")
	}
	if analysis.StoredProbability() != nil {
		t.Error("expected nil stored probability for undetermined outcome")
	}
}

func TestMalformedResponsesConsumeRetries(t *testing.T) {
	mock := &mockProvider{response: "this is not JSON"}
	a := NewAnalyzer(mock, testPolicy(), 0)

	analysis, ok := a.Analyze(context.Background(), Request{Title: "X"})
	if ok {
		t.Fatal("expected exhausted outcome")
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.calls)
	}
	if analysis.StoredProbability() != nil {
		t.Error("expected fallback nil probability")
	}
	if !analysis.IsRelevant {
		t.Error("expected fallback to keep the item visible")
	}
	if analysis.HighEnoughConfidence() {
		t.Error("expected fallback confidence to block player linking")
	}
}

func TestTransportErrorsConsumeRetries(t *testing.T) {
	mock := &mockProvider{err: errors.New("connection refused")}
	a := NewAnalyzer(mock, RetryPolicy{MaxAttempts: 2, Timeout: time.Second, Backoff: 0}, 0)

	_, ok := a.Analyze(context.Background(), Request{Title: "X"})
	if ok {
		t.Fatal("expected exhausted outcome")
	}
	if mock.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", mock.calls)
	}
}

func TestMissingRequiredFieldIsMalformed(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"probability": 50,
		"reasoning":   "No relevance verdict",
		"confidence":  "medium",
		// isRelevantToBetis missing
	})
	mock := &mockProvider{response: string(resp)}
	a := NewAnalyzer(mock, RetryPolicy{MaxAttempts: 1, Timeout: time.Second, Backoff: 0}, 0)

	if _, ok := a.Analyze(context.Background(), Request{Title: "X"}); ok {
		t.Error("expected missing required field to be treated as failure")
	}
}

func TestParseAnalysisCodeFences(t *testing.T) {
	text := "```json\n" + rumorResponse(t) + "\n```"
	analysis, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Probability == nil || *analysis.Probability != 80 {
		t.Error("expected probability 80 through code fences")
	}
}

func TestParseAnalysisClampsAndDefaults(t *testing.T) {
	resp, _ := json.Marshal(map[string]any{
		"probability":       250,
		"reasoning":         "over-enthusiastic model",
		"confidence":        "VERY HIGH",
		"isTransferRumor":   true,
		"isRelevantToBetis": true,
		"players": []map[string]string{
			{"name": "Lo Celso"},
			{"name": "   "},
		},
	})
	analysis, err := parseAnalysis(string(resp))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *analysis.Probability != 100 {
		t.Errorf("expected probability clamped to 100, got %d", *analysis.Probability)
	}
	if analysis.Confidence != "low" {
		t.Errorf("expected unknown confidence coerced to 'low', got %q", analysis.Confidence)
	}
	if len(analysis.Players) != 1 {
		t.Fatalf("expected blank player name dropped, got %d players", len(analysis.Players))
	}
	if analysis.Players[0].Role != "mentioned" {
		t.Errorf("expected default role 'mentioned', got %q", analysis.Players[0].Role)
	}
}

func TestReassessmentPromptIncludesContext(t *testing.T) {
	mock := &mockProvider{response: rumorResponse(t)}
	a := NewAnalyzer(mock, testPolicy(), 0)

	a.Analyze(context.Background(), Request{
		Title:          "Isco vuelve al Betis",
		AdminContext:   "Isco already retired",
		IsReassessment: true,
	})

	if !strings.Contains(mock.lastPrompt, "Isco already retired") {
		t.Error("expected admin context in reassessment prompt")
	}
	if !strings.Contains(mock.lastPrompt, "CORRECTION pass") {
		t.Error("expected correction-pass marker in reassessment prompt")
	}
}

func TestRegularPromptOmitsCorrectionNote(t *testing.T) {
	mock := &mockProvider{response: rumorResponse(t)}
	a := NewAnalyzer(mock, testPolicy(), 0)

	a.Analyze(context.Background(), Request{Title: "Isco vuelve al Betis"})
	if strings.Contains(mock.lastPrompt, "CORRECTION pass") {
		t.Error("did not expect correction-pass marker on first analysis")
	}
}

func TestAnalyzeNilProvider(t *testing.T) {
	a := NewAnalyzer(nil, testPolicy(), 0)
	analysis, ok := a.Analyze(context.Background(), Request{Title: "X"})
	if ok {
		t.Error("expected failure with nil provider")
	}
	if analysis.StoredProbability() != nil {
		t.Error("expected fallback analysis")
	}
}
