package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

type wireAnalysis struct {
	Probability       *float64        `json:"probability"`
	Reasoning         *string         `json:"reasoning"`
	Confidence        *string         `json:"confidence"`
	IsTransferRumor   *bool           `json:"isTransferRumor"`
	IsRelevantToBetis *bool           `json:"isRelevantToBetis"`
	IrrelevanceReason string          `json:"irrelevanceReason"`
	Players           []PlayerMention `json:"players"`
}

// parseAnalysis decodes a classifier response, tolerating markdown code
// fences. Missing required fields are malformed responses and consume a
// retry, so they surface as errors here.
func parseAnalysis(text string) (*Analysis, error) {
	text = stripCodeFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	var wire wireAnalysis
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if wire.Reasoning == nil {
		return nil, fmt.Errorf("missing required field 'reasoning'")
	}
	if wire.Confidence == nil {
		return nil, fmt.Errorf("missing required field 'confidence'")
	}
	if wire.IsRelevantToBetis == nil {
		return nil, fmt.Errorf("missing required field 'isRelevantToBetis'")
	}

	a := &Analysis{
		Reasoning:         *wire.Reasoning,
		Confidence:        normalizeConfidence(*wire.Confidence),
		IsTransferRumor:   wire.IsTransferRumor,
		IsRelevant:        *wire.IsRelevantToBetis,
		IrrelevanceReason: wire.IrrelevanceReason,
	}

	if wire.Probability != nil {
		p := clamp(int(*wire.Probability), 0, 100)
		a.Probability = &p
	}

	for _, pm := range wire.Players {
		if strings.TrimSpace(pm.Name) == "" {
			continue
		}
		if pm.Role == "" {
			pm.Role = "mentioned"
		}
		a.Players = append(a.Players, pm)
	}

	return a, nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

func normalizeConfidence(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}
