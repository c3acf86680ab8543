package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const analysisPrompt = `You are vetting Spanish football news for a Real Betis transfer-rumor tracker.

Decide whether this item is a genuine TRANSFER RUMOR about Real Betis (a player
arriving, leaving, or being linked with the club), incidental Betis news, or
content not relevant to Real Betis at all.

Title: %s
Source: %s
Summary: %s
%s
Respond with ONLY this JSON:
{
    "probability": 0-100,
    "reasoning": "One or two sentences explaining the score",
    "confidence": "low" | "medium" | "high",
    "isTransferRumor": true | false | null,
    "isRelevantToBetis": true | false,
    "irrelevanceReason": "Only when isRelevantToBetis is false",
    "players": [{"name": "Player Name", "role": "target" | "departing" | "mentioned"}]
}

probability: likelihood this is a real transfer rumor (100 = confirmed signing talk,
0 = definitely not transfer news). Use null for isTransferRumor only when the text
gives you no way to decide. Only list players actually named in the text.`

const reassessmentNote = `
This is a CORRECTION pass: an administrator reviewed the original assessment and
added context. Weigh it heavily.
Administrator context: %s
`

// Request is the classification input for one news item.
type Request struct {
	Title          string
	Description    string
	Source         string
	ArticleContent string
	AdminContext   string
	IsReassessment bool
}

// PlayerMention is a player extracted from an item.
type PlayerMention struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Analysis is a completed classification.
type Analysis struct {
	Probability       *int
	Reasoning         string
	Confidence        string // "low", "medium" or "high"
	IsTransferRumor   *bool  // nil = could not determine
	IsRelevant        bool
	IrrelevanceReason string
	Players           []PlayerMention
}

// StoredProbability derives the persistable ai_probability from the
// tagged outcome: nil strictly means "not analyzed / undetermined",
// 0 strictly means "analyzed, confirmed non-rumor". A false
// isTransferRumor forces 0 regardless of the returned probability.
func (a Analysis) StoredProbability() *int {
	if a.IsTransferRumor == nil {
		return nil
	}
	if !*a.IsTransferRumor {
		zero := 0
		return &zero
	}
	if a.Probability == nil {
		return nil
	}
	p := clamp(*a.Probability, 0, 100)
	return &p
}

// HighEnoughConfidence reports whether player extraction may trust this
// analysis (medium or high only).
func (a Analysis) HighEnoughConfidence() bool {
	return a.Confidence == "medium" || a.Confidence == "high"
}

// RetryPolicy bounds the attempts against the external classifier.
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration
	Backoff     time.Duration
}

// DefaultRetryPolicy matches the external quota characteristics.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Timeout: 30 * time.Second, Backoff: time.Second}
}

// Analyzer wraps a provider with the retry policy and prompt contract.
type Analyzer struct {
	provider  Provider
	policy    RetryPolicy
	maxTokens int
}

// NewAnalyzer creates an analyzer. Zero policy fields get defaults.
func NewAnalyzer(provider Provider, policy RetryPolicy, maxTokens int) *Analyzer {
	def := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.Backoff < 0 {
		policy.Backoff = def.Backoff
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Analyzer{provider: provider, policy: policy, maxTokens: maxTokens}
}

// Analyze classifies one item. The second return value is false when all
// attempts were exhausted and the Analysis is the neutral fallback; it
// never surfaces an error to the caller.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (Analysis, bool) {
	if a.provider == nil {
		log.Println("No classifier provider available")
		return fallbackAnalysis(), false
	}

	prompt := buildPrompt(req)

	for attempt := 0; attempt < a.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fallbackAnalysis(), false
			case <-time.After(a.policy.Backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.policy.Timeout)
		text, err := a.provider.Generate(attemptCtx, prompt, a.maxTokens)
		cancel()
		if err != nil {
			log.Printf("Classifier attempt %d/%d failed: %v", attempt+1, a.policy.MaxAttempts, err)
			continue
		}

		analysis, err := parseAnalysis(text)
		if err != nil {
			log.Printf("Classifier attempt %d/%d returned malformed output: %v", attempt+1, a.policy.MaxAttempts, err)
			continue
		}
		return *analysis, true
	}

	log.Printf("Classifier exhausted %d attempts for %q", a.policy.MaxAttempts, req.Title)
	return fallbackAnalysis(), false
}

func buildPrompt(req Request) string {
	description := req.Description
	if description == "" {
		description = "(no summary)"
	}

	var extra strings.Builder
	if req.ArticleContent != "" {
		fmt.Fprintf(&extra, "Article content:\n%s\n", req.ArticleContent)
	}
	if req.IsReassessment {
		fmt.Fprintf(&extra, reassessmentNote, req.AdminContext)
	}

	return fmt.Sprintf(analysisPrompt, req.Title, req.Source, description, extra.String())
}

// fallbackAnalysis is the degraded outcome after exhausted retries. The
// item stays visible so an administrator can queue it for reassessment.
func fallbackAnalysis() Analysis {
	return Analysis{
		Probability:     nil,
		Reasoning:       "Classification unavailable after retries",
		Confidence:      "low",
		IsTransferRumor: nil,
		IsRelevant:      true,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
