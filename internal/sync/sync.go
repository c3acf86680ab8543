package sync

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/classify"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/config"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/dedupe"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/enrich"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/feeds"
	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/players"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

type aggregator interface {
	FetchAll(ctx context.Context, maxAge time.Duration) []feeds.Candidate
}

type enricher interface {
	Extract(ctx context.Context, articleURL string) string
}

type analyzer interface {
	Analyze(ctx context.Context, req classify.Request) (classify.Analysis, bool)
}

// Runner orchestrates one end-to-end sync: reassessments first, then
// fetch, dedupe, enrich, classify, persist and link players.
type Runner struct {
	cfg        *config.Config
	db         *database.DB
	aggregator aggregator
	enricher   enricher
	analyzer   analyzer
	resolver   *players.Resolver
	pacer      Pacer
}

// New wires a runner from configuration. The classifier provider is
// selected here; a nil provider degrades to fallback analyses rather
// than failing the run.
func New(cfg *config.Config, db *database.DB) *Runner {
	provider := classify.CreateProvider(
		cfg.Analysis.Provider, cfg.Analysis.Model, cfg.Analysis.OllamaURL,
		cfg.Analysis.OpenAIModel, cfg.Analysis.APIKeyEnv,
	)
	policy := classify.RetryPolicy{
		MaxAttempts: cfg.Analysis.MaxAttempts,
		Timeout:     time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second,
		Backoff:     time.Second,
	}
	return &Runner{
		cfg:        cfg,
		db:         db,
		aggregator: feeds.New(cfg.Sources.Feeds),
		enricher:   enrich.New(0),
		analyzer:   classify.NewAnalyzer(provider, policy, cfg.Analysis.MaxTokens),
		resolver:   players.NewResolver(db),
		pacer:      newPacer(time.Duration(cfg.Analysis.PaceSeconds) * time.Second),
	}
}

// Run executes one sync cycle and persists its report. maxAgeHours
// bounds how far back feed items are accepted.
func (r *Runner) Run(ctx context.Context, maxAgeHours int) (*database.RunReport, error) {
	report := &database.RunReport{StartedAt: time.Now().UTC().Format(sqliteTimeFormat)}

	r.runReassessments(ctx, report)

	candidates := r.aggregator.FetchAll(ctx, time.Duration(maxAgeHours)*time.Hour)
	report.Fetched = len(candidates)
	log.Printf("Processing %d candidates", len(candidates))

	window, err := r.db.GetRecentNews(r.cfg.Sync.DedupeWindowDays)
	if err != nil {
		return report, err
	}

	for _, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		item, inserted := r.processCandidate(ctx, c, window, report)
		if inserted {
			window = append(window, *item)
		}
	}

	finished := time.Now().UTC().Format(sqliteTimeFormat)
	report.FinishedAt = &finished
	if _, err := r.db.InsertRunReport(report); err != nil {
		log.Printf("Failed to persist run report: %v", err)
		report.Errors++
	}

	log.Printf("Sync done: %d fetched, %d inserted, %d duplicates, %d rumors, %d errors",
		report.Fetched, report.Inserted, report.Duplicates, report.TransferRumors, report.Errors)
	return report, nil
}

// processCandidate takes one feed candidate through dedupe, enrichment,
// classification and persistence. It returns the stored item when a new
// record was created.
func (r *Runner) processCandidate(ctx context.Context, c feeds.Candidate, window []database.NewsItem, report *database.RunReport) (*database.NewsItem, bool) {
	dd := dedupe.Classify(c.Title, c.Description, window)
	if dd.IsDuplicate {
		log.Printf("Duplicate of news %d (score %d): %s", dd.DuplicateOfID, dd.SimilarityScore, c.Title)
		report.Duplicates++
		return nil, false
	}

	content := r.enricher.Extract(ctx, c.Link)

	if err := r.pacer.Wait(ctx); err != nil {
		report.Errors++
		return nil, false
	}
	analysis, analyzed := r.analyzer.Analyze(ctx, classify.Request{
		Title:          c.Title,
		Description:    c.Description,
		Source:         c.Source,
		ArticleContent: content,
	})
	if analyzed {
		report.Analyzed++
	}

	item := buildNewsItem(c, dd.ContentHash, analysis)
	id, err := r.db.InsertNews(item)
	if err != nil {
		log.Printf("Failed to insert %q: %v", c.Title, err)
		report.Errors++
		return nil, false
	}
	if id == 0 {
		report.Duplicates++
		return nil, false
	}
	item.ID = id
	report.Inserted++
	if item.IsHidden {
		report.AutoHidden++
	}

	switch stored := item.AIProbability; {
	case stored == nil:
		report.NotAnalyzed++
	case *stored == 0:
		report.RegularNews++
	default:
		report.TransferRumors++
	}

	if shouldLinkPlayers(analysis) {
		result := r.resolver.LinkToNews(id, toMentions(analysis.Players))
		report.PlayersProcessed += result.Processed
		report.Errors += result.Errors
	}

	return item, true
}

// runReassessments re-analyzes admin-flagged records. A failed attempt
// leaves the flag set so the next run retries.
func (r *Runner) runReassessments(ctx context.Context, report *database.RunReport) {
	pending, err := r.db.GetNewsNeedingReassessment(r.cfg.Sync.ReassessBatch)
	if err != nil {
		log.Printf("Failed to load reassessment queue: %v", err)
		report.Errors++
		return
	}
	if len(pending) == 0 {
		return
	}
	log.Printf("Reassessing %d flagged records", len(pending))

	for _, item := range pending {
		if ctx.Err() != nil {
			return
		}

		content := r.enricher.Extract(ctx, item.Link)

		if err := r.pacer.Wait(ctx); err != nil {
			report.Errors++
			return
		}
		analysis, ok := r.analyzer.Analyze(ctx, classify.Request{
			Title:          item.Title,
			Description:    derefString(item.Description),
			Source:         derefString(item.Source),
			ArticleContent: content,
			AdminContext:   derefString(item.AdminContext),
			IsReassessment: true,
		})
		if !ok {
			report.Errors++
			continue
		}

		hidden := !analysis.IsRelevant
		err := r.db.UpdateClassification(item.ID, analysis.StoredProbability(),
			marshalAnalysis(analysis), analysis.IsRelevant,
			optionalString(analysis.IrrelevanceReason), hidden)
		if err != nil {
			log.Printf("Failed to store reassessment for news %d: %v", item.ID, err)
			report.Errors++
			continue
		}
		report.Reassessed++

		if shouldLinkPlayers(analysis) {
			result := r.resolver.LinkToNews(item.ID, toMentions(analysis.Players))
			report.PlayersProcessed += result.Processed
			report.Errors += result.Errors
		}
	}
}

// shouldLinkPlayers gates identity resolution: only relevant items with
// a positive rumor probability, decent confidence and named players get
// linked.
func shouldLinkPlayers(a classify.Analysis) bool {
	stored := a.StoredProbability()
	return a.IsRelevant &&
		stored != nil && *stored > 0 &&
		a.HighEnoughConfidence() &&
		len(a.Players) > 0
}

func buildNewsItem(c feeds.Candidate, contentHash string, analysis classify.Analysis) *database.NewsItem {
	item := &database.NewsItem{
		Title:             c.Title,
		Link:              c.Link,
		Source:            optionalString(c.Source),
		Description:       optionalString(c.Description),
		ContentHash:       contentHash,
		AIProbability:     analysis.StoredProbability(),
		IsRelevant:        analysis.IsRelevant,
		IrrelevanceReason: optionalString(analysis.IrrelevanceReason),
		IsHidden:          !analysis.IsRelevant,
	}
	if c.PublishedAt != nil {
		ts := c.PublishedAt.UTC().Format(sqliteTimeFormat)
		item.PublishedAt = &ts
	}
	if blob := marshalAnalysis(analysis); blob != "" {
		item.AIAnalysis = &blob
	}
	return item
}

func marshalAnalysis(a classify.Analysis) string {
	blob, err := json.Marshal(map[string]any{
		"reasoning":  a.Reasoning,
		"confidence": a.Confidence,
		"players":    a.Players,
	})
	if err != nil {
		return ""
	}
	return string(blob)
}

func toMentions(mentions []classify.PlayerMention) []players.Mention {
	out := make([]players.Mention, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, players.Mention{Name: m.Name, Role: m.Role})
	}
	return out
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
