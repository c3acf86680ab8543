package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
)

// similarityThreshold is the inclusive token-sort-ratio score at which a
// candidate counts as a near-duplicate of a stored record.
const similarityThreshold = 85

// Result is the outcome of a duplicate check against the recent window.
type Result struct {
	ContentHash     string
	IsDuplicate     bool
	DuplicateOfID   int64
	SimilarityScore int
}

// Hash fingerprints a candidate's title and description. Case and
// surrounding whitespace are normalized; punctuation is not stripped.
func Hash(title, description string) string {
	normalized := strings.ToLower(strings.TrimSpace(title)) +
		strings.ToLower(strings.TrimSpace(description))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Classify checks a candidate against the supplied window of recent
// records. Exact hash matches short-circuit at score 100; otherwise the
// best token-sort ratio over the window decides. The engine holds no
// state and performs no I/O.
func Classify(title, description string, window []database.NewsItem) Result {
	r := Result{ContentHash: Hash(title, description)}

	for _, item := range window {
		if item.ContentHash == r.ContentHash {
			r.IsDuplicate = true
			r.DuplicateOfID = item.ID
			r.SimilarityScore = 100
			return r
		}
	}

	candidateText := title + " " + description
	for _, item := range window {
		score := fuzzy.TokenSortRatio(candidateText, itemText(item))
		if score > r.SimilarityScore {
			r.SimilarityScore = score
			r.DuplicateOfID = item.ID
		}
	}

	if meetsThreshold(r.SimilarityScore) {
		r.IsDuplicate = true
	} else {
		r.DuplicateOfID = 0
	}
	return r
}

// meetsThreshold is inclusive: a score of exactly 85 is a duplicate.
func meetsThreshold(score int) bool {
	return score >= similarityThreshold
}

func itemText(item database.NewsItem) string {
	text := item.Title
	if item.Description != nil && *item.Description != "" {
		text += " " + *item.Description
	}
	return text
}
