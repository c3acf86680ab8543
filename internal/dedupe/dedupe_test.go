package dedupe

import (
	"testing"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
)

func ptr(s string) *string { return &s }

func TestHashDeterministic(t *testing.T) {
	a := Hash("Isco vuelve al Betis", "El centrocampista regresa")
	b := Hash("Isco vuelve al Betis", "El centrocampista regresa")
	if a != b {
		t.Error("expected identical hashes for identical input")
	}
	if len(a) != 64 {
		t.Errorf("expected 64-char hex sha256, got %d chars", len(a))
	}
}

func TestHashCaseAndWhitespaceInsensitive(t *testing.T) {
	a := Hash("Isco vuelve al Betis", "desc")
	b := Hash("  ISCO VUELVE AL BETIS  ", "desc")
	if a != b {
		t.Error("expected hash to ignore case and surrounding whitespace")
	}
}

func TestHashSensitiveToContent(t *testing.T) {
	a := Hash("Isco vuelve al Betis", "")
	b := Hash("Isco se queda en Madrid", "")
	if a == b {
		t.Error("expected different hashes for different titles")
	}

	c := Hash("Isco vuelve al Betis", "con contrato de dos anos")
	if a == c {
		t.Error("expected different hashes for different descriptions")
	}

	// Punctuation is part of the fingerprint.
	d := Hash("Isco vuelve al Betis!", "")
	if a == d {
		t.Error("expected punctuation to change the hash")
	}
}

func TestClassifyExactDuplicate(t *testing.T) {
	window := []database.NewsItem{
		{ID: 7, Title: "Isco vuelve al Betis", ContentHash: Hash("Isco vuelve al Betis", "")},
	}

	r := Classify("ISCO VUELVE AL BETIS", "", window)
	if !r.IsDuplicate {
		t.Fatal("expected exact duplicate")
	}
	if r.SimilarityScore != 100 {
		t.Errorf("expected score 100, got %d", r.SimilarityScore)
	}
	if r.DuplicateOfID != 7 {
		t.Errorf("expected duplicate of 7, got %d", r.DuplicateOfID)
	}
}

func TestClassifyFuzzyDuplicateTokenOrder(t *testing.T) {
	window := []database.NewsItem{
		{ID: 3, Title: "Betis quiere fichar a Lo Celso", ContentHash: "other"},
	}

	// Same tokens, different order: token-sort ratio is 100.
	r := Classify("Lo Celso: Betis quiere fichar a", "", window)
	if !r.IsDuplicate {
		t.Fatal("expected token-reordered title to be a duplicate")
	}
	if r.DuplicateOfID != 3 {
		t.Errorf("expected duplicate of 3, got %d", r.DuplicateOfID)
	}
}

func TestClassifyNotDuplicate(t *testing.T) {
	window := []database.NewsItem{
		{ID: 1, Title: "Betis quiere fichar a Lo Celso", ContentHash: "a"},
		{ID: 2, Title: "Lesion de larga duracion para Fekir", ContentHash: "b"},
	}

	r := Classify("El estadio renovara su iluminacion esta temporada", "", window)
	if r.IsDuplicate {
		t.Errorf("expected no duplicate, got match with score %d", r.SimilarityScore)
	}
	if r.DuplicateOfID != 0 {
		t.Errorf("expected no matched id, got %d", r.DuplicateOfID)
	}
}

func TestClassifyEmptyWindow(t *testing.T) {
	r := Classify("Isco vuelve al Betis", "", nil)
	if r.IsDuplicate {
		t.Error("expected no duplicate against empty window")
	}
	if r.ContentHash == "" {
		t.Error("expected content hash to be computed regardless")
	}
}

func TestThresholdBoundaryInclusive(t *testing.T) {
	if !meetsThreshold(85) {
		t.Error("score 85 must be a duplicate (inclusive boundary)")
	}
	if meetsThreshold(84) {
		t.Error("score 84 must not be a duplicate")
	}
	if !meetsThreshold(100) {
		t.Error("score 100 must be a duplicate")
	}
}

func TestClassifyUsesDescription(t *testing.T) {
	desc := "El centrocampista malagueno podria regresar al club verdiblanco este verano"
	window := []database.NewsItem{
		{ID: 5, Title: "Rumor del dia", Description: ptr(desc), ContentHash: "x"},
	}

	r := Classify("Rumor del dia", desc, window)
	if !r.IsDuplicate {
		t.Error("expected description to contribute to similarity")
	}
}
