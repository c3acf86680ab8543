package players

import (
	"path/filepath"
	"testing"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestNews(t *testing.T, db *database.DB, title, link string) int64 {
	t.Helper()
	id, err := db.InsertNews(&database.NewsItem{
		Title:       title,
		Link:        link,
		ContentHash: "hash-" + link,
		IsRelevant:  true,
	})
	if err != nil {
		t.Fatalf("inserting news: %v", err)
	}
	return id
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"José Ángel", "jose angel"},
		{"jose angel", "jose angel"},
		{"  ISCO  ", "isco"},
		{"N'Golo Kanté", "ngolo kante"},
		{"Çalhanoğlu", "calhanoglu"},
		{"Lo   Celso", "lo celso"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindOrCreateIdempotent(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	first, created, err := r.FindOrCreate("José Ángel")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !created {
		t.Error("expected first resolve to create the record")
	}
	second, created, err := r.FindOrCreate("jose angel")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if created {
		t.Error("expected second resolve to find the existing record")
	}
	if first.ID != second.ID {
		t.Errorf("expected same player, got %d and %d", first.ID, second.ID)
	}

	all, err := db.GetAllPlayers()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 player, got %d", len(all))
	}
	// First-seen spelling wins as display name.
	if all[0].Name != "José Ángel" {
		t.Errorf("expected display name 'José Ángel', got %q", all[0].Name)
	}
}

func TestFindOrCreateByAlias(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	p, _, err := r.FindOrCreate("Giovani Lo Celso")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddPlayerAlias(p.ID, "lo celso"); err != nil {
		t.Fatal(err)
	}

	got, created, err := r.FindOrCreate("Lo Celso")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("expected alias match, not a new record")
	}
	if got.ID != p.ID {
		t.Errorf("expected alias lookup to find player %d, got %d", p.ID, got.ID)
	}
}

func TestFindOrCreateEmptyName(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	if _, _, err := r.FindOrCreate("   "); err == nil {
		t.Error("expected error for blank name")
	}
}

func TestLinkToNews(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)
	newsID := insertTestNews(t, db, "Isco renueva", "https://example.com/isco")

	result := r.LinkToNews(newsID, []Mention{
		{Name: "Isco", Role: "target"},
		{Name: "Lo Celso"},
	})
	if result.Errors != 0 {
		t.Fatalf("expected no errors, got %d", result.Errors)
	}
	if result.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", result.Processed)
	}

	links, err := db.GetLinksForNews(newsID)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}

	isco, err := db.GetPlayerByNormalizedName("isco")
	if err != nil || isco == nil {
		t.Fatalf("expected isco persisted: %v", err)
	}
	// A brand-new player's first mention is the insert itself.
	if isco.RumorCount != 1 {
		t.Errorf("expected rumor count 1 after first mention, got %d", isco.RumorCount)
	}

	celso, err := db.GetPlayerByNormalizedName("lo celso")
	if err != nil || celso == nil {
		t.Fatalf("expected lo celso persisted: %v", err)
	}
	for _, l := range links {
		if l.PlayerID == celso.ID && l.Role != "mentioned" {
			t.Errorf("expected default role 'mentioned', got %q", l.Role)
		}
	}
}

func TestLinkToNewsDuplicateLinkDoesNotRecount(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)
	newsID := insertTestNews(t, db, "Isco renueva", "https://example.com/isco")

	first := r.LinkToNews(newsID, []Mention{{Name: "Isco", Role: "target"}})
	if first.Processed != 1 {
		t.Fatalf("expected first link processed, got %d", first.Processed)
	}

	second := r.LinkToNews(newsID, []Mention{{Name: "Isco", Role: "target"}})
	if second.Processed != 0 {
		t.Errorf("expected already-linked pair not counted as processed, got %d", second.Processed)
	}
	if second.Errors != 0 {
		t.Errorf("expected already-linked pair not counted as error, got %d", second.Errors)
	}

	isco, err := db.GetPlayerByNormalizedName("isco")
	if err != nil || isco == nil {
		t.Fatalf("expected isco persisted: %v", err)
	}
	if isco.RumorCount != 1 {
		t.Errorf("expected rumor count unchanged at 1, got %d", isco.RumorCount)
	}
}

func TestLinkToNewsSecondMentionBumpsCount(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)
	newsA := insertTestNews(t, db, "Isco renueva", "https://example.com/a")
	newsB := insertTestNews(t, db, "Isco otra vez", "https://example.com/b")

	r.LinkToNews(newsA, []Mention{{Name: "Isco", Role: "target"}})
	r.LinkToNews(newsB, []Mention{{Name: "Isco", Role: "target"}})

	isco, err := db.GetPlayerByNormalizedName("isco")
	if err != nil || isco == nil {
		t.Fatalf("expected isco persisted: %v", err)
	}
	if isco.RumorCount != 2 {
		t.Errorf("expected rumor count 2 after second mention, got %d", isco.RumorCount)
	}
}

func TestMerge(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	newsA := insertTestNews(t, db, "A", "https://example.com/a")
	newsB := insertTestNews(t, db, "B", "https://example.com/b")

	r.LinkToNews(newsA, []Mention{{Name: "Isco Alarcón", Role: "target"}})
	r.LinkToNews(newsA, []Mention{{Name: "Isco", Role: "target"}})
	r.LinkToNews(newsB, []Mention{{Name: "Isco", Role: "target"}})

	primary, _ := db.GetPlayerByNormalizedName("isco alarcon")
	dup, _ := db.GetPlayerByNormalizedName("isco")
	if primary == nil || dup == nil {
		t.Fatal("expected both spellings persisted")
	}

	moved, err := r.Merge(primary.ID, dup.ID)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	// newsB moves; newsA collides with the primary's existing link and drops.
	if moved != 1 {
		t.Errorf("expected 1 link moved, got %d", moved)
	}

	if gone, _ := db.GetPlayerByID(dup.ID); gone != nil {
		t.Error("expected duplicate record deleted")
	}

	merged, err := db.GetPlayerByID(primary.ID)
	if err != nil || merged == nil {
		t.Fatalf("expected primary to survive: %v", err)
	}
	// primary had 1 (created by its link), dup had 2 (created + 1 more link).
	if merged.RumorCount != 3 {
		t.Errorf("expected combined rumor count 3, got %d", merged.RumorCount)
	}

	hasAlias := false
	for _, a := range merged.Aliases {
		if a == "isco" {
			hasAlias = true
		}
	}
	if !hasAlias {
		t.Errorf("expected 'isco' recorded as alias, got %v", merged.Aliases)
	}

	// Future mentions of the old spelling resolve to the primary.
	resolved, _, err := r.FindOrCreate("Isco")
	if err != nil {
		t.Fatal(err)
	}
	if resolved.ID != primary.ID {
		t.Errorf("expected alias resolution to primary %d, got %d", primary.ID, resolved.ID)
	}

	links, _ := db.GetLinksForPlayer(primary.ID)
	if len(links) != 2 {
		t.Errorf("expected 2 links after merge, got %d", len(links))
	}
}

func TestMergeSelf(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	p, _, err := r.FindOrCreate("Isco")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Merge(p.ID, p.ID); err == nil {
		t.Error("expected self-merge to be rejected")
	}
}

func TestMergeMissingPlayer(t *testing.T) {
	db := openTestDB(t)
	r := NewResolver(db)

	p, _, err := r.FindOrCreate("Isco")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Merge(p.ID, 999); err == nil {
		t.Error("expected error merging a missing player")
	}
	if _, err := r.Merge(999, p.ID); err == nil {
		t.Error("expected error merging into a missing player")
	}
}
