package players

import (
	"fmt"
	"log"
	"strings"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/database"
)

// Mention is one player surfaced by classification, ready to resolve.
type Mention struct {
	Name string
	Role string
}

// LinkResult summarizes linking the mentions of one news item.
type LinkResult struct {
	Processed int
	Errors    int
}

// Resolver maintains canonical player identities.
type Resolver struct {
	db *database.DB
}

// NewResolver creates a resolver over the given database.
func NewResolver(db *database.DB) *Resolver {
	return &Resolver{db: db}
}

// FindOrCreate resolves a display name to its canonical player record,
// matching first by normalized name, then by alias, creating a new
// record when nothing matches. The second return value reports whether
// a record was created; new records start at rumor_count 1, so only
// subsequent finds earn a mention bump.
func (r *Resolver) FindOrCreate(name string) (*database.Player, bool, error) {
	name = strings.TrimSpace(name)
	normalized := Normalize(name)
	if normalized == "" {
		return nil, false, fmt.Errorf("empty player name")
	}

	p, err := r.db.GetPlayerByNormalizedName(normalized)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}

	p, err = r.db.GetPlayerByAlias(normalized)
	if err != nil {
		return nil, false, err
	}
	if p != nil {
		return p, false, nil
	}

	id, err := r.db.InsertPlayer(name, normalized)
	if err != nil {
		return nil, false, err
	}
	if id == 0 {
		// Lost a race with another insert of the same normalized name.
		p, err = r.db.GetPlayerByNormalizedName(normalized)
		return p, false, err
	}
	p, err = r.db.GetPlayerByID(id)
	return p, true, err
}

// LinkToNews resolves each mention and ties it to the news record. An
// already-linked pair is skipped silently: not an error, not counted
// as processed. New records carry their first mention in the insert,
// so only found players get the count bump. Per-mention failures are
// logged and counted, never fatal.
func (r *Resolver) LinkToNews(newsID int64, mentions []Mention) LinkResult {
	var result LinkResult
	for _, m := range mentions {
		p, playerCreated, err := r.FindOrCreate(m.Name)
		if err != nil {
			log.Printf("Resolving player %q: %v", m.Name, err)
			result.Errors++
			continue
		}

		role := m.Role
		if role == "" {
			role = "mentioned"
		}
		linked, err := r.db.InsertLink(newsID, p.ID, role)
		if err != nil {
			log.Printf("Linking player %q to news %d: %v", m.Name, newsID, err)
			result.Errors++
			continue
		}
		if !linked {
			continue
		}
		if !playerCreated {
			if err := r.db.RecordPlayerMention(p.ID); err != nil {
				log.Printf("Recording mention for player %q: %v", m.Name, err)
				result.Errors++
				continue
			}
		}
		result.Processed++
	}
	return result
}

// Merge folds the duplicate player into the primary: links are
// repointed (collisions dropped), the duplicate's name and aliases
// become aliases of the primary, rumor counts are combined, and the
// duplicate record is deleted.
func (r *Resolver) Merge(primaryID, duplicateID int64) (int, error) {
	if primaryID == duplicateID {
		return 0, fmt.Errorf("cannot merge a player into itself")
	}

	primary, err := r.db.GetPlayerByID(primaryID)
	if err != nil {
		return 0, err
	}
	if primary == nil {
		return 0, fmt.Errorf("player %d not found", primaryID)
	}
	dup, err := r.db.GetPlayerByID(duplicateID)
	if err != nil {
		return 0, err
	}
	if dup == nil {
		return 0, fmt.Errorf("player %d not found", duplicateID)
	}

	moved, err := r.db.RepointLinks(duplicateID, primaryID)
	if err != nil {
		return 0, err
	}

	aliases := append([]string{dup.NormalizedName}, dup.Aliases...)
	for _, alias := range aliases {
		if alias == primary.NormalizedName {
			continue
		}
		if err := r.db.AddPlayerAlias(primaryID, alias); err != nil {
			return moved, err
		}
	}

	if err := r.db.AddRumorCount(primaryID, dup.RumorCount); err != nil {
		return moved, err
	}
	if err := r.db.DeletePlayer(duplicateID); err != nil {
		return moved, err
	}

	log.Printf("Merged player %q into %q (%d links moved)", dup.Name, primary.Name, moved)
	return moved, nil
}
