package feeds

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/IsmaelMartinez/betis-escocia-sub000/internal/config"
)

const (
	placeholderTitle = "Untitled"
	placeholderLink  = "#"
)

// Candidate is an unpersisted news item freshly pulled from a source.
type Candidate struct {
	Title       string
	Link        string
	PublishedAt *time.Time
	Source      string
	Description string
}

// Aggregator fetches all configured feeds and normalizes their items.
type Aggregator struct {
	feeds  []config.Feed
	parser *gofeed.Parser
}

// New creates an aggregator over the configured feed list.
func New(feeds []config.Feed) *Aggregator {
	return &Aggregator{feeds: feeds, parser: gofeed.NewParser()}
}

// FetchAll fetches every source and returns candidates newer than maxAge,
// newest first. A source that fails to fetch contributes zero items and
// never aborts the others.
func (a *Aggregator) FetchAll(ctx context.Context, maxAge time.Duration) []Candidate {
	cutoff := time.Now().Add(-maxAge)
	var all []Candidate

	for _, fc := range a.feeds {
		name := fc.Name
		if name == "" {
			name = extractSourceName(fc.URL)
		}

		feed, err := a.parser.ParseURLWithContext(fc.URL, ctx)
		if err != nil {
			log.Printf("Failed to fetch feed %s: %v", fc.URL, err)
			continue
		}

		count := 0
		for _, item := range feed.Items {
			c := parseItem(item, name)
			if withinWindow(c.PublishedAt, cutoff) {
				all = append(all, c)
				count++
			}
		}
		log.Printf("Fetched %d items from %s", count, name)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return publishedOrZero(all[i]).After(publishedOrZero(all[j]))
	})
	return all
}

func parseItem(item *gofeed.Item, source string) Candidate {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = placeholderTitle
	}

	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		link = placeholderLink
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	return Candidate{
		Title:       title,
		Link:        link,
		PublishedAt: published,
		Source:      source,
		Description: stripHTML(item.Description),
	}
}

// withinWindow keeps items with no parseable date (benefit of the doubt).
func withinWindow(published *time.Time, cutoff time.Time) bool {
	if published == nil {
		return true
	}
	return !published.Before(cutoff)
}

func publishedOrZero(c Candidate) time.Time {
	if c.PublishedAt == nil {
		return time.Time{}
	}
	return *c.PublishedAt
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return feedURL
	}

	for _, prefix := range []string{"www.", "blog.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
