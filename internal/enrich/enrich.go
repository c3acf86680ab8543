package enrich

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultTimeout = 10 * time.Second
	maxRedirects   = 3
	maxContentLen  = 5000
	userAgent      = "rumorsync/1.0 (Real Betis rumor aggregator)"
)

// contentSelectors is searched in priority order; the first non-empty
// match wins. The body is the fallback.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".article-body",
	".article-content",
	".post-content",
	".entry-content",
	"#content",
	".content",
}

// nonContentSelector matches elements stripped before extraction.
const nonContentSelector = "script, style, noscript, nav, header, footer, aside, iframe, form, " +
	".ads, .advertisement, .ad-container, .comments, .comment-section, .social-share, .related-articles"

// Enricher retrieves the main textual content of a linked article.
type Enricher struct {
	client *http.Client
}

// New creates an enricher. A zero timeout uses the 10s default.
func New(timeout time.Duration) *Enricher {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Enricher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
	}
}

// Extract fetches the URL and returns its main text, truncated to 5000
// characters. Any failure returns the empty string; enrichment is always
// best-effort.
func (e *Enricher) Extract(ctx context.Context, articleURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		log.Printf("Article fetch failed for %s: %v", articleURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("Article fetch returned %d for %s", resp.StatusCode, articleURL)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	return extractText(doc)
}

func extractText(doc *goquery.Document) string {
	doc.Find(nonContentSelector).Remove()

	var text string
	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		text = collapseWhitespace(sel.First().Text())
		if text != "" {
			break
		}
	}
	if text == "" {
		text = collapseWhitespace(doc.Find("body").Text())
	}

	if len(text) > maxContentLen {
		cut := maxContentLen
		// Back up so the cut never splits a multibyte rune.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
