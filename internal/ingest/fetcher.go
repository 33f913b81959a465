package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"

	"github.com/perivale/drift/internal/content"
)

// Fetcher retrieves items from feed sources.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves items from a source. Does NOT store items - the caller
// decides what to do with them. Respects context cancellation.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]content.Item, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "drift/0.1 (+https://github.com/perivale/drift)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	parser := gofeed.NewParser()
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := time.Now()
	items := make([]content.Item, 0, len(feed.Items))
	for _, feedItem := range feed.Items {
		items = append(items, convertFeedItem(feedItem, src, now))
	}
	return items, nil
}

// convertFeedItem converts a gofeed.Item to a content.Item.
func convertFeedItem(feedItem *gofeed.Item, src Source, fetchTime time.Time) content.Item {
	id := generateID(feedItem)

	createdAt := fetchTime
	if feedItem.PublishedParsed != nil {
		createdAt = *feedItem.PublishedParsed
	} else if feedItem.UpdatedParsed != nil {
		createdAt = *feedItem.UpdatedParsed
	}

	summary := feedItem.Description
	if summary == "" && feedItem.Content != "" {
		summary = truncate(feedItem.Content, 500)
	}

	tags := append([]string(nil), src.Tags...)
	for _, c := range feedItem.Categories {
		if c = strings.TrimSpace(c); c != "" {
			tags = append(tags, strings.ToLower(c))
		}
	}

	return content.Item{
		ID:         id,
		Slug:       slugify(feedItem.Title) + "-" + id[:6],
		TopicID:    src.TopicID,
		Category:   src.Category,
		Title:      feedItem.Title,
		Summary:    summary,
		URL:        feedItem.Link,
		SourceName: src.Name,
		Tags:       tags,
		CreatedAt:  createdAt,
	}
}

// generateID creates a deterministic ID for a feed item.
// Uses the GUID if available, otherwise hashes the URL.
func generateID(feedItem *gofeed.Item) string {
	if feedItem.GUID != "" {
		return hashString(feedItem.GUID)
	}
	if feedItem.Link != "" {
		return hashString(feedItem.Link)
	}
	key := feedItem.Title
	if feedItem.PublishedParsed != nil {
		key += feedItem.PublishedParsed.String()
	}
	return hashString(key)
}

// hashString creates a short hash of a string for use as an ID.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:8]) // 16 character hex string
}

// slugify lowercases a title and collapses everything that is not a
// letter or digit into single hyphens. Capped at 60 characters.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
		if b.Len() >= 60 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
