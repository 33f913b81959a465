// Package content defines the feed item model and the paginated source
// the session controller loads from.
package content

import "time"

// Item is a single piece of feed content. Immutable once fetched; the
// session layer references items by ID and never mutates them.
type Item struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	TopicID        string    `json:"topicId,omitempty"`
	Category       string    `json:"category"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	URL            string    `json:"url,omitempty"`
	SourceName     string    `json:"sourceName,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	RelevanceScore float64   `json:"relevanceScore,omitempty"` // 0..1 when present
	RelatedQueries []string  `json:"relatedQueries,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PageRequest carries pagination parameters for a single fetch.
// An empty Cursor means "first page"; once the server issues a cursor it
// replaces page-based offsets for pagination stability.
type PageRequest struct {
	Page       int
	PageSize   int
	Cursor     string
	Categories []string
	ExcludeIDs []string
}

// PageResult is one page of content plus continuation info.
type PageResult struct {
	Items      []Item
	NextCursor string
	HasMore    bool
}
