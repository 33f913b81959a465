package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/logging"
	"github.com/perivale/drift/internal/store"
)

// maxPageSize caps how many items one request may ask for.
const maxPageSize = 100

// Handler serves the feed API against the store.
type Handler struct {
	store *store.Store
}

// NewHandler creates a Handler.
func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// feedResponse is the wire shape of a feed page.
type feedResponse struct {
	Items      []content.Item `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
	HasMore    bool           `json:"hasMore"`
}

// GetFeed handles GET /api/v1/feed.
// Query: page, pageSize, cursor, categories (comma separated), exclude
// (comma separated content IDs). Absence of cursor means first page.
func (h *Handler) GetFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	req := content.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Cursor:   c.Query("cursor"),
	}
	if cats := c.Query("categories"); cats != "" {
		req.Categories = splitNonEmpty(cats)
	} else if cat := c.Query("category"); cat != "" {
		req.Categories = []string{cat}
	}
	if excl := c.Query("exclude"); excl != "" {
		req.ExcludeIDs = splitNonEmpty(excl)
	}

	result, err := h.store.GetPage(req)
	if err != nil {
		logging.Error("feed page query failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load page"})
		return
	}

	items := result.Items
	if items == nil {
		items = []content.Item{}
	}
	c.JSON(http.StatusOK, feedResponse{
		Items:      items,
		NextCursor: result.NextCursor,
		HasMore:    result.HasMore,
	})
}

// engagementRequest is the wire shape of an engagement report.
type engagementRequest struct {
	SessionID string  `json:"sessionId" binding:"required"`
	ContentID string  `json:"contentId" binding:"required"`
	Seconds   int     `json:"seconds"`
	Interest  float64 `json:"interest"`
	Kind      string  `json:"kind" binding:"required"`
}

// PostEngagement handles POST /api/v1/engagement. Fire-and-forget from
// the client's perspective; failures here never affect the feed.
func (h *Handler) PostEngagement(c *gin.Context) {
	var req engagementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	switch req.Kind {
	case "duration":
		err = h.store.SaveDuration(req.SessionID, req.ContentID, req.Seconds)
	case "interest":
		err = h.store.SaveInterest(req.SessionID, req.ContentID, req.Interest)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown engagement kind"})
		return
	}
	if err != nil {
		logging.Error("engagement save failed", "kind", req.Kind, "contentID", req.ContentID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save engagement"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	count, err := h.store.ItemCount()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "items": count})
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
