package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/store"
)

func newTestServer(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewServer(NewHandler(st)), st
}

func seedFeed(t *testing.T, st *store.Store, n int) {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	items := make([]content.Item, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("item-%03d", i)
		items[i] = content.Item{
			ID:        id,
			Slug:      "slug-" + id,
			Category:  "tech",
			Title:     "Title " + id,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	if _, err := st.SaveItems(items); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

type feedBody struct {
	Items      []content.Item `json:"items"`
	NextCursor string         `json:"nextCursor"`
	HasMore    bool           `json:"hasMore"`
}

func getFeed(t *testing.T, r *gin.Engine, query string) (*httptest.ResponseRecorder, feedBody) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed"+query, nil)
	r.ServeHTTP(w, req)
	var body feedBody
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w, body
}

func TestGetFeedFirstPage(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 30)

	w, body := getFeed(t, r, "?pageSize=10")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(body.Items) != 10 {
		t.Errorf("got %d items, want 10", len(body.Items))
	}
	if !body.HasMore || body.NextCursor == "" {
		t.Error("expected hasMore with a cursor")
	}
	if body.Items[0].ID != "item-000" {
		t.Errorf("first item = %s, want newest", body.Items[0].ID)
	}
}

func TestGetFeedCursorPagination(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 15)

	_, first := getFeed(t, r, "?pageSize=10")
	w, second := getFeed(t, r, "?pageSize=10&cursor="+first.NextCursor)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if len(second.Items) != 5 || second.HasMore {
		t.Errorf("final page: %d items hasMore=%v", len(second.Items), second.HasMore)
	}
	if second.Items[0].ID != "item-010" {
		t.Errorf("second page starts at %s", second.Items[0].ID)
	}
}

func TestGetFeedEmptyStoreReturnsEmptyArray(t *testing.T) {
	r, _ := newTestServer(t)

	w, body := getFeed(t, r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if body.Items == nil || len(body.Items) != 0 {
		t.Errorf("empty feed must be [] not null: %s", w.Body.String())
	}
	if body.HasMore {
		t.Error("empty feed has no more pages")
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("wire format must carry an empty array: %s", w.Body.String())
	}
}

func TestGetFeedExcludeAndCategories(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 5)
	st.SaveItems([]content.Item{{
		ID: "sci-1", Slug: "sci-1", Category: "science", Title: "Science",
		CreatedAt: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC),
	}})

	_, body := getFeed(t, r, "?categories=tech&exclude=item-000,item-001")
	for _, item := range body.Items {
		if item.Category != "tech" {
			t.Errorf("category filter leaked %s", item.ID)
		}
		if item.ID == "item-000" || item.ID == "item-001" {
			t.Errorf("excluded item %s returned", item.ID)
		}
	}
	if len(body.Items) != 3 {
		t.Errorf("got %d items, want 3", len(body.Items))
	}
}

func TestGetFeedPageSizeCapped(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 120)

	_, body := getFeed(t, r, "?pageSize=5000")
	if len(body.Items) != 100 {
		t.Errorf("page size must cap at 100, got %d", len(body.Items))
	}
}

func TestGetFeedBadCursor(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 3)

	w, _ := getFeed(t, r, "?cursor=garbage")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status %d for undecodable cursor", w.Code)
	}
}

func postEngagement(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engagement", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPostEngagementDuration(t *testing.T) {
	r, st := newTestServer(t)

	w := postEngagement(t, r, `{"sessionId":"s1","contentId":"abc","seconds":7,"kind":"duration"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}

	seconds, _, err := st.GetEngagement("s1", "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if seconds != 7 {
		t.Errorf("seconds = %d, want 7", seconds)
	}
}

func TestPostEngagementInterestAccumulates(t *testing.T) {
	r, st := newTestServer(t)

	postEngagement(t, r, `{"sessionId":"s1","contentId":"abc","interest":2.0,"kind":"interest"}`)
	w := postEngagement(t, r, `{"sessionId":"s1","contentId":"abc","interest":1.5,"kind":"interest"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d", w.Code)
	}

	_, interest, err := st.GetEngagement("s1", "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if interest != 3.5 {
		t.Errorf("interest = %f, want 3.5", interest)
	}
}

func TestPostEngagementValidation(t *testing.T) {
	r, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing sessionId", `{"contentId":"abc","kind":"duration"}`},
		{"missing contentId", `{"sessionId":"s1","kind":"duration"}`},
		{"missing kind", `{"sessionId":"s1","contentId":"abc"}`},
		{"unknown kind", `{"sessionId":"s1","contentId":"abc","kind":"telepathy"}`},
		{"not json", `seconds=7`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postEngagement(t, r, tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", w.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	r, st := newTestServer(t)
	seedFeed(t, st, 4)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" || body["items"] != float64(4) {
		t.Errorf("health body = %v", body)
	}
}
