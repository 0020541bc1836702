package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/cache"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/vector"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	store, err := vector.NewMemoryStore(8, nil)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	idx := keyword.NewBM25Index()
	provider := embedding.NewMockProvider(8)
	embCache := cache.New(cache.NewMemoryStore(0, 0, 0))
	retriever := search.NewRetriever(store, idx, provider, embCache, search.Config{}, nil)

	srv := NewServer(retriever, store, idx, embCache,
		&config.ServerConfig{Host: "localhost", Port: 0}, zap.NewNop())
	return srv, srv.Router()
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func addTestChunks(t *testing.T, handler http.Handler) []string {
	t.Helper()
	rec := postJSON(t, handler, "/api/v1/chunks", addChunksRequest{Chunks: []*models.Chunk{
		{ID: "c1", DocumentID: "d1", Content: "golang concurrency with goroutines"},
		{DocumentID: "d1", Content: "python asyncio tutorial"},
	}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add chunks: status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return resp.IDs
}

func TestHandleAddChunks(t *testing.T) {
	_, handler := newTestServer(t)
	ids := addTestChunks(t, handler)
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0] != "c1" {
		t.Errorf("explicit id not kept: %s", ids[0])
	}
	if ids[1] == "" || ids[1] == "c1" {
		t.Errorf("missing id not generated: %q", ids[1])
	}

	rec := postJSON(t, handler, "/api/v1/chunks", addChunksRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty chunks: status %d, want 400", rec.Code)
	}
	rec = postJSON(t, handler, "/api/v1/chunks", addChunksRequest{Chunks: []*models.Chunk{{ID: "x"}}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing content: status %d, want 400", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	_, handler := newTestServer(t)
	addTestChunks(t, handler)

	rec := postJSON(t, handler, "/api/v1/search", models.SearchQuery{QueryText: "golang concurrency", TopK: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].ChunkID != "c1" {
		t.Errorf("top result = %s, want c1", resp.Results[0].ChunkID)
	}
	if resp.Results[0].Rank != 1 || resp.Results[0].Score <= 0 {
		t.Errorf("result envelope = %+v", resp.Results[0])
	}
	if resp.TotalResults == 0 || resp.SearchTimeMs < 0 {
		t.Errorf("envelope totals = %+v", resp)
	}
}

func TestHandleSearch_BadRequests(t *testing.T) {
	_, handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d, want 400", rec.Code)
	}

	rec = postJSON(t, handler, "/api/v1/search", models.SearchQuery{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty query: status %d, want 400", rec.Code)
	}

	rec = postJSON(t, handler, "/api/v1/search", models.SearchQuery{QueryEmbedding: []float32{1, 0}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong dimension: status %d, want 400", rec.Code)
	}
}

func TestHandleGetAndDeleteChunk(t *testing.T) {
	_, handler := newTestServer(t)
	addTestChunks(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chunks/c1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var chunk models.Chunk
	if err := json.Unmarshal(rec.Body.Bytes(), &chunk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if chunk.ID != "c1" || chunk.DocumentID != "d1" {
		t.Errorf("chunk = %+v", chunk)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/chunks/c1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chunks/c1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status %d, want 404", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %s", resp.Status)
	}
	if !resp.Components["vector_store"] || !resp.Components["embedding_provider"] {
		t.Errorf("components = %v", resp.Components)
	}
}

func TestHandleStats(t *testing.T) {
	_, handler := newTestServer(t)
	addTestChunks(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["vector_chunks"].(float64) != 2 {
		t.Errorf("vector_chunks = %v", resp["vector_chunks"])
	}
	if resp["keyword_documents"].(float64) != 2 {
		t.Errorf("keyword_documents = %v", resp["keyword_documents"])
	}
	if _, ok := resp["cache"]; !ok {
		t.Error("cache stats missing")
	}
}
