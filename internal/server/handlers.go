package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
	"github.com/hyperjump/kensaku/pkg/utils"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", utils.Truncate(query.QueryText, 200)),
		zap.Int("top_k", query.TopK))
	response, err := s.retriever.Retrieve(r.Context(), &query)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vector.ErrDimensionMismatch) || errors.Is(err, keyword.ErrEmptyQuery) {
			status = http.StatusBadRequest
		} else if query.QueryText == "" && len(query.QueryEmbedding) == 0 {
			status = http.StatusBadRequest
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type addChunksRequest struct {
	Chunks []*models.Chunk `json:"chunks"`
}

func (s *Server) handleAddChunks(w http.ResponseWriter, r *http.Request) {
	var req addChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Chunks) == 0 {
		s.respondError(w, http.StatusBadRequest, "chunks are required")
		return
	}
	for _, c := range req.Chunks {
		if c.Content == "" {
			s.respondError(w, http.StatusBadRequest, "chunk content is required")
			return
		}
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
	}
	s.logger.Debug("add chunks request", zap.Int("count", len(req.Chunks)))
	if err := s.retriever.IndexChunks(r.Context(), req.Chunks); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vector.ErrDimensionMismatch) || errors.Is(err, vector.ErrMissingEmbedding) {
			status = http.StatusBadRequest
		}
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, status, err.Error())
		return
	}
	ids := make([]string, len(req.Chunks))
	for i, c := range req.Chunks {
		ids[i] = c.ID
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"ids": ids, "status": "indexed"})
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.vectorStore != nil {
		if chunk, ok := s.vectorStore.GetChunk(r.Context(), id); ok {
			s.respondJSON(w, http.StatusOK, chunk)
			return
		}
	}
	if s.keywordIdx != nil {
		if chunk, ok := s.keywordIdx.GetDocumentByID(r.Context(), id); ok {
			s.respondJSON(w, http.StatusOK, chunk)
			return
		}
	}
	s.respondError(w, http.StatusNotFound, "chunk not found")
}

func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete chunk request", zap.String("id", id))
	if err := s.retriever.DeleteChunks(r.Context(), []string{id}); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.retriever.Health(r.Context())
	status := http.StatusOK
	overall := "ok"
	for _, ok := range health {
		if !ok {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			break
		}
	}
	s.respondJSON(w, status, map[string]interface{}{
		"status":     overall,
		"components": health,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := make(map[string]interface{})
	if s.vectorStore != nil {
		resp["vector_chunks"] = s.vectorStore.Count()
	}
	if s.keywordIdx != nil {
		resp["keyword_documents"] = s.keywordIdx.DocumentCount()
	}
	if s.embCache != nil {
		resp["cache"] = s.embCache.Stats()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
