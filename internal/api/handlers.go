package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}

	req := s.defaults
	req.Query = body.Query
	resp, err := s.client.Search(r.Context(), req)
	if err != nil {
		zap.L().Error("search submission failed", zap.String("query", body.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Search request initiated successfully",
		"requestId":       resp.ID,
		"status":          resp.Status,
		"resultsLocation": resp.ResultsLocation,
	})
}

func (s *Server) handleRequestResults(w http.ResponseWriter, r *http.Request) {
	if s.apiKey == "" {
		writeError(w, http.StatusInternalServerError, "API key is not configured.")
		return
	}
	requestID := chi.URLParam(r, "requestId")
	if requestID == "" {
		writeError(w, http.StatusBadRequest, "Request ID is required")
		return
	}

	result, err := s.client.GetRequest(r.Context(), requestID)
	if err != nil {
		var apiErr *outscraper.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			// The vendor uses 200 for success and pending; forward anything
			// else below 500 as-is so the frontend can react to it.
			zap.L().Error("vendor rejected poll",
				zap.String("request_id", requestID),
				zap.Int("status", apiErr.StatusCode),
			)
			writeJSON(w, apiErr.StatusCode, map[string]any{
				"success": false,
				"message": fmt.Sprintf("Outscraper API returned status %d", apiErr.StatusCode),
				"error":   rawOrString(apiErr.Body),
			})
			return
		}
		zap.L().Error("poll failed", zap.String("request_id", requestID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Internal server error fetching results.",
			"error":   err.Error(),
		})
		return
	}

	if result.Status == model.StatusSuccess {
		s.persistResults(r, requestID, result.Data)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  result.Status,
		"data":    result.Data,
	})
}

// persistResults upserts every candidate carrying a place id. A candidate
// that fails is counted and skipped; the batch never aborts.
func (s *Server) persistResults(r *http.Request, requestID string, data json.RawMessage) {
	candidates, ok := model.ParseCandidates(data)
	if !ok {
		zap.L().Warn("success payload is not the expected nested list",
			zap.String("request_id", requestID),
		)
		return
	}

	var saved, failed int
	for _, c := range candidates {
		if !c.HasKey() {
			zap.L().Warn("skipping candidate without place id", zap.String("name", c.Name))
			failed++
			continue
		}
		if err := s.store.UpsertLead(r.Context(), c.Lead()); err != nil {
			zap.L().Error("upsert lead failed",
				zap.String("place_id", c.PlaceID),
				zap.String("name", c.Name),
				zap.Error(err),
			)
			failed++
			continue
		}
		saved++
	}

	zap.L().Info("persisted search results",
		zap.String("request_id", requestID),
		zap.Int("saved", saved),
		zap.Int("failed", failed),
	)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.ListLeads(r.Context())
	if err != nil {
		zap.L().Error("list leads failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "Failed to fetch leads.",
			"error":   err.Error(),
		})
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leads": leads})
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")
	if err := s.store.DeleteLead(r.Context(), placeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		zap.L().Error("delete lead failed", zap.String("place_id", placeID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete lead.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rawOrString preserves a vendor body verbatim when it is valid JSON and
// quotes it otherwise.
func rawOrString(body string) any {
	trimmed := strings.TrimSpace(body)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return body
}
