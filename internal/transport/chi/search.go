package chi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kailas-cloud/msgdex/internal/domain/search/criteria"
	"github.com/kailas-cloud/msgdex/internal/domain/search/filter"
	"github.com/kailas-cloud/msgdex/internal/domain/search/query"
	"github.com/kailas-cloud/msgdex/internal/domain/search/result"
	"github.com/kailas-cloud/msgdex/internal/domain/search/session"
	"github.com/kailas-cloud/msgdex/internal/domain/search/strategy"
	"github.com/kailas-cloud/msgdex/internal/metrics"
)

const defaultSuggestMax = 10

type filterDTO struct {
	ConversationID    *int64     `json:"conversation_id,omitempty"`
	AuthorID          *int64     `json:"author_id,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	HasReply          bool       `json:"has_reply,omitempty"`
	IncludedFileTypes []string   `json:"included_file_types,omitempty"`
	ExcludedFileTypes []string   `json:"excluded_file_types,omitempty"`
	RequiredTags      []string   `json:"required_tags,omitempty"`
	ExcludedTags      []string   `json:"excluded_tags,omitempty"`
}

type searchRequest struct {
	Query             string     `json:"query"`
	Strategy          string     `json:"strategy"`
	Skip              int        `json:"skip"`
	Take              int        `json:"take"`
	IncludeExtensions bool       `json:"include_extensions"`
	IncludeVectors    bool       `json:"include_vectors"`
	Filter            *filterDTO `json:"filter,omitempty"`
}

type resultItemDTO struct {
	ID              int64     `json:"id"`
	ConversationID  int64     `json:"conversation_id"`
	AuthorID        int64     `json:"author_id"`
	ReplyToID       *int64    `json:"reply_to_id,omitempty"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	Score           float64   `json:"score"`
	Highlights      []string  `json:"highlights,omitempty"`
	AttachmentTypes []string  `json:"attachment_types,omitempty"`
}

type searchResponse struct {
	SessionID string          `json:"session_id"`
	Strategy  string          `json:"strategy"`
	Items     []resultItemDTO `json:"items"`
	Total     int             `json:"total"`
	Skip      int             `json:"skip"`
	Take      int             `json:"take"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := filterFromDTO(req.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	strat := strategy.Strategy(req.Strategy)
	if req.Strategy == "" {
		strat = strategy.InvertedIndex
	}
	take := req.Take
	if take == 0 {
		take = criteria.DefaultTake
	}

	c := criteria.New(
		query.New(req.Query), strat, f,
		req.Skip, take,
		req.IncludeExtensions, req.IncludeVectors,
	)
	validation := s.search.Validate(&c)

	sess := session.New(c)

	start := time.Now()
	res, err := s.search.Execute(r.Context(), sess)
	metrics.SearchRequestDuration.WithLabelValues(strat.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]resultItemDTO, res.Count())
	for i, item := range res.Items() {
		items[i] = itemToDTO(item)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		SessionID: sess.ID(),
		Strategy:  res.Strategy().String(),
		Items:     items,
		Total:     res.TotalResults(),
		Skip:      res.Skip(),
		Take:      res.Take(),
		Warnings:  validation.Warnings,
	})
}

// AnalyzeQuery handles POST /api/v1/search/analyze.
func (s *Server) AnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	a := s.search.AnalyzeQuery(req.Query)
	writeJSON(w, http.StatusOK, map[string]any{
		"optimized_query":      a.OptimizedQuery,
		"keywords":             a.Keywords,
		"excluded_terms":       a.ExcludedTerms,
		"required_terms":       a.RequiredTerms,
		"field_specifiers":     a.FieldSpecifiers,
		"has_advanced_syntax":  a.HasAdvancedSyntax,
		"estimated_complexity": a.EstimatedComplexity,
	})
}

// Suggest handles GET /api/v1/search/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "prefix is required")
		return
	}

	maxResults := defaultSuggestMax
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "max must be a positive integer")
			return
		}
		maxResults = n
	}

	terms, err := s.search.Suggestions(r.Context(), prefix, maxResults)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": terms})
}

// Statistics handles GET /api/v1/search/stats.
func (s *Server) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.search.Statistics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_documents":  stats.TotalDocuments,
		"total_terms":      stats.TotalTerms,
		"index_size_bytes": stats.IndexSizeBytes,
	})
}

func filterFromDTO(dto *filterDTO) (filter.Filter, error) {
	if dto == nil {
		return filter.Empty(), nil
	}
	return filter.New(
		dto.ConversationID, dto.AuthorID,
		dto.StartDate, dto.EndDate,
		dto.HasReply,
		dto.IncludedFileTypes, dto.ExcludedFileTypes,
		dto.RequiredTags, dto.ExcludedTags,
	)
}

func itemToDTO(item result.Item) resultItemDTO {
	return resultItemDTO{
		ID:              item.ID(),
		ConversationID:  item.ConversationID(),
		AuthorID:        item.AuthorID(),
		ReplyToID:       item.ReplyToID(),
		Content:         item.Content(),
		Timestamp:       item.Timestamp(),
		Score:           item.Score(),
		Highlights:      item.Highlights(),
		AttachmentTypes: item.AttachmentTypes(),
	}
}
