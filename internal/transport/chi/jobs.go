package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/msgdex/internal/domain/job"
	"github.com/kailas-cloud/msgdex/internal/domain/segment"
	jobsuc "github.com/kailas-cloud/msgdex/internal/usecase/jobs"
)

type messageDTO struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type segmentationConfigDTO struct {
	MinMessagesPerSegment int     `json:"min_messages_per_segment,omitempty"`
	MaxMessagesPerSegment int     `json:"max_messages_per_segment,omitempty"`
	MaxTimeGapMin         int     `json:"max_time_gap_min,omitempty"`
	MaxSegmentLengthChars int     `json:"max_segment_length_chars,omitempty"`
	TopicThreshold        float64 `json:"topic_similarity_threshold,omitempty"`
}

type createJobRequest struct {
	ConversationID int64                  `json:"conversation_id"`
	Messages       []messageDTO           `json:"messages"`
	Config         *segmentationConfigDTO `json:"config,omitempty"`
	MaxRetries     int                    `json:"max_retries,omitempty"`
}

type jobResultDTO struct {
	Success      bool   `json:"success"`
	Output       string `json:"output,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorKind    string `json:"error_kind,omitempty"`
}

type jobResponse struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Status      string        `json:"status"`
	RetryCount  int           `json:"retry_count"`
	MaxRetries  int           `json:"max_retries"`
	CanRetry    bool          `json:"can_retry"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Result      *jobResultDTO `json:"result,omitempty"`
}

// CreateJob handles POST /api/v1/jobs.
func (s *Server) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	input := jobsuc.SegmentationInput{
		ConversationID: req.ConversationID,
		Messages:       messagesFromDTO(req.Messages),
	}

	id, err := s.jobs.Create(r.Context(), input, configFromDTO(req.Config), req.MaxRetries)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/jobs/"+id)
	writeJSON(w, http.StatusCreated, jobToDTO(j))
}

// GetJob handles GET /api/v1/jobs/{id}.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(j))
}

// RunJob handles POST /api/v1/jobs/{id}/run. The attempt runs
// synchronously; the response carries the job's final state, including
// a recorded failure.
func (s *Server) RunJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	runErr := s.jobs.Run(r.Context(), id)

	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if runErr != nil && j.Status() != job.Failed {
		// The attempt never started (missing job, illegal transition).
		s.handleDomainError(w, runErr)
		return
	}

	writeJSON(w, http.StatusOK, jobToDTO(j))
}

// RetryJob handles POST /api/v1/jobs/{id}/retry.
func (s *Server) RetryJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.jobs.Retry(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(j))
}

// CancelJob handles POST /api/v1/jobs/{id}/cancel.
func (s *Server) CancelJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "reason is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.jobs.Cancel(r.Context(), id, req.Reason); err != nil {
		s.handleDomainError(w, err)
		return
	}

	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(j))
}

func messagesFromDTO(dtos []messageDTO) []segment.Message {
	msgs := make([]segment.Message, len(dtos))
	for i, m := range dtos {
		msgs[i] = segment.Message{
			ID:        m.ID,
			AuthorID:  m.AuthorID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return msgs
}

func configFromDTO(dto *segmentationConfigDTO) jobsuc.SegmentationConfig {
	if dto == nil {
		return jobsuc.SegmentationConfig{}
	}
	return jobsuc.SegmentationConfig{
		MinMessagesPerSegment:    dto.MinMessagesPerSegment,
		MaxMessagesPerSegment:    dto.MaxMessagesPerSegment,
		MaxTimeGap:               time.Duration(dto.MaxTimeGapMin) * time.Minute,
		MaxSegmentLengthChars:    dto.MaxSegmentLengthChars,
		TopicSimilarityThreshold: dto.TopicThreshold,
	}
}

func jobToDTO(j *jobsuc.SegmentationJob) jobResponse {
	resp := jobResponse{
		ID:          j.ID(),
		Kind:        string(j.JobKind()),
		Status:      j.Status().String(),
		RetryCount:  j.RetryCount(),
		MaxRetries:  j.MaxRetries(),
		CanRetry:    j.CanRetry(),
		CreatedAt:   j.CreatedAt(),
		StartedAt:   j.StartedAt(),
		CompletedAt: j.CompletedAt(),
	}
	if res := j.Result(); res != nil {
		resp.Result = &jobResultDTO{
			Success:      res.Success,
			Output:       res.Output,
			ErrorMessage: res.ErrorMessage,
			ErrorKind:    res.ErrorKind,
		}
	}
	return resp
}
