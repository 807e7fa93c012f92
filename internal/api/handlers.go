package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
	"github.com/rehab-triage-engine/internal/service"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	})
}

// recommendationRequest is one intake submission.
type recommendationRequest struct {
	Assessment domain.AssessmentRecord `json:"assessment"`
	PostOp     *domain.PostOpRecord    `json:"post_op,omitempty"`
}

// handleRecommendations evaluates one assessment submission. Invalid
// inputs are clamped by the engine rather than rejected; the only failure
// surfaced here is an unreadable catalog.
func (s *Server) handleRecommendations(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err)
		return
	}

	result, err := s.builder.Build(c.Request.Context(), &req.Assessment, req.PostOp)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogUnavailable) {
			s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeCatalogError, "exercise catalog is unavailable", err)
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "recommendation generation failed", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// scoreOutcomeRequest scores one questionnaire administration.
type scoreOutcomeRequest struct {
	QuestionnaireKey string                   `json:"questionnaire_key"`
	Condition        string                   `json:"condition"`
	Context          domain.AssessmentContext `json:"context"`
	Responses        []float64                `json:"responses"`
	CompletedAt      time.Time                `json:"completed_at,omitempty"`
}

// handleScoreOutcome looks up the questionnaire definition, applies its
// scoring formula, and persists the scored assessment.
func (s *Server) handleScoreOutcome(c *gin.Context) {
	var req scoreOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body", err)
		return
	}
	if req.QuestionnaireKey == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "questionnaire_key is required", nil)
		return
	}
	if !req.Context.IsValid() {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "context must be baseline, followup, or final", nil)
		return
	}

	questionnaire, err := s.questionnaires.GetQuestionnaireByKey(c.Request.Context(), req.QuestionnaireKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondError(c, http.StatusNotFound, domain.ErrCodeInvalidInput, "unknown questionnaire key", err)
			return
		}
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeCatalogError, "questionnaire catalog is unavailable", err)
		return
	}

	result, err := service.Score(questionnaire.ScoringType, req.Responses)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeScoringError, "unsupported scoring type", err)
		return
	}

	assessment := &domain.OutcomeAssessment{
		QuestionnaireKey: questionnaire.Key,
		Condition:        req.Condition,
		Context:          req.Context,
		Responses:        req.Responses,
		Score:            result.Score,
		Interpretation:   result.Interpretation,
		CompletedAt:      req.CompletedAt,
	}
	if err := s.store.Save(c.Request.Context(), assessment); err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "saving outcome assessment failed", err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// handleOutcomeSummary compares the baseline and latest assessments for a
// condition. Missing data on either side is not an error; the summary just
// carries nil change fields.
func (s *Server) handleOutcomeSummary(c *gin.Context) {
	condition := c.Query("condition")
	key := c.Query("questionnaire_key")
	if condition == "" || key == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeValidation, "condition and questionnaire_key are required", nil)
		return
	}

	ctx := c.Request.Context()

	questionnaire, err := s.questionnaires.GetQuestionnaireByKey(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeCatalogError, "questionnaire catalog is unavailable", err)
		return
	}

	baseline, err := s.store.GetBaseline(ctx, condition, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "reading baseline failed", err)
		return
	}
	latest, err := s.store.GetLatest(ctx, condition, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "reading latest assessment failed", err)
		return
	}

	painBaseline, err := s.store.GetBaseline(ctx, condition, "nprs")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "reading pain baseline failed", err)
		return
	}
	painLatest, err := s.store.GetLatest(ctx, condition, "nprs")
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "reading latest pain assessment failed", err)
		return
	}

	summary := s.summarizer.Summarize(condition, questionnaire, baseline, latest, painBaseline, painLatest)
	c.JSON(http.StatusOK, summary)
}

// respondError writes a standardized error body carrying the request's
// correlation ID.
func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		s.logger.WithError(err).WithFields(logrus.Fields{
			"status": status,
			"code":   code,
			"path":   c.FullPath(),
		}).Warn(message)
	}
	c.JSON(status, domain.NewEngineError(code, message, details, c.GetString("correlation_id")))
}
