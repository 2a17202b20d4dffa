package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
	"github.com/pft-interpreter-server/internal/feedback"
	"github.com/pft-interpreter-server/internal/service"
)

// interpretResponse wraps a generated report for API consumers.
type interpretResponse struct {
	Status string      `json:"status"`
	Report interface{} `json:"report"`
}

// handleInterpret interprets a single patient record submitted as JSON.
func (s *Server) handleInterpret(c *gin.Context) {
	record := &domain.PatientRecord{}
	if err := c.ShouldBindJSON(record); err != nil {
		c.JSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrCodeInvalidInput, "malformed request body", err.Error(), s.requestID(c)))
		return
	}

	s.interpretRecord(c, record)
}

// formRequest mirrors the interactive HTML form's flat field layout.
type formRequest struct {
	Age      float64 `form:"age" binding:"required"`
	Sex      string  `form:"sex" binding:"required"`
	HeightCM float64 `form:"height_cm" binding:"required"`
	WeightKG float64 `form:"weight_kg"`

	PreFVCLiters  float64 `form:"pre_fvc_liters" binding:"required"`
	PreFVCPP      float64 `form:"pre_fvc_pp"`
	PreFEV1Liters float64 `form:"pre_fev1_liters" binding:"required"`
	PreFEV1PP     float64 `form:"pre_fev1_pp"`
	PreRatio      float64 `form:"pre_ratio"`

	PostFVCLiters  float64 `form:"post_fvc_liters"`
	PostFVCPP      float64 `form:"post_fvc_pp"`
	PostFEV1Liters float64 `form:"post_fev1_liters"`
	PostFEV1PP     float64 `form:"post_fev1_pp"`
	PostRatio      float64 `form:"post_ratio"`
}

// handleInterpretForm interprets a record submitted from the HTML form.
func (s *Server) handleInterpretForm(c *gin.Context) {
	var form formRequest
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrCodeInvalidInput, "malformed form submission", err.Error(), s.requestID(c)))
		return
	}

	record := &domain.PatientRecord{
		Demographics: domain.Demographics{
			Age:      form.Age,
			Sex:      domain.Sex(strings.ToUpper(form.Sex)),
			HeightCM: form.HeightCM,
			WeightKG: form.WeightKG,
		},
		Results: domain.PFTResults{
			Pre: &domain.SpirometryMeasurement{
				FVC:          domain.MeasuredValue{Liters: form.PreFVCLiters, PercentPredicted: form.PreFVCPP},
				FEV1:         domain.MeasuredValue{Liters: form.PreFEV1Liters, PercentPredicted: form.PreFEV1PP},
				FEV1FVCRatio: domain.RatioValue{Value: form.PreRatio},
			},
		},
	}

	if form.PostFVCLiters > 0 || form.PostFEV1Liters > 0 {
		record.Results.Post = &domain.SpirometryMeasurement{
			FVC:          domain.MeasuredValue{Liters: form.PostFVCLiters, PercentPredicted: form.PostFVCPP},
			FEV1:         domain.MeasuredValue{Liters: form.PostFEV1Liters, PercentPredicted: form.PostFEV1PP},
			FEV1FVCRatio: domain.RatioValue{Value: form.PostRatio},
		}
	}

	s.interpretRecord(c, record)
}

// interpretRecord runs the shared validate-interpret-report pipeline.
func (s *Server) interpretRecord(c *gin.Context, record *domain.PatientRecord) {
	if problems := service.ValidateRecord(record); len(problems) > 0 {
		c.JSON(http.StatusUnprocessableEntity,
			domain.NewAPIError(domain.ErrCodeInvalidInput, "implausible PFT data", strings.Join(problems, "; "), s.requestID(c)))
		return
	}

	result, err := s.interpreter.Interpret(record)
	if err != nil {
		s.logger.WithError(err).Error("Interpretation failed")
		c.JSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.ErrCodeComputation, "interpretation failed", err.Error(), s.requestID(c)))
		return
	}

	rep := s.generator.Generate(record, result)

	s.logger.WithFields(logrus.Fields{
		"report_id": rep.Metadata.ReportID,
		"pattern":   result.Pattern.String(),
		"severity":  result.Severity.String(),
	}).Info("Interpretation served")

	c.JSON(http.StatusOK, interpretResponse{Status: "success", Report: rep})
}

// saveReviewRequest is the payload for physician review feedback.
type saveReviewRequest struct {
	ReportID         string `json:"report_id" binding:"required"`
	Reviewer         string `json:"reviewer"`
	EnginePattern    string `json:"engine_pattern"`
	EngineSeverity   string `json:"engine_severity"`
	ReviewerPattern  string `json:"reviewer_pattern" binding:"required"`
	ReviewerSeverity string `json:"reviewer_severity"`
	ReviewerAgreed   bool   `json:"reviewer_agreed"`
	ExpertImpression string `json:"expert_impression"`
	Notes            string `json:"notes"`
}

// handleSaveReview stores physician feedback on a generated report.
func (s *Server) handleSaveReview(c *gin.Context) {
	if s.reviews == nil {
		c.JSON(http.StatusServiceUnavailable,
			domain.NewAPIError(domain.ErrCodeStorage, "review store not configured", "", s.requestID(c)))
		return
	}

	var req saveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			domain.NewAPIError(domain.ErrCodeInvalidInput, "malformed request body", err.Error(), s.requestID(c)))
		return
	}

	review := &feedback.Review{
		ReportID:         req.ReportID,
		Reviewer:         req.Reviewer,
		EnginePattern:    domain.Pattern(req.EnginePattern),
		EngineSeverity:   domain.Severity(req.EngineSeverity),
		ReviewerPattern:  domain.Pattern(req.ReviewerPattern),
		ReviewerSeverity: domain.Severity(req.ReviewerSeverity),
		ReviewerAgreed:   req.ReviewerAgreed,
		ExpertImpression: req.ExpertImpression,
		Notes:            req.Notes,
	}

	if err := s.reviews.Save(c.Request.Context(), review); err != nil {
		s.logger.WithError(err).Error("Failed to save review")
		c.JSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.ErrCodeStorage, "failed to save review", err.Error(), s.requestID(c)))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "review_id": review.ID})
}

// handleReviewStats reports reviewer agreement with the engine.
func (s *Server) handleReviewStats(c *gin.Context) {
	if s.reviews == nil {
		c.JSON(http.StatusServiceUnavailable,
			domain.NewAPIError(domain.ErrCodeStorage, "review store not configured", "", s.requestID(c)))
		return
	}

	stats, err := s.reviews.GetStats(c.Request.Context())
	if err != nil {
		s.logger.WithError(err).Error("Failed to load review stats")
		c.JSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.ErrCodeStorage, "failed to load review stats", err.Error(), s.requestID(c)))
		return
	}

	c.JSON(http.StatusOK, stats)
}
