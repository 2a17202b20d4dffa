package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
)

// Interpreter composes the reference-equation model, the Z-score transform
// and the classifiers into one pass over a single patient record. It is
// stateless across calls; records may be interpreted concurrently.
type Interpreter struct {
	logger *logrus.Logger
	model  *ReferenceEquationModel
}

// NewInterpreter creates the interpretation orchestrator.
func NewInterpreter(logger *logrus.Logger, model *ReferenceEquationModel) *Interpreter {
	return &Interpreter{
		logger: logger,
		model:  model,
	}
}

// Model exposes the underlying reference-equation model for layers that
// report predicted values alongside the interpretation.
func (i *Interpreter) Model() *ReferenceEquationModel {
	return i.model
}

// Interpret runs the full interpretation pass: predicted values and
// Z-scores for the pre-bronchodilator phase, pattern and severity
// classification, and the reversibility verdict when post-bronchodilator
// data is present.
//
// Each field's computation is isolated: a failed prediction becomes a
// FieldError marker on the result while classification proceeds on
// whatever Z-scores succeeded. The engine never substitutes a default
// number for a failed computation.
func (i *Interpreter) Interpret(record *domain.PatientRecord) (*domain.InterpretationResult, error) {
	if record == nil || record.Results.Pre == nil {
		return nil, &domain.MissingDataError{Field: "pre_bronchodilator"}
	}

	demo := record.Demographics
	pre := record.Results.Pre

	i.logger.WithFields(logrus.Fields{
		"age":       demo.Age,
		"sex":       demo.Sex.String(),
		"height_cm": demo.HeightCM,
		"has_post":  record.Results.Post != nil,
	}).Info("Starting spirometry interpretation")

	result := &domain.InterpretationResult{
		ZScores:          make(map[domain.Parameter]float64),
		PercentPredicted: make(map[domain.Parameter]float64),
		Percentiles:      make(map[domain.Parameter]float64),
	}

	// Step 1: predicted values and Z-scores per parameter, pre phase.
	predictions := make(map[domain.Parameter]*domain.PredictedResult)
	for _, param := range []domain.Parameter{domain.FEV1, domain.FVC} {
		measured := pre.FEV1
		if param == domain.FVC {
			measured = pre.FVC
		}

		predicted, err := i.model.Predict(param, demo.Sex, demo.Age, demo.HeightCM)
		if err != nil {
			i.fieldFailure(result, strings.ToLower(param.String())+"_z", err)
			continue
		}
		predictions[param] = predicted

		if pct := percentPredicted(measured, predicted); pct > 0 {
			result.PercentPredicted[param] = pct
		}

		if measured.Liters <= 0 {
			i.fieldFailure(result, strings.ToLower(param.String())+"_z",
				&domain.MissingDataError{Field: strings.ToLower(param.String()) + " liters"})
			continue
		}

		z, err := ZScore(measured.Liters, predicted)
		if err != nil {
			i.fieldFailure(result, strings.ToLower(param.String())+"_z", err)
			continue
		}
		result.ZScores[param] = z
		result.Percentiles[param] = ZToPercentile(z)
	}

	// Step 2: ratio Z-score from the two predictions.
	if fev1Pred, fvcPred := predictions[domain.FEV1], predictions[domain.FVC]; fev1Pred != nil && fvcPred != nil {
		if measuredRatio, ok := pre.RatioPercent(); ok {
			z, err := RatioZScore(measuredRatio, fev1Pred.Value/fvcPred.Value)
			if err != nil {
				i.fieldFailure(result, "fev1_fvc_z", err)
			} else {
				result.ZScores[domain.FEV1Ratio] = z
				result.Percentiles[domain.FEV1Ratio] = ZToPercentile(z)
			}
		} else {
			i.fieldFailure(result, "fev1_fvc_z", &domain.MissingDataError{Field: "fev1_fvc_ratio"})
		}
	}

	// Step 3: pattern from ratio and FVC Z-scores. Without both scores the
	// pattern cannot be assigned and is marked failed rather than defaulted.
	ratioZ, hasRatioZ := result.ZScores[domain.FEV1Ratio]
	fvcZ, hasFVCZ := result.ZScores[domain.FVC]
	if hasRatioZ && hasFVCZ {
		result.Pattern = ClassifyPattern(ratioZ, fvcZ)
	} else {
		i.fieldFailure(result, "pattern", &domain.MissingDataError{Field: "ratio and FVC z-scores"})
	}

	// Step 4: severity from FEV1 percent predicted, pattern-specific table.
	fev1Percent, hasFEV1Percent := result.PercentPredicted[domain.FEV1]
	if result.Pattern.IsAbnormal() {
		if hasFEV1Percent {
			result.Severity = ClassifySeverity(result.Pattern, fev1Percent)
		} else {
			i.fieldFailure(result, "severity", &domain.MissingDataError{Field: "fev1 percent predicted"})
		}
	}

	// Per-parameter isolated severities for the detailed report.
	if hasFEV1Percent {
		result.FEV1Severity = ClassifySeverity(domain.PatternObstructive, fev1Percent)
	}
	if fvcPercent, ok := result.PercentPredicted[domain.FVC]; ok {
		result.FVCSeverity = ClassifySeverity(domain.PatternRestrictive, fvcPercent)
	}

	// Step 5: reversibility, skipped without post-bronchodilator data.
	if record.Results.Post != nil {
		response, err := AssessBronchodilatorResponse(pre, record.Results.Post)
		if err != nil {
			i.fieldFailure(result, "bronchodilator_response", err)
			result.BronchodilatorResponse = domain.BronchodilatorResponse{Assessed: false}
		} else {
			result.BronchodilatorResponse = *response
		}
	} else {
		result.BronchodilatorResponse = domain.BronchodilatorResponse{Assessed: false}
	}

	// Step 6: narrative and confidence.
	result.ClinicalImpression = clinicalImpression(result)
	result.Recommendations = recommendations(result)
	result.ConfidenceScore = confidenceScore(result)

	i.logger.WithFields(logrus.Fields{
		"pattern":        result.Pattern.String(),
		"severity":       result.Severity.String(),
		"significant_bd": result.BronchodilatorResponse.Significant,
		"field_errors":   len(result.FieldErrors),
	}).Info("Completed spirometry interpretation")

	return result, nil
}

// fieldFailure attaches a partial-failure marker and logs it. Processing
// of the rest of the record continues.
func (i *Interpreter) fieldFailure(result *domain.InterpretationResult, field string, err error) {
	i.logger.WithError(err).WithField("field", field).Warn("Field computation failed, continuing with partial result")
	result.FieldErrors = append(result.FieldErrors, domain.NewFieldError(field, err))
}

// percentPredicted prefers the percent recorded on the measurement and
// derives it from the prediction otherwise.
func percentPredicted(measured domain.MeasuredValue, predicted *domain.PredictedResult) float64 {
	if measured.PercentPredicted > 0 {
		return measured.PercentPredicted
	}
	if measured.Liters > 0 && predicted.Value > 0 {
		return measured.Liters / predicted.Value * 100
	}
	return 0
}

// clinicalImpression renders the preliminary narrative for the report.
func clinicalImpression(result *domain.InterpretationResult) string {
	var parts []string

	switch result.Pattern {
	case domain.PatternNormal:
		parts = append(parts, "Pulmonary function testing demonstrates normal spirometric values.")

	case domain.PatternObstructive:
		parts = append(parts, fmt.Sprintf("Spirometry reveals an obstructive ventilatory pattern with %s severity.",
			strings.ToLower(result.Severity.String())))
		if result.BronchodilatorResponse.Assessed {
			if result.BronchodilatorResponse.Significant {
				parts = append(parts, "Significant bronchodilator response suggests reversible airway obstruction, consistent with asthma or an asthmatic component.")
			} else {
				parts = append(parts, "Limited bronchodilator response suggests fixed airway obstruction, more consistent with COPD.")
			}
		}

	case domain.PatternRestrictive:
		parts = append(parts, fmt.Sprintf("Spirometry demonstrates a restrictive pattern with %s severity.",
			strings.ToLower(result.Severity.String())))
		parts = append(parts, "Consider full pulmonary function testing with lung volumes to confirm restriction.")

	case domain.PatternMixed:
		parts = append(parts, fmt.Sprintf("Spirometry shows a mixed ventilatory pattern with %s overall impairment.",
			strings.ToLower(result.Severity.String())))
		parts = append(parts, "Both obstructive and restrictive components are present.")

	default:
		parts = append(parts, "Ventilatory pattern could not be determined from the available measurements.")
	}

	return strings.Join(parts, " ")
}

// recommendations derives follow-up actions from pattern, severity and
// reversibility.
func recommendations(result *domain.InterpretationResult) []string {
	recs := make([]string, 0, 4)

	switch result.Pattern {
	case domain.PatternNormal:
		recs = append(recs,
			"Continue routine health maintenance",
			"Consider repeat testing if symptoms develop")

	case domain.PatternObstructive:
		if result.BronchodilatorResponse.Assessed && result.BronchodilatorResponse.Significant {
			recs = append(recs,
				"Consider bronchodilator therapy trial",
				"Evaluate for asthma management",
				"Consider allergy testing if appropriate")
		} else {
			recs = append(recs,
				"Evaluate for COPD management",
				"Consider smoking cessation counseling if applicable",
				"Pneumococcal and influenza vaccination")
		}
		switch result.Severity {
		case domain.SeverityModerate, domain.SeverityModeratelySevere, domain.SeveritySevere:
			recs = append(recs,
				"Pulmonology referral recommended",
				"Consider arterial blood gas analysis")
		}

	case domain.PatternRestrictive:
		recs = append(recs,
			"Complete PFTs with lung volumes and DLCO",
			"Chest imaging if not recently performed",
			"Consider interstitial lung disease evaluation")
		if result.Severity != domain.SeverityMild {
			recs = append(recs, "Pulmonology referral recommended")
		}

	case domain.PatternMixed:
		recs = append(recs,
			"Complete PFTs with lung volumes and DLCO",
			"Pulmonology referral recommended",
			"Consider CT chest for further evaluation")

	default:
		recs = append(recs, "Repeat testing recommended; interpretation incomplete")
	}

	return recs
}

// confidenceScore estimates how firmly the classification sits away from
// its decision boundaries, clamped to [50, 99].
func confidenceScore(result *domain.InterpretationResult) int {
	score := 100

	if result.Pattern == domain.PatternMixed {
		score -= 20
	}
	switch result.Severity {
	case domain.SeverityMild:
		score -= 25
	case domain.SeverityModerate:
		score -= 10
	}

	// Borderline Z-scores near the LLN reduce confidence once.
	for _, param := range []domain.Parameter{domain.FEV1Ratio, domain.FVC} {
		if z, ok := result.ZScores[param]; ok && math.Abs(z-domain.LLN) < 0.3 {
			score -= 15
			break
		}
	}

	if len(result.FieldErrors) > 0 {
		score -= 10 * len(result.FieldErrors)
	}

	if score < 50 {
		return 50
	}
	if score > 99 {
		return 99
	}
	return score
}
