// Package report renders interpretation results into comprehensive JSON
// reports and plain-text summaries for clinicians. The engine itself never
// serializes its output; this layer owns all formatting.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pft-interpreter-server/internal/domain"
	"github.com/pft-interpreter-server/internal/service"
)

const (
	generatorVersion         = "1.1.0"
	referenceEquations       = "GLI-2012 (engine-internal spline approximation)"
	interpretationGuidelines = "ATS/ERS 2022"
	disclaimer               = "This is a computer-generated preliminary report. Final interpretation should be confirmed by a qualified physician."
)

// Metadata identifies one generated report and its provenance.
type Metadata struct {
	ReportID                string    `json:"report_id"`
	GeneratedAt             time.Time `json:"report_generated"`
	GeneratorVersion        string    `json:"generator_version"`
	ReferenceEquations      string    `json:"reference_equations"`
	Guidelines              string    `json:"interpretation_guidelines"`
	Disclaimer              string    `json:"disclaimer"`
	RequiresPhysicianReview bool      `json:"requires_physician_review"`
}

// DemographicsSection is the formatted patient block.
type DemographicsSection struct {
	Age         string `json:"age"`
	Sex         string `json:"sex"`
	Height      string `json:"height"`
	Weight      string `json:"weight,omitempty"`
	BMI         string `json:"bmi,omitempty"`
	BMICategory string `json:"bmi_category,omitempty"`
}

// ValueRow is one measured value with its predicted context.
type ValueRow struct {
	Measured         string `json:"measured"`
	PercentPredicted string `json:"percent_predicted,omitempty"`
	ZScore           string `json:"z_score,omitempty"`
	Percentile       string `json:"percentile,omitempty"`
}

// PhaseSection is one measurement phase of the test-results table.
type PhaseSection struct {
	FVC   ValueRow `json:"fvc"`
	FEV1  ValueRow `json:"fev1"`
	Ratio string   `json:"fev1_fvc_ratio,omitempty"`
}

// PredictedSection carries the reference-equation outputs.
type PredictedSection struct {
	FEV1Liters float64 `json:"fev1_predicted_l,omitempty"`
	FVCLiters  float64 `json:"fvc_predicted_l,omitempty"`
	Ratio      float64 `json:"fev1_fvc_predicted,omitempty"`
	Population string  `json:"reference_population"`
}

// InterpretationSection summarizes the engine verdicts.
type InterpretationSection struct {
	Pattern                string                         `json:"pattern"`
	Severity               string                         `json:"severity,omitempty"`
	FEV1Severity           string                         `json:"fev1_severity,omitempty"`
	FVCSeverity            string                         `json:"fvc_severity,omitempty"`
	BronchodilatorResponse string                         `json:"bronchodilator_response"`
	ConfidenceScore        int                            `json:"confidence_score"`
	ZScores                map[domain.Parameter]float64   `json:"z_scores"`
	FieldErrors            []domain.FieldError            `json:"field_errors,omitempty"`
	Deltas                 *domain.BronchodilatorResponse `json:"bronchodilator_deltas,omitempty"`
}

// Report is the comprehensive JSON-shaped report for one record.
type Report struct {
	Metadata        Metadata              `json:"report_metadata"`
	Demographics    DemographicsSection   `json:"patient_demographics"`
	PreBD           PhaseSection          `json:"pre_bronchodilator"`
	PostBD          *PhaseSection         `json:"post_bronchodilator,omitempty"`
	Predicted       PredictedSection      `json:"predicted_values"`
	Interpretation  InterpretationSection `json:"interpretation_summary"`
	Impression      string                `json:"clinical_impression"`
	Recommendations []string              `json:"recommendations"`
}

// Generator renders reports from interpretation results. Stateless apart
// from the model used to echo predicted values.
type Generator struct {
	model *service.ReferenceEquationModel
}

// NewGenerator creates a report generator.
func NewGenerator(model *service.ReferenceEquationModel) *Generator {
	return &Generator{model: model}
}

// Generate builds the comprehensive report for one interpreted record.
func (g *Generator) Generate(record *domain.PatientRecord, result *domain.InterpretationResult) *Report {
	rep := &Report{
		Metadata: Metadata{
			ReportID:                uuid.New().String(),
			GeneratedAt:             time.Now().UTC(),
			GeneratorVersion:        generatorVersion,
			ReferenceEquations:      referenceEquations,
			Guidelines:              interpretationGuidelines,
			Disclaimer:              disclaimer,
			RequiresPhysicianReview: true,
		},
		Demographics:    formatDemographics(record.Demographics),
		Impression:      result.ClinicalImpression,
		Recommendations: result.Recommendations,
	}

	rep.Predicted = g.predictedSection(record.Demographics)
	rep.PreBD = phaseSection(record.Results.Pre, result)
	if record.Results.Post != nil {
		post := phaseSection(record.Results.Post, nil)
		rep.PostBD = &post
	}

	rep.Interpretation = InterpretationSection{
		Pattern:                result.Pattern.String(),
		Severity:               result.Severity.String(),
		FEV1Severity:           result.FEV1Severity.String(),
		FVCSeverity:            result.FVCSeverity.String(),
		BronchodilatorResponse: bdVerdict(result.BronchodilatorResponse),
		ConfidenceScore:        result.ConfidenceScore,
		ZScores:                result.ZScores,
		FieldErrors:            result.FieldErrors,
	}
	if result.BronchodilatorResponse.Assessed {
		deltas := result.BronchodilatorResponse
		rep.Interpretation.Deltas = &deltas
	}

	return rep
}

func (g *Generator) predictedSection(demo domain.Demographics) PredictedSection {
	section := PredictedSection{Population: string(g.model.Population())}

	fev1, err1 := g.model.Predict(domain.FEV1, demo.Sex, demo.Age, demo.HeightCM)
	fvc, err2 := g.model.Predict(domain.FVC, demo.Sex, demo.Age, demo.HeightCM)
	if err1 == nil {
		section.FEV1Liters = round2(fev1.Value)
	}
	if err2 == nil {
		section.FVCLiters = round2(fvc.Value)
	}
	if err1 == nil && err2 == nil {
		section.Ratio = round2(fev1.Value / fvc.Value)
	}
	return section
}

func phaseSection(m *domain.SpirometryMeasurement, result *domain.InterpretationResult) PhaseSection {
	section := PhaseSection{
		FVC:  valueRow(m.FVC, domain.FVC, result),
		FEV1: valueRow(m.FEV1, domain.FEV1, result),
	}
	if ratio, ok := m.RatioPercent(); ok {
		section.Ratio = fmt.Sprintf("%.0f%%", ratio)
	}
	return section
}

func valueRow(v domain.MeasuredValue, param domain.Parameter, result *domain.InterpretationResult) ValueRow {
	row := ValueRow{Measured: fmt.Sprintf("%.2f L", v.Liters)}
	if v.PercentPredicted > 0 {
		row.PercentPredicted = fmt.Sprintf("%.0f%%", v.PercentPredicted)
	}
	if result == nil {
		return row
	}
	if pct, ok := result.PercentPredicted[param]; ok && row.PercentPredicted == "" {
		row.PercentPredicted = fmt.Sprintf("%.0f%%", pct)
	}
	if z, ok := result.ZScores[param]; ok {
		row.ZScore = fmt.Sprintf("%.2f", z)
	}
	if p, ok := result.Percentiles[param]; ok {
		row.Percentile = fmt.Sprintf("%.1f", p)
	}
	return row
}

func formatDemographics(demo domain.Demographics) DemographicsSection {
	section := DemographicsSection{
		Age:    fmt.Sprintf("%.0f years", demo.Age),
		Sex:    sexLabel(demo.Sex),
		Height: fmt.Sprintf("%.0f cm (%.1f inches)", demo.HeightCM, demo.HeightCM/2.54),
	}
	if demo.WeightKG > 0 {
		section.Weight = fmt.Sprintf("%.0f kg (%.1f lbs)", demo.WeightKG, demo.WeightKG*2.20462)
		heightM := demo.HeightCM / 100
		bmi := demo.WeightKG / (heightM * heightM)
		section.BMI = fmt.Sprintf("%.1f kg/m2", bmi)
		section.BMICategory = bmiCategory(bmi)
	}
	return section
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25:
		return "Normal weight"
	case bmi < 30:
		return "Overweight"
	default:
		return "Obese"
	}
}

func sexLabel(s domain.Sex) string {
	if s == domain.Male {
		return "Male"
	}
	return "Female"
}

func bdVerdict(r domain.BronchodilatorResponse) string {
	switch {
	case !r.Assessed:
		return "Not assessed"
	case r.Significant:
		return "Significant"
	default:
		return "Not significant"
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
