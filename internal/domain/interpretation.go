package domain

// PredictedResult is the reference-equation output for one (parameter,
// phase) pair: the predicted mean and the coefficient of variation at the
// patient's age. Derived and ephemeral, computed on demand.
type PredictedResult struct {
	Parameter Parameter `json:"parameter"`
	Value     float64   `json:"predicted_value"`
	CV        float64   `json:"coefficient_of_variation"`
}

// ZScoreResult is the standardized deviation of one measured value from
// its predicted mean, in units of predicted scatter.
type ZScoreResult struct {
	Parameter Parameter `json:"parameter"`
	ZScore    float64   `json:"z_score"`
}

// ParameterDelta is the pre/post bronchodilator change of one parameter.
// Responsive requires percent change > 12 AND absolute change > 0.200 L,
// both strict.
type ParameterDelta struct {
	AbsoluteL  float64 `json:"absolute_l"`
	Percent    float64 `json:"percent"`
	Responsive bool    `json:"responsive"`
}

// BronchodilatorResponse is the reversibility verdict for one record.
// Assessed distinguishes "assessed and not significant" from "not
// assessed" (post-bronchodilator data absent).
type BronchodilatorResponse struct {
	Assessed    bool            `json:"assessed"`
	Significant bool            `json:"significant"`
	FEV1        *ParameterDelta `json:"fev1,omitempty"`
	FVC         *ParameterDelta `json:"fvc,omitempty"`
}

// InterpretationResult is the structured output of one interpretation
// pass. Immutable after construction and owned by the caller; the engine
// holds no reference to it. Maps are keyed by parameter name so report
// layers can serialize them directly.
type InterpretationResult struct {
	Pattern  Pattern  `json:"pattern"`
	Severity Severity `json:"severity,omitempty"`

	// Per-parameter severities graded in isolation: FEV1 on the
	// obstructive table, FVC on the restrictive table.
	FEV1Severity Severity `json:"fev1_severity,omitempty"`
	FVCSeverity  Severity `json:"fvc_severity,omitempty"`

	ZScores          map[Parameter]float64 `json:"z_scores"`
	PercentPredicted map[Parameter]float64 `json:"percent_predicted"`
	Percentiles      map[Parameter]float64 `json:"percentiles"`

	BronchodilatorResponse BronchodilatorResponse `json:"bronchodilator_response"`

	ClinicalImpression string   `json:"clinical_impression"`
	Recommendations    []string `json:"recommendations"`
	ConfidenceScore    int      `json:"confidence_score"`

	// FieldErrors holds the partial-failure markers for fields whose
	// computation failed; the rest of the result remains usable.
	FieldErrors []FieldError `json:"field_errors,omitempty"`
}

// HasZScore reports whether the parameter's Z-score was computed.
func (r *InterpretationResult) HasZScore(p Parameter) bool {
	_, ok := r.ZScores[p]
	return ok
}

// FailedFields returns the names of fields that carry failure markers.
func (r *InterpretationResult) FailedFields() []string {
	if len(r.FieldErrors) == 0 {
		return nil
	}
	fields := make([]string, 0, len(r.FieldErrors))
	for _, fe := range r.FieldErrors {
		fields = append(fields, fe.Field)
	}
	return fields
}
