package service

import (
	"github.com/pft-interpreter-server/internal/domain"
)

// Reversibility thresholds: a parameter responds iff percent change
// exceeds 12% AND absolute change exceeds 0.200 L, both strict. Neither
// condition alone qualifies.
const (
	reversibilityPercent   = 12.0
	reversibilityAbsoluteL = 0.200
)

// AssessBronchodilatorResponse determines whether a clinically significant
// reversible response occurred between the pre- and post-bronchodilator
// measurements. The caller must not invoke it without post data; absent
// post data is reported upstream as "not assessed".
func AssessBronchodilatorResponse(pre, post *domain.SpirometryMeasurement) (*domain.BronchodilatorResponse, error) {
	if pre == nil {
		return nil, &domain.MissingDataError{Field: "pre_bronchodilator"}
	}
	if post == nil {
		return nil, &domain.MissingDataError{Field: "post_bronchodilator"}
	}

	fev1, err := parameterDelta(pre.FEV1.Liters, post.FEV1.Liters, domain.FEV1)
	if err != nil {
		return nil, err
	}
	fvc, err := parameterDelta(pre.FVC.Liters, post.FVC.Liters, domain.FVC)
	if err != nil {
		return nil, err
	}

	return &domain.BronchodilatorResponse{
		Assessed:    true,
		Significant: fev1.Responsive || fvc.Responsive,
		FEV1:        fev1,
		FVC:         fvc,
	}, nil
}

func parameterDelta(pre, post float64, param domain.Parameter) (*domain.ParameterDelta, error) {
	if pre <= 0 {
		return nil, &domain.ComputationError{Parameter: param, Reason: "non-positive pre-bronchodilator value"}
	}

	abs := post - pre
	pct := abs / pre * 100

	return &domain.ParameterDelta{
		AbsoluteL:  abs,
		Percent:    pct,
		Responsive: pct > reversibilityPercent && abs > reversibilityAbsoluteL,
	}, nil
}
