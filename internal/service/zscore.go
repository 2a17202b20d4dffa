package service

import (
	"fmt"
	"math"

	"github.com/pft-interpreter-server/internal/domain"
)

// ZScore computes the standardized deviation of a measured value from its
// predicted mean, in units of predicted scatter:
//
//	z = (measured − predicted) / (predicted × cv)
//
// A non-positive predicted value or CV is a computation error, never a
// silently propagated NaN.
func ZScore(measured float64, predicted *domain.PredictedResult) (float64, error) {
	if predicted == nil {
		return 0, &domain.ComputationError{Reason: "nil predicted result"}
	}
	if predicted.Value <= 0 {
		return 0, &domain.ComputationError{
			Parameter: predicted.Parameter,
			Reason:    fmt.Sprintf("non-positive predicted value %g", predicted.Value),
		}
	}
	if predicted.CV <= 0 {
		return 0, &domain.ComputationError{
			Parameter: predicted.Parameter,
			Reason:    fmt.Sprintf("non-positive coefficient of variation %g", predicted.CV),
		}
	}

	z := (measured - predicted.Value) / (predicted.Value * predicted.CV)
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, &domain.ComputationError{
			Parameter: predicted.Parameter,
			Reason:    "z-score is not finite",
		}
	}
	return z, nil
}

// RatioZScore computes the Z-score of the FEV1/FVC ratio. The measured
// ratio arrives as a percentage, the predicted ratio as a fraction; the
// scatter of the ratio is a fixed standard deviation rather than a
// CV-scaled one.
func RatioZScore(measuredRatioPercent, predictedRatio float64) (float64, error) {
	if predictedRatio <= 0 {
		return 0, &domain.ComputationError{
			Parameter: domain.FEV1Ratio,
			Reason:    fmt.Sprintf("non-positive predicted ratio %g", predictedRatio),
		}
	}

	z := (measuredRatioPercent/100 - predictedRatio) / domain.RatioSD
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, &domain.ComputationError{Parameter: domain.FEV1Ratio, Reason: "z-score is not finite"}
	}
	return z, nil
}

// ZToPercentile approximates the standard-normal percentile of a Z-score
// for reporting, clamped to [0.1, 99.9].
func ZToPercentile(z float64) float64 {
	p := 50 * (1 + math.Erf(z/math.Sqrt2))
	return math.Max(0.1, math.Min(99.9, p))
}
