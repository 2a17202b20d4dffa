// Package service implements the spirometry interpretation engine: the
// GLI-2012 reference-equation model, the Z-score transform and the
// rule-based pattern, severity and bronchodilator-response classifiers.
package service

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
)

// DefaultPredictionCacheSize bounds the memoized predictions kept across a
// batch. Records for the same patient demographics hit the cache.
const DefaultPredictionCacheSize = 2048

type predictionKey struct {
	Parameter domain.Parameter
	Sex       domain.Sex
	Age       float64
	HeightCM  float64
}

// ReferenceEquationModel computes predicted-normal spirometry values from
// the immutable reference coefficient table. Pure function of its inputs
// and the table; safe for concurrent use.
type ReferenceEquationModel struct {
	logger *logrus.Logger
	table  *domain.ReferenceTable
	cache  *lru.Cache[predictionKey, domain.PredictedResult]
}

// NewReferenceEquationModel creates a model over the given coefficient
// table. cacheSize <= 0 selects the default.
func NewReferenceEquationModel(logger *logrus.Logger, table *domain.ReferenceTable, cacheSize int) (*ReferenceEquationModel, error) {
	if table == nil {
		return nil, fmt.Errorf("reference equation model: nil reference table")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultPredictionCacheSize
	}

	cache, err := lru.New[predictionKey, domain.PredictedResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("reference equation model: %w", err)
	}

	return &ReferenceEquationModel{
		logger: logger,
		table:  table,
		cache:  cache,
	}, nil
}

// Predict returns the predicted mean and coefficient of variation for one
// parameter at the given demographics:
//
//	predicted = exp(intercept + β1·ln(height) + β2·ln(age) + spline(age))
//
// Ages outside [3, 95] are a domain error, never extrapolated silently.
func (m *ReferenceEquationModel) Predict(param domain.Parameter, sex domain.Sex, age, heightCM float64) (*domain.PredictedResult, error) {
	if age < domain.AgeMin || age > domain.AgeMax {
		return nil, &domain.DomainRangeError{Field: "age", Value: age, Min: domain.AgeMin, Max: domain.AgeMax}
	}
	if heightCM <= 0 {
		return nil, &domain.DomainRangeError{Field: "height_cm", Value: heightCM, Min: 0, Max: math.Inf(1)}
	}

	key := predictionKey{Parameter: param, Sex: sex, Age: age, HeightCM: heightCM}
	if cached, ok := m.cache.Get(key); ok {
		result := cached
		return &result, nil
	}

	eq, err := m.table.Lookup(param, sex)
	if err != nil {
		return nil, err
	}

	value := math.Exp(eq.Intercept + eq.LnHeight*math.Log(heightCM) + eq.LnAge*math.Log(age) + eq.SplineAt(age))
	cv := eq.CVAt(age)

	if !(value > 0) || math.IsInf(value, 0) {
		return nil, &domain.ComputationError{Parameter: param, Reason: fmt.Sprintf("non-positive predicted value %g", value)}
	}
	if !(cv > 0) {
		return nil, &domain.ComputationError{Parameter: param, Reason: fmt.Sprintf("non-positive coefficient of variation %g", cv)}
	}

	result := domain.PredictedResult{Parameter: param, Value: value, CV: cv}
	m.cache.Add(key, result)

	m.logger.WithFields(logrus.Fields{
		"parameter": param.String(),
		"sex":       sex.String(),
		"age":       age,
		"height_cm": heightCM,
		"predicted": value,
		"cv":        cv,
	}).Debug("Computed predicted value")

	return &result, nil
}

// PredictRatio derives the predicted FEV1/FVC ratio (as a fraction) from
// the two parameter predictions.
func (m *ReferenceEquationModel) PredictRatio(sex domain.Sex, age, heightCM float64) (float64, error) {
	fev1, err := m.Predict(domain.FEV1, sex, age, heightCM)
	if err != nil {
		return 0, err
	}
	fvc, err := m.Predict(domain.FVC, sex, age, heightCM)
	if err != nil {
		return 0, err
	}
	return fev1.Value / fvc.Value, nil
}

// Population returns the reference population of the underlying table.
func (m *ReferenceEquationModel) Population() domain.Ethnicity {
	return m.table.Population()
}
