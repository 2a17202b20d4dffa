package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-interpreter-server/internal/domain"
)

func TestZScoreAtEquality(t *testing.T) {
	pred := &domain.PredictedResult{Parameter: domain.FEV1, Value: 3.2, CV: 0.12}

	z, err := ZScore(3.2, pred)
	require.NoError(t, err)
	assert.Zero(t, z, "measured == predicted must give z == 0")
}

func TestZScoreSignAndScale(t *testing.T) {
	pred := &domain.PredictedResult{Parameter: domain.FVC, Value: 4.0, CV: 0.10}

	below, err := ZScore(3.6, pred)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, below, 1e-12, "one CV below predicted is z = -1")

	above, err := ZScore(4.4, pred)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, above, 1e-12)

	// Antisymmetric around the predicted mean.
	assert.InDelta(t, -below, above, 1e-12)
}

func TestZScoreComputationErrors(t *testing.T) {
	_, err := ZScore(3.0, nil)
	var compErr *domain.ComputationError
	assert.ErrorAs(t, err, &compErr)

	_, err = ZScore(3.0, &domain.PredictedResult{Parameter: domain.FEV1, Value: 0, CV: 0.12})
	assert.ErrorAs(t, err, &compErr, "zero predicted value is undefined, never NaN")

	_, err = ZScore(3.0, &domain.PredictedResult{Parameter: domain.FEV1, Value: -2, CV: 0.12})
	assert.ErrorAs(t, err, &compErr)

	_, err = ZScore(3.0, &domain.PredictedResult{Parameter: domain.FEV1, Value: 3.0, CV: 0})
	assert.ErrorAs(t, err, &compErr)
}

func TestRatioZScore(t *testing.T) {
	// Measured ratio equal to predicted gives z = 0.
	z, err := RatioZScore(75, 0.75)
	require.NoError(t, err)
	assert.InDelta(t, 0, z, 1e-12)

	// One SD (0.07) below.
	z, err = RatioZScore(68, 0.75)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, z, 1e-9)

	_, err = RatioZScore(75, 0)
	var compErr *domain.ComputationError
	assert.ErrorAs(t, err, &compErr)
}

func TestZToPercentile(t *testing.T) {
	assert.InDelta(t, 50.0, ZToPercentile(0), 1e-9)
	assert.InDelta(t, 5.0, ZToPercentile(domain.LLN), 0.1, "the LLN is the 5th percentile")
	assert.Equal(t, 0.1, ZToPercentile(-8), "clamped at the floor")
	assert.Equal(t, 99.9, ZToPercentile(8), "clamped at the ceiling")
}
