package service

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pft-interpreter-server/internal/domain"
)

// recordAtFraction builds a pre-only record whose measured volumes are a
// fixed fraction of the model's own predictions, so tests can target an
// exact Z-score region without hand-picked liters.
func recordAtFraction(t *testing.T, model *ReferenceEquationModel, sex domain.Sex, age, heightCM, fev1Frac, fvcFrac float64) *domain.PatientRecord {
	t.Helper()

	fev1Pred, err := model.Predict(domain.FEV1, sex, age, heightCM)
	require.NoError(t, err)
	fvcPred, err := model.Predict(domain.FVC, sex, age, heightCM)
	require.NoError(t, err)

	return &domain.PatientRecord{
		Demographics: domain.Demographics{
			Age:      age,
			Sex:      sex,
			HeightCM: heightCM,
		},
		Results: domain.PFTResults{
			Pre: &domain.SpirometryMeasurement{
				FEV1: domain.MeasuredValue{Liters: fev1Frac * fev1Pred.Value},
				FVC:  domain.MeasuredValue{Liters: fvcFrac * fvcPred.Value},
			},
		},
	}
}

func testInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	return NewInterpreter(testLogger(), testModel(t))
}

func TestInterpretNormalAtPredicted(t *testing.T) {
	interp := testInterpreter(t)
	record := recordAtFraction(t, interp.Model(), domain.Male, 45, 175, 1.0, 1.0)

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.Equal(t, domain.PatternNormal, result.Pattern)
	assert.Equal(t, domain.SeverityNone, result.Severity)
	assert.Empty(t, result.FieldErrors)
	assert.InDelta(t, 0, result.ZScores[domain.FEV1], 1e-9)
	assert.InDelta(t, 0, result.ZScores[domain.FVC], 1e-9)
	assert.InDelta(t, 0, result.ZScores[domain.FEV1Ratio], 1e-9)
	assert.InDelta(t, 100, result.PercentPredicted[domain.FEV1], 1e-6)
	assert.False(t, result.BronchodilatorResponse.Assessed)
	assert.NotEmpty(t, result.ClinicalImpression)
	assert.NotEmpty(t, result.Recommendations)
}

func TestInterpretObstructive(t *testing.T) {
	interp := testInterpreter(t)

	// Halved FEV1 with preserved FVC collapses the ratio well below the
	// LLN while the FVC Z-score stays at zero.
	record := recordAtFraction(t, interp.Model(), domain.Male, 60, 178, 0.5, 1.0)

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.Equal(t, domain.PatternObstructive, result.Pattern)
	assert.Equal(t, domain.SeverityModerate, result.Severity, "50%% predicted FEV1 grades moderate")
	assert.Less(t, result.ZScores[domain.FEV1Ratio], domain.LLN)
	assert.GreaterOrEqual(t, result.ZScores[domain.FVC], domain.LLN)
	assert.Contains(t, result.ClinicalImpression, "obstructive")
}

func TestInterpretRestrictive(t *testing.T) {
	interp := testInterpreter(t)

	// Proportionally reduced volumes keep the ratio at its predicted
	// value while FVC falls far below the LLN.
	record := recordAtFraction(t, interp.Model(), domain.Female, 55, 162, 0.5, 0.5)

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.Equal(t, domain.PatternRestrictive, result.Pattern)
	assert.Equal(t, domain.SeverityModeratelySevere, result.Severity)
	assert.InDelta(t, 0, result.ZScores[domain.FEV1Ratio], 1e-9)
	assert.Less(t, result.ZScores[domain.FVC], domain.LLN)
	assert.Contains(t, result.ClinicalImpression, "restrictive")
}

func TestInterpretMixed(t *testing.T) {
	interp := testInterpreter(t)

	// FVC at half predicted and FEV1 reduced further still drops both the
	// FVC Z-score and the ratio below their limits.
	record := recordAtFraction(t, interp.Model(), domain.Male, 70, 170, 0.35, 0.5)

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.Equal(t, domain.PatternMixed, result.Pattern)
	assert.Equal(t, domain.SeveritySevere, result.Severity, "35%% predicted FEV1 in mixed disease grades severe")
	assert.Less(t, result.ZScores[domain.FEV1Ratio], domain.LLN)
	assert.Less(t, result.ZScores[domain.FVC], domain.LLN)
}

func TestInterpretIdempotent(t *testing.T) {
	interp := testInterpreter(t)
	record := recordAtFraction(t, interp.Model(), domain.Female, 35, 165, 0.8, 0.9)

	first, err := interp.Interpret(record)
	require.NoError(t, err)
	second, err := interp.Interpret(record)
	require.NoError(t, err)

	// Interpretation carries no timestamps or identifiers; repeating the
	// call on the same record must reproduce the result bit for bit.
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestInterpretBronchodilatorResponse(t *testing.T) {
	interp := testInterpreter(t)
	record := recordAtFraction(t, interp.Model(), domain.Male, 50, 180, 0.6, 1.0)

	pre := record.Results.Pre
	record.Results.Post = &domain.SpirometryMeasurement{
		FEV1: domain.MeasuredValue{Liters: pre.FEV1.Liters * 1.20},
		FVC:  domain.MeasuredValue{Liters: pre.FVC.Liters},
	}

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.True(t, result.BronchodilatorResponse.Assessed)
	assert.True(t, result.BronchodilatorResponse.Significant)
	require.NotNil(t, result.BronchodilatorResponse.FEV1)
	assert.True(t, result.BronchodilatorResponse.FEV1.Responsive)
	assert.Contains(t, result.ClinicalImpression, "reversible")
}

func TestInterpretWithoutPostSkipsReversibility(t *testing.T) {
	interp := testInterpreter(t)
	record := recordAtFraction(t, interp.Model(), domain.Male, 50, 180, 0.6, 1.0)

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.False(t, result.BronchodilatorResponse.Assessed)
	assert.False(t, result.BronchodilatorResponse.Significant)
	assert.Nil(t, result.BronchodilatorResponse.FEV1)
}

func TestInterpretPartialFailureIsolation(t *testing.T) {
	interp := testInterpreter(t)
	record := recordAtFraction(t, interp.Model(), domain.Female, 40, 160, 1.0, 1.0)

	// Drop the FEV1 measurement. The FVC side must still compute while
	// the FEV1 and ratio fields carry failure markers.
	record.Results.Pre.FEV1 = domain.MeasuredValue{}

	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.NotEmpty(t, result.FieldErrors)
	assert.True(t, result.HasZScore(domain.FVC))
	assert.False(t, result.HasZScore(domain.FEV1))
	assert.False(t, result.HasZScore(domain.FEV1Ratio))

	// No default value is substituted for the failed fields.
	_, hasFEV1 := result.ZScores[domain.FEV1]
	assert.False(t, hasFEV1)
	assert.Contains(t, result.FailedFields(), "fev1_z")
	assert.Contains(t, result.FailedFields(), "pattern")
}

func TestInterpretMissingPre(t *testing.T) {
	interp := testInterpreter(t)

	var missing *domain.MissingDataError

	_, err := interp.Interpret(nil)
	assert.ErrorAs(t, err, &missing)

	_, err = interp.Interpret(&domain.PatientRecord{
		Demographics: domain.Demographics{Age: 40, Sex: domain.Male, HeightCM: 175},
	})
	assert.ErrorAs(t, err, &missing)
}

func TestInterpretAgeOutOfRangeIsIsolated(t *testing.T) {
	interp := testInterpreter(t)

	record := &domain.PatientRecord{
		Demographics: domain.Demographics{Age: 101, Sex: domain.Male, HeightCM: 175},
		Results: domain.PFTResults{
			Pre: &domain.SpirometryMeasurement{
				FEV1: domain.MeasuredValue{Liters: 2.1},
				FVC:  domain.MeasuredValue{Liters: 3.0},
			},
		},
	}

	// Both predictions fail, so every derived field is marked rather than
	// the whole record erroring out.
	result, err := interp.Interpret(record)
	require.NoError(t, err)

	assert.Empty(t, result.ZScores)
	assert.Equal(t, domain.Pattern(""), result.Pattern)
	assert.Contains(t, result.FailedFields(), "fev1_z")
	assert.Contains(t, result.FailedFields(), "fvc_z")
	assert.Contains(t, result.FailedFields(), "pattern")
}

func TestConfidenceScoreBounds(t *testing.T) {
	interp := testInterpreter(t)

	// A clean normal record sits at the ceiling.
	clean := recordAtFraction(t, interp.Model(), domain.Male, 45, 175, 1.0, 1.0)
	result, err := interp.Interpret(clean)
	require.NoError(t, err)
	assert.Equal(t, 99, result.ConfidenceScore)

	// A record with multiple failed fields hits the floor, never below.
	broken := &domain.PatientRecord{
		Demographics: domain.Demographics{Age: 120, Sex: domain.Male, HeightCM: 175},
		Results: domain.PFTResults{
			Pre: &domain.SpirometryMeasurement{
				FEV1: domain.MeasuredValue{Liters: 2.0},
				FVC:  domain.MeasuredValue{Liters: 3.0},
			},
		},
	}
	result, err = interp.Interpret(broken)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ConfidenceScore, 50)
	assert.LessOrEqual(t, result.ConfidenceScore, 99)
}
