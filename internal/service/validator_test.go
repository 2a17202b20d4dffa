package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pft-interpreter-server/internal/domain"
)

func validRecord() *domain.PatientRecord {
	return &domain.PatientRecord{
		Demographics: domain.Demographics{
			Age:      52,
			Sex:      domain.Female,
			HeightCM: 164,
		},
		Results: domain.PFTResults{
			Pre: &domain.SpirometryMeasurement{
				FEV1: domain.MeasuredValue{Liters: 2.4},
				FVC:  domain.MeasuredValue{Liters: 3.1},
			},
		},
	}
}

func TestValidateRecordClean(t *testing.T) {
	assert.Empty(t, ValidateRecord(validRecord()))
}

func TestValidateRecordNil(t *testing.T) {
	errs := ValidateRecord(nil)
	assert.Equal(t, []string{"record is empty"}, errs)
}

func TestValidateRecordDemographics(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.PatientRecord)
		wantSub string
	}{
		{"age too young", func(r *domain.PatientRecord) { r.Demographics.Age = 2 }, "age 2 outside valid range"},
		{"age too old", func(r *domain.PatientRecord) { r.Demographics.Age = 101 }, "age 101 outside valid range"},
		{"height too short", func(r *domain.PatientRecord) { r.Demographics.HeightCM = 95 }, "height 95cm outside valid range"},
		{"height too tall", func(r *domain.PatientRecord) { r.Demographics.HeightCM = 230 }, "height 230cm outside valid range"},
		{"invalid sex", func(r *domain.PatientRecord) { r.Demographics.Sex = "X" }, "invalid sex value"},
		{"unsupported population", func(r *domain.PatientRecord) { r.Demographics.Ethnicity = "martian" }, "unsupported reference population"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(record)

			errs := ValidateRecord(record)
			assert.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantSub)
		})
	}
}

func TestValidateRecordBoundsInclusive(t *testing.T) {
	record := validRecord()
	record.Demographics.Age = domain.AgeMin
	record.Demographics.HeightCM = minPlausibleHeightCM
	assert.Empty(t, ValidateRecord(record))

	record.Demographics.Age = domain.AgeMax
	record.Demographics.HeightCM = maxPlausibleHeightCM
	assert.Empty(t, ValidateRecord(record))
}

func TestValidateRecordMissingPre(t *testing.T) {
	record := validRecord()
	record.Results.Pre = nil

	errs := ValidateRecord(record)
	assert.Equal(t, []string{"missing pre-bronchodilator measurements"}, errs)
}

func TestValidateRecordMeasurements(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.PatientRecord)
		wantSub string
	}{
		{"missing FEV1", func(r *domain.PatientRecord) { r.Results.Pre.FEV1.Liters = 0 }, "missing FEV1 measurement"},
		{"missing FVC", func(r *domain.PatientRecord) { r.Results.Pre.FVC.Liters = 0 }, "missing FVC measurement"},
		{"FEV1 above FVC", func(r *domain.PatientRecord) { r.Results.Pre.FEV1.Liters = 3.2 }, "cannot be greater than FVC"},
		{"extremely low", func(r *domain.PatientRecord) {
			r.Results.Pre.FEV1.Liters = 0.1
			r.Results.Pre.FVC.Liters = 0.2
		}, "extremely low lung function values"},
		{"extremely high", func(r *domain.PatientRecord) {
			r.Results.Pre.FEV1.Liters = 9.0
			r.Results.Pre.FVC.Liters = 11.0
		}, "extremely high lung function values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(record)

			errs := ValidateRecord(record)
			assert.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.wantSub)
		})
	}
}

func TestValidateRecordRoundingTolerance(t *testing.T) {
	// Spirometer rounding can report FEV1 a hair above FVC; a 10 mL
	// overshoot passes, anything beyond is rejected.
	record := validRecord()
	record.Results.Pre.FEV1.Liters = 3.105
	record.Results.Pre.FVC.Liters = 3.10
	assert.Empty(t, ValidateRecord(record))

	record.Results.Pre.FEV1.Liters = 3.12
	assert.NotEmpty(t, ValidateRecord(record))
}

func TestValidateRecordPostPhase(t *testing.T) {
	record := validRecord()
	record.Results.Post = &domain.SpirometryMeasurement{
		FEV1: domain.MeasuredValue{Liters: 2.6},
		FVC:  domain.MeasuredValue{Liters: 0},
	}

	errs := ValidateRecord(record)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "post-bronchodilator: missing FVC")
}

func TestValidateRecordCollectsAllProblems(t *testing.T) {
	record := validRecord()
	record.Demographics.Age = 1
	record.Demographics.HeightCM = 90
	record.Results.Pre.FVC.Liters = 0

	errs := ValidateRecord(record)
	assert.Len(t, errs, 3, "validation reports every problem, not just the first")
}
