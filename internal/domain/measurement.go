package domain

import (
	"errors"
	"fmt"
)

// Demographics carries the patient attributes that select and drive the
// reference equations. Immutable once constructed from the input record.
type Demographics struct {
	Age       float64   `json:"age" validate:"min=3,max=95"`
	Sex       Sex       `json:"sex" validate:"required"`
	HeightCM  float64   `json:"height_cm" validate:"gt=0"`
	WeightKG  float64   `json:"weight_kg,omitempty"`
	Ethnicity Ethnicity `json:"ethnicity,omitempty"`
}

// MeasuredValue is a single spirometry reading, carried in liters and/or as
// percent of predicted. Either representation may be absent; zero means
// not recorded.
type MeasuredValue struct {
	Liters           float64 `json:"liters,omitempty"`
	PercentPredicted float64 `json:"percent_predicted,omitempty"`
}

// RatioValue is the FEV1/FVC ratio expressed as a percentage (e.g. 72.0).
type RatioValue struct {
	Value float64 `json:"value,omitempty"`
}

// SpirometryMeasurement is one phase's measurement set. Two instances exist
// per record: pre-bronchodilator and, optionally, post-bronchodilator.
type SpirometryMeasurement struct {
	FVC          MeasuredValue `json:"fvc"`
	FEV1         MeasuredValue `json:"fev1"`
	FEV1FVCRatio RatioValue    `json:"fev1_fvc_ratio"`
}

// RatioPercent returns the FEV1/FVC ratio as a percentage, deriving it from
// the liters values when the ratio field itself was not recorded. The second
// return value is false when no ratio can be determined.
func (m *SpirometryMeasurement) RatioPercent() (float64, bool) {
	if m.FEV1FVCRatio.Value > 0 {
		return m.FEV1FVCRatio.Value, true
	}
	if m.FEV1.Liters > 0 && m.FVC.Liters > 0 {
		return m.FEV1.Liters / m.FVC.Liters * 100, true
	}
	return 0, false
}

// PatientRecord is the full input to one interpretation pass: demographics
// plus pre- and optional post-bronchodilator measurements.
type PatientRecord struct {
	FileName     string       `json:"file_name,omitempty"`
	Demographics Demographics `json:"demographics"`
	Results      PFTResults   `json:"pft_results"`
}

// PFTResults groups the two measurement phases of a record.
type PFTResults struct {
	Pre  *SpirometryMeasurement `json:"pre_bronchodilator"`
	Post *SpirometryMeasurement `json:"post_bronchodilator,omitempty"`
}

// Validate ensures the demographics meet the engine's supported domain.
// This is critical for preventing out-of-range inputs from reaching the
// reference equations, which are only defined for ages 3-95.
func (d *Demographics) Validate() error {
	if d.Age < AgeMin || d.Age > AgeMax {
		return fmt.Errorf("demographics validation: %w",
			&DomainRangeError{Field: "age", Value: d.Age, Min: AgeMin, Max: AgeMax})
	}

	if d.HeightCM <= 0 {
		return fmt.Errorf("demographics validation: %w", errors.New("height must be positive"))
	}

	if !d.Sex.IsValid() {
		return fmt.Errorf("demographics validation: %w", ErrInvalidSex)
	}

	if d.Ethnicity != "" && !d.Ethnicity.IsValid() {
		return fmt.Errorf("demographics validation: %w", ErrInvalidEthnicity)
	}

	return nil
}
