package domain

import (
	"fmt"
	"sort"
)

// Supported age domain of the reference equations, in years.
const (
	AgeMin = 3.0
	AgeMax = 95.0
)

// RatioSD is the standard deviation used for FEV1/FVC ratio Z-scores,
// expressed on the ratio fraction (not the percentage).
const RatioSD = 0.07

// CurveNode is one (age, value) knot of a piecewise age curve.
type CurveNode struct {
	Age   float64 `json:"age" mapstructure:"age"`
	Value float64 `json:"value" mapstructure:"value"`
}

// AgeCurve is a continuous piecewise-linear function of age defined by
// sorted knots. Between knots the value is linearly blended, so there is
// no jump at any segment boundary; outside the knot range the end values
// are held constant.
type AgeCurve []CurveNode

// Eval returns the curve value at the given age.
func (c AgeCurve) Eval(age float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if age <= c[0].Age {
		return c[0].Value
	}
	if age >= c[len(c)-1].Age {
		return c[len(c)-1].Value
	}

	i := sort.Search(len(c), func(i int) bool { return c[i].Age >= age }) - 1
	lo, hi := c[i], c[i+1]
	t := (age - lo.Age) / (hi.Age - lo.Age)
	return lo.Value + t*(hi.Value-lo.Value)
}

// ReferenceEquation is the sex- and parameter-specific coefficient set of a
// GLI-2012 style regression:
//
//	predicted = exp(intercept + β1·ln(height) + β2·ln(age) + spline(age))
//
// with height in centimeters and age in years.
//
// Spline is an engine-internal approximation of the published GLI age
// spline: it reproduces the qualitative shape (rising through childhood,
// plateau in mid-adulthood, declining into old age) rather than the exact
// published lookup table. CVBase plus the CV age curve give the
// coefficient of variation of the scatter around the predicted mean.
type ReferenceEquation struct {
	Intercept float64  `json:"intercept" mapstructure:"intercept"`
	LnHeight  float64  `json:"ln_height" mapstructure:"ln_height"`
	LnAge     float64  `json:"ln_age" mapstructure:"ln_age"`
	Spline    AgeCurve `json:"spline" mapstructure:"spline"`
	CVBase    float64  `json:"cv_base" mapstructure:"cv_base"`
	CVAge     AgeCurve `json:"cv_age" mapstructure:"cv_age"`
}

// SplineAt returns the age correction term at the given age.
func (e *ReferenceEquation) SplineAt(age float64) float64 {
	return e.Spline.Eval(age)
}

// CVAt returns the coefficient of variation at the given age.
func (e *ReferenceEquation) CVAt(age float64) float64 {
	return e.CVBase + e.CVAge.Eval(age)
}

// equationKey selects one coefficient set.
type equationKey struct {
	Parameter Parameter
	Sex       Sex
}

// ReferenceTable is the immutable lookup of reference equations for the
// supported population. It is constructed once at process start and passed
// explicitly into the model; there is no write path after construction, so
// it is safe for unlimited concurrent readers.
type ReferenceTable struct {
	population Ethnicity
	equations  map[equationKey]*ReferenceEquation
}

// NewReferenceTable builds a table from explicit coefficient sets. Every
// (parameter, sex) combination with a reference equation must be present.
func NewReferenceTable(population Ethnicity, equations map[Parameter]map[Sex]*ReferenceEquation) (*ReferenceTable, error) {
	if !population.IsValid() {
		return nil, fmt.Errorf("reference table: %w: %q", ErrInvalidEthnicity, population)
	}

	t := &ReferenceTable{
		population: population,
		equations:  make(map[equationKey]*ReferenceEquation),
	}

	for _, param := range []Parameter{FEV1, FVC} {
		for _, sex := range []Sex{Male, Female} {
			eq, ok := equations[param][sex]
			if !ok || eq == nil {
				return nil, fmt.Errorf("reference table: missing equation for %s/%s", param, sex)
			}
			if len(eq.Spline) < 2 {
				return nil, fmt.Errorf("reference table: %s/%s spline needs at least two knots", param, sex)
			}
			cp := *eq
			t.equations[equationKey{param, sex}] = &cp
		}
	}

	return t, nil
}

// Population returns the reference population the table models.
func (t *ReferenceTable) Population() Ethnicity {
	return t.population
}

// Lookup returns the coefficient set for a (parameter, sex) pair.
func (t *ReferenceTable) Lookup(param Parameter, sex Sex) (*ReferenceEquation, error) {
	if !param.HasReferenceEquation() {
		return nil, fmt.Errorf("reference lookup: %w: %q", ErrInvalidParameter, param)
	}
	if !sex.IsValid() {
		return nil, fmt.Errorf("reference lookup: %w: %q", ErrInvalidSex, sex)
	}

	eq, ok := t.equations[equationKey{param, sex}]
	if !ok {
		return nil, fmt.Errorf("reference lookup %s/%s: %w", param, sex, ErrNotFound)
	}
	return eq, nil
}

// defaultSpline is the shared age-correction shape: a rapid rise through
// childhood and adolescence, a plateau across mid-adulthood, then a decline
// into old age.
func defaultSpline() AgeCurve {
	return AgeCurve{
		{Age: 3, Value: -0.090},
		{Age: 10, Value: 0.015},
		{Age: 20, Value: 0.055},
		{Age: 40, Value: 0.050},
		{Age: 60, Value: 0.030},
		{Age: 95, Value: -0.075},
	}
}

// defaultCVAge is the shared age adjustment of the coefficient of
// variation: widest scatter in young children and the elderly, tightest in
// mid-adulthood.
func defaultCVAge() AgeCurve {
	return AgeCurve{
		{Age: 3, Value: 0.050},
		{Age: 10, Value: 0.030},
		{Age: 20, Value: 0.010},
		{Age: 40, Value: 0.000},
		{Age: 60, Value: 0.020},
		{Age: 95, Value: 0.055},
	}
}

// DefaultReferenceTable returns the built-in GLI-2012 coefficient table for
// the single supported reference population.
func DefaultReferenceTable() *ReferenceTable {
	table, err := NewReferenceTable(EthnicityCaucasian, map[Parameter]map[Sex]*ReferenceEquation{
		FEV1: {
			Male: {
				Intercept: -7.9776, LnHeight: 1.8962, LnAge: -0.1847,
				Spline: defaultSpline(), CVBase: 0.12, CVAge: defaultCVAge(),
			},
			Female: {
				Intercept: -7.3447, LnHeight: 1.6982, LnAge: -0.1584,
				Spline: defaultSpline(), CVBase: 0.12, CVAge: defaultCVAge(),
			},
		},
		FVC: {
			Male: {
				Intercept: -8.2996, LnHeight: 2.0042, LnAge: -0.1735,
				Spline: defaultSpline(), CVBase: 0.11, CVAge: defaultCVAge(),
			},
			Female: {
				Intercept: -7.8974, LnHeight: 1.9058, LnAge: -0.1492,
				Spline: defaultSpline(), CVBase: 0.11, CVAge: defaultCVAge(),
			},
		},
	})
	if err != nil {
		// The built-in table is complete by construction.
		panic(fmt.Sprintf("default reference table: %v", err))
	}
	return table
}
