package service

import "github.com/pft-interpreter-server/internal/domain"

// ClassifyPattern assigns the ventilatory pattern from the FEV1/FVC ratio
// and FVC Z-scores. The comparison against the LLN is strictly less-than:
// a Z-score exactly at -1.645 is within normal limits. Clinical edge cases
// sit on this boundary, so the convention must not drift.
func ClassifyPattern(ratioZ, fvcZ float64) domain.Pattern {
	obstructed := ratioZ < domain.LLN
	restricted := fvcZ < domain.LLN

	switch {
	case obstructed && restricted:
		return domain.PatternMixed
	case obstructed:
		return domain.PatternObstructive
	case restricted:
		return domain.PatternRestrictive
	default:
		return domain.PatternNormal
	}
}
