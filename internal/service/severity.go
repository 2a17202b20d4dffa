package service

import "github.com/pft-interpreter-server/internal/domain"

// ClassifySeverity grades an abnormal pattern from FEV1 percent predicted
// using pattern-specific cutoff tables with inclusive lower bounds. A
// normal pattern never receives a grade, and a mixed pattern is never
// graded milder than Moderate regardless of FEV1.
func ClassifySeverity(pattern domain.Pattern, fev1Percent float64) domain.Severity {
	switch pattern {
	case domain.PatternObstructive:
		switch {
		case fev1Percent >= 80:
			return domain.SeverityMild
		case fev1Percent >= 50:
			return domain.SeverityModerate
		case fev1Percent >= 30:
			return domain.SeverityModeratelySevere
		default:
			return domain.SeveritySevere
		}

	case domain.PatternRestrictive:
		switch {
		case fev1Percent >= 70:
			return domain.SeverityMild
		case fev1Percent >= 60:
			return domain.SeverityModerate
		case fev1Percent >= 50:
			return domain.SeverityModeratelySevere
		default:
			return domain.SeveritySevere
		}

	case domain.PatternMixed:
		switch {
		case fev1Percent >= 60:
			return domain.SeverityModerate
		case fev1Percent >= 40:
			return domain.SeverityModeratelySevere
		default:
			return domain.SeveritySevere
		}

	default:
		return domain.SeverityNone
	}
}
