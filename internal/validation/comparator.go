// Package validation compares engine interpretations against free-text
// expert impressions to measure classification accuracy.
package validation

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pft-interpreter-server/internal/domain"
	"github.com/pft-interpreter-server/internal/service"
)

// ExpertImpression is the pattern and severity recovered from a free-text
// expert impression. Either may be absent when the text names neither.
type ExpertImpression struct {
	Pattern     domain.Pattern
	Severity    domain.Severity
	HasPattern  bool
	HasSeverity bool
}

// ParseImpression recovers pattern and severity keywords from a free-text
// expert impression. Matching is ordered by specificity: "moderately
// severe" must win over both "moderate" and "severe", and "mixed" over the
// component patterns it implies.
func ParseImpression(text string) ExpertImpression {
	lower := strings.ToLower(text)
	parsed := ExpertImpression{}

	switch {
	case strings.Contains(lower, "mixed"):
		parsed.Pattern, parsed.HasPattern = domain.PatternMixed, true
	case strings.Contains(lower, "obstructive"):
		parsed.Pattern, parsed.HasPattern = domain.PatternObstructive, true
	case strings.Contains(lower, "restrictive"):
		parsed.Pattern, parsed.HasPattern = domain.PatternRestrictive, true
	case strings.Contains(lower, "normal"), strings.Contains(lower, "unremarkable"):
		parsed.Pattern, parsed.HasPattern = domain.PatternNormal, true
	}

	switch {
	case strings.Contains(lower, "moderately severe"):
		parsed.Severity, parsed.HasSeverity = domain.SeverityModeratelySevere, true
	case strings.Contains(lower, "severe"):
		parsed.Severity, parsed.HasSeverity = domain.SeveritySevere, true
	case strings.Contains(lower, "moderate"):
		parsed.Severity, parsed.HasSeverity = domain.SeverityModerate, true
	case strings.Contains(lower, "mild"):
		parsed.Severity, parsed.HasSeverity = domain.SeverityMild, true
	case parsed.HasPattern && parsed.Pattern == domain.PatternNormal:
		parsed.Severity, parsed.HasSeverity = domain.SeverityNone, true
	}

	return parsed
}

// LabeledRecord couples a patient record with its expert impression text.
type LabeledRecord struct {
	domain.PatientRecord
	Impression string `json:"impression"`
}

// Mismatch describes one disagreement between engine and expert.
type Mismatch struct {
	Record     string `json:"record"`
	System     string `json:"system"`
	Expert     string `json:"expert"`
	ExpertText string `json:"expert_text"`
}

// Accuracy is the outcome of validating a labeled dataset.
type Accuracy struct {
	Total            int        `json:"total"`
	Labeled          int        `json:"labeled"`
	PatternCorrect   int        `json:"pattern_correct"`
	SeverityCorrect  int        `json:"severity_correct"`
	BothCorrect      int        `json:"both_correct"`
	ProcessingErrors int        `json:"processing_errors"`
	Mismatches       []Mismatch `json:"mismatches"`
}

// PatternAccuracy returns the fraction of labeled records with a matching
// pattern, in [0, 1].
func (a *Accuracy) PatternAccuracy() float64 { return ratio(a.PatternCorrect, a.Labeled) }

// SeverityAccuracy returns the fraction of labeled records with a matching
// severity grade.
func (a *Accuracy) SeverityAccuracy() float64 { return ratio(a.SeverityCorrect, a.Labeled) }

// OverallAccuracy returns the fraction of labeled records matching on both
// pattern and severity.
func (a *Accuracy) OverallAccuracy() float64 { return ratio(a.BothCorrect, a.Labeled) }

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Comparator validates engine output against expert-labeled records.
type Comparator struct {
	logger      *logrus.Logger
	interpreter *service.Interpreter
}

// NewComparator creates an accuracy comparator.
func NewComparator(logger *logrus.Logger, interpreter *service.Interpreter) *Comparator {
	return &Comparator{logger: logger, interpreter: interpreter}
}

// Validate interprets every labeled record and scores agreement with the
// parsed expert impression. Records without impressions or that fail to
// interpret are counted and skipped, never aborting the run.
func (c *Comparator) Validate(records []*LabeledRecord) *Accuracy {
	acc := &Accuracy{Total: len(records)}

	for idx, labeled := range records {
		identifier := labeled.FileName
		if identifier == "" {
			identifier = fmt.Sprintf("Record #%d", idx+1)
		}

		if labeled.Impression == "" {
			continue
		}

		result, err := c.interpreter.Interpret(&labeled.PatientRecord)
		if err != nil {
			acc.ProcessingErrors++
			c.logger.WithError(err).WithField("record", identifier).Error("Failed to interpret labeled record")
			continue
		}

		expert := ParseImpression(labeled.Impression)
		acc.Labeled++

		patternMatch := expert.HasPattern && result.Pattern == expert.Pattern
		severityMatch := expert.HasSeverity && result.Severity == expert.Severity

		if patternMatch {
			acc.PatternCorrect++
		}
		if severityMatch {
			acc.SeverityCorrect++
		}
		if patternMatch && severityMatch {
			acc.BothCorrect++
			continue
		}

		acc.Mismatches = append(acc.Mismatches, Mismatch{
			Record:     identifier,
			System:     fmt.Sprintf("Pattern: %s, Severity: %s", result.Pattern, result.Severity),
			Expert:     expertLabel(expert),
			ExpertText: labeled.Impression,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"total":            acc.Total,
		"labeled":          acc.Labeled,
		"pattern_correct":  acc.PatternCorrect,
		"severity_correct": acc.SeverityCorrect,
		"both_correct":     acc.BothCorrect,
	}).Info("Completed accuracy validation")

	return acc
}

func expertLabel(e ExpertImpression) string {
	pattern, severity := "N/A", "N/A"
	if e.HasPattern {
		pattern = e.Pattern.String()
	}
	if e.HasSeverity {
		severity = e.Severity.String()
	}
	return fmt.Sprintf("Pattern: %s, Severity: %s", pattern, severity)
}
