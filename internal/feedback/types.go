// Package feedback stores physician review feedback on automated
// interpretations. Only the reviewer's verdict and corrections are kept;
// the interpretation result itself is never persisted.
package feedback

import (
	"context"
	"time"

	"github.com/pft-interpreter-server/internal/domain"
)

// Review is one physician's feedback on a generated report.
type Review struct {
	ID       int64  `json:"id"`
	ReportID string `json:"report_id"`
	Reviewer string `json:"reviewer"`

	EnginePattern  domain.Pattern  `json:"engine_pattern"`
	EngineSeverity domain.Severity `json:"engine_severity"`

	ReviewerPattern  domain.Pattern  `json:"reviewer_pattern"`
	ReviewerSeverity domain.Severity `json:"reviewer_severity"`
	ReviewerAgreed   bool            `json:"reviewer_agreed"`

	ExpertImpression string `json:"expert_impression,omitempty"`
	Notes            string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats summarizes reviewer agreement with the engine.
type Stats struct {
	Total           int     `json:"total"`
	Agreed          int     `json:"agreed"`
	AgreementRate   float64 `json:"agreement_rate"`
	PatternMatches  int     `json:"pattern_matches"`
	SeverityMatches int     `json:"severity_matches"`
}

// Store is the persistence interface for review feedback.
type Store interface {
	Save(ctx context.Context, review *Review) error
	Get(ctx context.Context, reportID, reviewer string) (*Review, error)
	ListRecent(ctx context.Context, limit int) ([]*Review, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
