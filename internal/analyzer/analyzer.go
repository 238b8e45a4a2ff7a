// Package analyzer scores product photos for authenticity.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/apexchain/apex-backend/internal/config"
)

// Status is the authenticity determination derived from a score.
type Status string

const (
	StatusAuthentic  Status = "authentic"
	StatusSuspicious Status = "suspicious"
	StatusFake       Status = "fake"
)

const (
	// MintThreshold is the minimum score for a certificate to be minted.
	MintThreshold = 70
	// SuspiciousThreshold separates suspicious from fake.
	SuspiciousThreshold = 40
)

// ErrAnalysisFailed wraps every transport or parse failure of an analyzer.
var ErrAnalysisFailed = errors.New("analysis failed")

// Classify maps a 0-100 score to a Status. All score-based branching goes through here.
func Classify(score int) Status {
	switch {
	case score >= MintThreshold:
		return StatusAuthentic
	case score >= SuspiciousThreshold:
		return StatusSuspicious
	default:
		return StatusFake
	}
}

// PassesMintThreshold reports whether a score qualifies for minting.
func PassesMintThreshold(score int) bool {
	return Classify(score) == StatusAuthentic
}

// Analysis is the derived result of one image analysis.
type Analysis struct {
	Score                int      `json:"authenticity_score"`
	Status               Status   `json:"status"`
	Labels               []string `json:"detected_labels"`
	Text                 []string `json:"detected_text"`
	LogoDetected         bool     `json:"logo_detected"`
	DominantColors       []string `json:"dominant_colors"`
	MatchesPalette       bool     `json:"matches_f1_palette"`
	SuspiciousIndicators []string `json:"suspicious_indicators"`
}

// AuthenticityAnalyzer is implemented by the mock and the Google Vision analyzers.
type AuthenticityAnalyzer interface {
	Analyze(ctx context.Context, img *Image) (*Analysis, error)
}

// New selects the analyzer named by configuration.
func New(ctx context.Context, cfg config.VisionConfig) (AuthenticityAnalyzer, error) {
	switch cfg.Provider {
	case config.VisionProviderGoogle:
		return NewVisionAnalyzer(ctx, cfg)
	case config.VisionProviderMock, "":
		return NewMockAnalyzer(nil), nil
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
