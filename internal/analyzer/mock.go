package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mockLabels = []string{"Racing", "Formula 1", "Merchandise", "Apparel", "Sports equipment"}

// MockAnalyzer produces random but plausible results without calling any API.
type MockAnalyzer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	Delay time.Duration
}

// NewMockAnalyzer returns a mock seeded from rng, or from the clock when rng is nil.
func NewMockAnalyzer(rng *rand.Rand) *MockAnalyzer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockAnalyzer{rng: rng}
}

func (m *MockAnalyzer) Analyze(ctx context.Context, img *Image) (*Analysis, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, ErrEmptyImage)
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, ctx.Err())
		}
	}

	m.mu.Lock()
	r := m.rng.Float64()
	labelCount := m.rng.Intn(len(mockLabels)) + 1
	m.mu.Unlock()

	authentic := r > 0.3
	score := clampScore(int(r * 100))

	analysis := &Analysis{
		Score:          score,
		Status:         Classify(score),
		Labels:         append([]string(nil), mockLabels[:labelCount]...),
		LogoDetected:   authentic,
		DominantColors: []string{"rgb(255, 0, 0)", "rgb(0, 0, 0)", "rgb(255, 255, 255)"},
		MatchesPalette: authentic,
	}
	if authentic {
		analysis.Text = []string{"F1", "Official Licensed Product", "2024 Season"}
	} else {
		analysis.Text = []string{"Replica", "Unofficial"}
		analysis.SuspiciousIndicators = []string{"Possible counterfeit detected", "Logo appears modified"}
	}

	return analysis, nil
}

// StaticAnalyzer always returns the same score. Useful for demos and fixtures.
type StaticAnalyzer struct {
	Score  int
	Labels []string
	Logo   bool
	Err    error
}

func (s *StaticAnalyzer) Analyze(ctx context.Context, img *Image) (*Analysis, error) {
	if s.Err != nil {
		if errors.Is(s.Err, ErrAnalysisFailed) {
			return nil, s.Err
		}
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, s.Err)
	}
	score := clampScore(s.Score)
	return &Analysis{
		Score:        score,
		Status:       Classify(score),
		Labels:       append([]string(nil), s.Labels...),
		LogoDetected: s.Logo,
	}, nil
}
