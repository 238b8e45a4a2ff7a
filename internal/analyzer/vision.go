package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/apexchain/apex-backend/internal/config"
)

var (
	f1LabelKeywords = []string{"racing", "formula", "motorsport", "car", "automotive", "sport", "merchandise", "apparel", "clothing"}
	authenticTexts  = []string{"f1", "formula 1", "fia", "official", "licensed", "authentic"}
	suspiciousTexts = []string{"replica", "copy", "fake", "unofficial"}
)

// VisionAnalyzer scores images with Google Cloud Vision.
type VisionAnalyzer struct {
	service *vision.Service
}

// NewVisionAnalyzer builds the Vision client. Extra options override the API key
// and endpoint, which tests use to point the client at a stub server.
func NewVisionAnalyzer(ctx context.Context, cfg config.VisionConfig, opts ...option.ClientOption) (*VisionAnalyzer, error) {
	clientOpts := []option.ClientOption{}
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := vision.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	return &VisionAnalyzer{service: svc}, nil
}

func (v *VisionAnalyzer) Analyze(ctx context.Context, img *Image) (*Analysis, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, ErrEmptyImage)
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{Content: img.Base64()},
				Features: []*vision.Feature{
					{Type: "LABEL_DETECTION", MaxResults: 10},
					{Type: "TEXT_DETECTION", MaxResults: 10},
					{Type: "LOGO_DETECTION", MaxResults: 5},
					{Type: "IMAGE_PROPERTIES", MaxResults: 5},
					{Type: "SAFE_SEARCH_DETECTION"},
					{Type: "OBJECT_LOCALIZATION", MaxResults: 10},
				},
			},
		},
	}

	resp, err := v.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrAnalysisFailed)
	}

	annotation := resp.Responses[0]
	if annotation.Error != nil && annotation.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, annotation.Error.Message)
	}

	return scoreAnnotation(annotation), nil
}

// scoreAnnotation turns raw annotations into an Analysis. The score is the sum of
// label (<=30), text (25), logo (20 or 10), palette (15 or 5) and quality (5-10) factors.
func scoreAnnotation(a *vision.AnnotateImageResponse) *Analysis {
	result := &Analysis{}
	var labelScore, textScore, logoScore, colorScore, qualityScore float64

	if len(a.LabelAnnotations) > 0 {
		matched := 0
		for _, label := range a.LabelAnnotations {
			result.Labels = append(result.Labels, label.Description)
			if containsAny(label.Description, f1LabelKeywords) {
				matched++
			}
		}
		labelScore = math.Min(float64(matched)/3*30, 30)
	}

	// The first text annotation is the full block; the rest are individual words.
	if len(a.TextAnnotations) > 1 {
		end := len(a.TextAnnotations)
		if end > 10 {
			end = 10
		}
		for _, text := range a.TextAnnotations[1:end] {
			result.Text = append(result.Text, text.Description)
		}

		hasAuthentic, hasSuspicious := false, false
		for _, text := range result.Text {
			hasAuthentic = hasAuthentic || containsAny(text, authenticTexts)
			hasSuspicious = hasSuspicious || containsAny(text, suspiciousTexts)
		}
		if hasAuthentic {
			textScore = 25
		}
		if hasSuspicious {
			textScore = 0
			result.SuspiciousIndicators = append(result.SuspiciousIndicators, "Suspicious text detected")
		}
	}

	if len(a.LogoAnnotations) > 0 {
		result.LogoDetected = true
		logoScore = 10
		for _, logo := range a.LogoAnnotations {
			if containsAny(logo.Description, []string{"f1", "formula"}) {
				logoScore = 20
				break
			}
		}
	}

	if a.ImagePropertiesAnnotation != nil && a.ImagePropertiesAnnotation.DominantColors != nil {
		colors := a.ImagePropertiesAnnotation.DominantColors.Colors
		for i, info := range colors {
			if info.Color == nil {
				continue
			}
			r, g, b := info.Color.Red, info.Color.Green, info.Color.Blue
			if i < 3 {
				result.DominantColors = append(result.DominantColors,
					fmt.Sprintf("rgb(%d, %d, %d)", int(math.Round(r)), int(math.Round(g)), int(math.Round(b))))
			}
			if isPaletteColor(r, g, b) {
				result.MatchesPalette = true
			}
		}
		colorScore = 5
		if result.MatchesPalette {
			colorScore = 15
		}
	}

	qualityScore = 5
	if len(a.LabelAnnotations) > 0 {
		var sum float64
		for _, label := range a.LabelAnnotations {
			sum += label.Score
		}
		avg := sum / float64(len(a.LabelAnnotations))
		switch {
		case avg < 0.7:
			result.SuspiciousIndicators = append(result.SuspiciousIndicators, "Image quality is poor")
		case avg < 0.85:
			qualityScore = 7
		default:
			qualityScore = 10
		}
	}

	result.Score = clampScore(int(math.Round(labelScore + textScore + logoScore + colorScore + qualityScore)))
	result.Status = Classify(result.Score)
	if result.Score < 50 {
		result.SuspiciousIndicators = append(result.SuspiciousIndicators, "Low authenticity score - verification recommended")
	}

	return result
}

// isPaletteColor matches red, black and white/silver.
func isPaletteColor(r, g, b float64) bool {
	switch {
	case r > 150 && g < 100 && b < 100:
		return true
	case r < 50 && g < 50 && b < 50:
		return true
	case r > 200 && g > 200 && b > 200:
		return true
	}
	return false
}

func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
