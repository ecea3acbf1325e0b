package form

import (
	"fmt"

	"github.com/mchmarny/coxrisk/pkg/score"
)

// View is a score result prepared for display.
type View struct {
	HazardRatio string         `json:"hazard_ratio" yaml:"hazard_ratio"`
	Category    score.Category `json:"category" yaml:"category"`
	Band        string         `json:"band" yaml:"band"`
	Label       string         `json:"label" yaml:"label"`
	Severity    score.Severity `json:"severity" yaml:"severity"`
	Message     string         `json:"message" yaml:"message"`
	Result      score.Result   `json:"result" yaml:"result"`
}

// FormatHazardRatio renders a hazard ratio as e.g. "3.21x".
func FormatHazardRatio(hr float64) string {
	return fmt.Sprintf("%.2fx", hr)
}

// NewView builds the display values of a result.
func NewView(r score.Result, t score.Thresholds) View {
	hr := FormatHazardRatio(r.HazardRatio)
	band := t.Describe(r.Category)

	return View{
		HazardRatio: hr,
		Category:    r.Category,
		Band:        band,
		Label:       fmt.Sprintf("%s (%s)", r.Category, band),
		Severity:    r.Severity,
		Message:     message(r.Severity, hr),
		Result:      r,
	}
}

func message(s score.Severity, hr string) string {
	switch s {
	case score.SeverityFavorable:
		return "Low risk compared to the average patient."
	case score.SeverityNeutral:
		return "Moderate risk compared to the average patient."
	default:
		return fmt.Sprintf("High risk compared to the average patient. HR = %s.", hr)
	}
}
