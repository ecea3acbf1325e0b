// Package score computes the dialysis mortality hazard ratio of a patient
// from a fixed Cox proportional-hazards model.
package score

import (
	"math"
)

// Category is the risk band of a hazard ratio.
type Category string

const (
	CategoryLow    Category = "Low"
	CategoryMedium Category = "Medium"
	CategoryHigh   Category = "High"
)

// Severity is the display tone associated with a Category.
type Severity string

const (
	SeverityFavorable Severity = "favorable"
	SeverityNeutral   Severity = "neutral"
	SeverityAdverse   Severity = "adverse"
)

// Result is the outcome of a single computation.
type Result struct {
	LinearPredictor float64  `json:"linear_predictor" yaml:"linear_predictor"`
	HazardRatio     float64  `json:"hazard_ratio" yaml:"hazard_ratio"`
	Category        Category `json:"category" yaml:"category"`
	Severity        Severity `json:"severity" yaml:"severity"`
}

// Scorer computes results against one Model. It holds no mutable state and
// is safe for concurrent use.
type Scorer struct {
	model Model
}

// NewScorer returns a Scorer bound to a copy of m.
func NewScorer(m Model) *Scorer {
	return &Scorer{model: m}
}

// Model returns the model the scorer was built with.
func (s *Scorer) Model() Model {
	return s.model
}

// Compute returns the hazard ratio of the record relative to the cohort
// mean and its risk band. Input is trusted: coverage flags are summed as
// given and extreme values are not clamped.
func (s *Scorer) Compute(r PatientRecord) Result {
	lp := s.model.LinearPredictor(r)
	hr := math.Exp(lp - s.model.LPMean)
	c, sev := s.model.Classify(hr)

	return Result{
		LinearPredictor: lp,
		HazardRatio:     hr,
		Category:        c,
		Severity:        sev,
	}
}
