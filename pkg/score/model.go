package score

import (
	"errors"
	"fmt"
	"math"
)

const (
	// LPMeanDefault is the mean linear predictor of the reference cohort.
	LPMeanDefault = -1.35

	lowThresholdDefault  = 0.6
	highThresholdDefault = 1.5
)

// Coefficients holds the Cox model weight of each patient feature.
type Coefficients struct {
	ConvulsiveCrises     float64 `json:"convulsive_crises" yaml:"convulsive_crises"`
	AVFistulaCreated     float64 `json:"av_fistula_created" yaml:"av_fistula_created"`
	SerumAlbumin         float64 `json:"serum_albumin" yaml:"serum_albumin"`
	Age                  float64 `json:"age" yaml:"age"`
	ResidualDiuresis     float64 `json:"residual_diuresis" yaml:"residual_diuresis"`
	CoverageRAMED        float64 `json:"coverage_ramed" yaml:"coverage_ramed"`
	CoverageAMO          float64 `json:"coverage_amo" yaml:"coverage_amo"`
	CoverageCNOPSFARCNSS float64 `json:"coverage_cnops_far_cnss" yaml:"coverage_cnops_far_cnss"`
}

// Thresholds are the hazard ratio cut points between risk bands.
// Bands are lower-inclusive: hr < Low is Low, Low <= hr < High is Medium.
type Thresholds struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Model is the full scoring configuration. It is a plain value: copies
// handed to a Scorer cannot be changed by the caller afterwards.
type Model struct {
	Coefficients Coefficients `json:"coefficients" yaml:"coefficients"`
	LPMean       float64      `json:"lp_mean" yaml:"lp_mean"`
	Thresholds   Thresholds   `json:"thresholds" yaml:"thresholds"`
}

// DefaultModel returns the published dialysis mortality model.
func DefaultModel() Model {
	return Model{
		Coefficients: Coefficients{
			ConvulsiveCrises:     1.1846,
			AVFistulaCreated:     -1.0225,
			SerumAlbumin:         -0.0457,
			Age:                  0.0236,
			ResidualDiuresis:     -0.5294,
			CoverageRAMED:        -0.1119,
			CoverageAMO:          -0.8109,
			CoverageCNOPSFARCNSS: -1.3382,
		},
		LPMean: LPMeanDefault,
		Thresholds: Thresholds{
			Low:  lowThresholdDefault,
			High: highThresholdDefault,
		},
	}
}

// Validate checks a model loaded from outside the binary.
func (m Model) Validate() error {
	c := m.Coefficients
	values := []struct {
		key string
		val float64
	}{
		{"coefficients.convulsive_crises", c.ConvulsiveCrises},
		{"coefficients.av_fistula_created", c.AVFistulaCreated},
		{"coefficients.serum_albumin", c.SerumAlbumin},
		{"coefficients.age", c.Age},
		{"coefficients.residual_diuresis", c.ResidualDiuresis},
		{"coefficients.coverage_ramed", c.CoverageRAMED},
		{"coefficients.coverage_amo", c.CoverageAMO},
		{"coefficients.coverage_cnops_far_cnss", c.CoverageCNOPSFARCNSS},
		{"lp_mean", m.LPMean},
		{"thresholds.low", m.Thresholds.Low},
		{"thresholds.high", m.Thresholds.High},
	}

	var errs []error
	for _, v := range values {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite, got %v", v.key, v.val))
		}
	}

	if m.Thresholds.Low <= 0 {
		errs = append(errs, fmt.Errorf("thresholds.low must be positive, got %v", m.Thresholds.Low))
	}
	if m.Thresholds.Low >= m.Thresholds.High {
		errs = append(errs, fmt.Errorf("thresholds.low (%v) must be below thresholds.high (%v)",
			m.Thresholds.Low, m.Thresholds.High))
	}

	return errors.Join(errs...)
}

// LinearPredictor returns the weighted sum of the record's features.
func (m Model) LinearPredictor(r PatientRecord) float64 {
	c := m.Coefficients
	return c.ConvulsiveCrises*r.ConvulsiveCrises +
		c.AVFistulaCreated*r.AVFistulaCreated +
		c.SerumAlbumin*r.SerumAlbumin +
		c.Age*r.Age +
		c.ResidualDiuresis*r.ResidualDiuresis +
		c.CoverageRAMED*r.CoverageRAMED +
		c.CoverageAMO*r.CoverageAMO +
		c.CoverageCNOPSFARCNSS*r.CoverageCNOPSFARCNSS
}

// Classify maps a hazard ratio onto its risk band.
func (m Model) Classify(hr float64) (Category, Severity) {
	switch {
	case hr < m.Thresholds.Low:
		return CategoryLow, SeverityFavorable
	case hr < m.Thresholds.High:
		return CategoryMedium, SeverityNeutral
	default:
		return CategoryHigh, SeverityAdverse
	}
}

// Describe returns the hazard ratio band of the category, e.g. "HR < 0.60".
func (t Thresholds) Describe(c Category) string {
	switch c {
	case CategoryLow:
		return fmt.Sprintf("HR < %.2f", t.Low)
	case CategoryMedium:
		return fmt.Sprintf("%.2f ≤ HR < %.2f", t.Low, t.High)
	case CategoryHigh:
		return fmt.Sprintf("HR ≥ %.2f", t.High)
	default:
		return ""
	}
}
