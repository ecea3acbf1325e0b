package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-3

func TestComputeZeroRecord(t *testing.T) {
	s := NewScorer(DefaultModel())
	res := s.Compute(PatientRecord{})

	assert.Equal(t, 0.0, res.LinearPredictor)
	assert.InDelta(t, math.Exp(1.35), res.HazardRatio, 1e-12)
	assert.InDelta(t, 3.857, res.HazardRatio, tolerance)
	assert.Equal(t, CategoryHigh, res.Category)
	assert.Equal(t, SeverityAdverse, res.Severity)
}

func TestComputeScenarios(t *testing.T) {
	tests := []struct {
		name     string
		input    PatientInput
		lp       float64
		hr       float64
		category Category
	}{
		{
			name:     "age and albumin only",
			input:    PatientInput{Age: 60, SerumAlbumin: 35, Coverage: CoverageNone},
			lp:       -0.1835,
			hr:       3.211,
			category: CategoryHigh,
		},
		{
			name: "crises fistula amo",
			input: PatientInput{
				Age:              60,
				SerumAlbumin:     35,
				ConvulsiveCrises: true,
				AVFistulaCreated: true,
				Coverage:         CoverageAMO,
			},
			lp:       -0.8323,
			hr:       1.678,
			category: CategoryHigh,
		},
		{
			name: "fistula diuresis cnops",
			input: PatientInput{
				Age:              40,
				SerumAlbumin:     45,
				AVFistulaCreated: true,
				ResidualDiuresis: true,
				Coverage:         CoverageCNOPS,
			},
			// 0.944 - 2.0565 - 1.0225 - 0.5294 - 1.3382
			lp:       -4.0026,
			hr:       math.Exp(-4.0026 + 1.35),
			category: CategoryLow,
		},
		{
			name: "older with fistula",
			input: PatientInput{
				Age:              70,
				SerumAlbumin:     35,
				AVFistulaCreated: true,
			},
			// 1.652 - 1.5995 - 1.0225
			lp:       -0.97,
			hr:       math.Exp(-0.97 + 1.35),
			category: CategoryMedium,
		},
	}

	s := NewScorer(DefaultModel())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Compute(NewPatientRecord(tt.input))
			assert.InDelta(t, tt.lp, res.LinearPredictor, 1e-9)
			assert.InDelta(t, tt.hr, res.HazardRatio, tolerance)
			assert.Equal(t, tt.category, res.Category)
		})
	}
}

func TestComputeMonotonicity(t *testing.T) {
	s := NewScorer(DefaultModel())

	t.Run("age increases hr", func(t *testing.T) {
		prev := 0.0
		for age := 18.0; age <= 120; age++ {
			hr := s.Compute(PatientRecord{Age: age, SerumAlbumin: 35}).HazardRatio
			assert.Greater(t, hr, prev, "age %v", age)
			prev = hr
		}
	})

	t.Run("albumin decreases hr", func(t *testing.T) {
		prev := math.Inf(1)
		for alb := 10.0; alb <= 60; alb += 0.5 {
			hr := s.Compute(PatientRecord{Age: 60, SerumAlbumin: alb}).HazardRatio
			assert.Less(t, hr, prev, "albumin %v", alb)
			prev = hr
		}
	})
}

func TestComputeIdempotent(t *testing.T) {
	s := NewScorer(DefaultModel())
	r := NewPatientRecord(PatientInput{
		Age:              73.5,
		SerumAlbumin:     28.1,
		ResidualDiuresis: true,
		Coverage:         CoverageRAMED,
	})

	a := s.Compute(r)
	b := s.Compute(r)
	assert.Equal(t, a, b)
	assert.Equal(t, math.Float64bits(a.HazardRatio), math.Float64bits(b.HazardRatio))
	assert.Equal(t, math.Float64bits(a.LinearPredictor), math.Float64bits(b.LinearPredictor))
}

func TestComputeSumsMultipleCoverageFlags(t *testing.T) {
	m := DefaultModel()
	s := NewScorer(m)

	res := s.Compute(PatientRecord{CoverageRAMED: 1, CoverageAMO: 1})
	want := m.Coefficients.CoverageRAMED + m.Coefficients.CoverageAMO
	assert.InDelta(t, want, res.LinearPredictor, 1e-12)
	assert.InDelta(t, math.Exp(want-m.LPMean), res.HazardRatio, 1e-12)
}

func TestComputeExtremeValues(t *testing.T) {
	s := NewScorer(DefaultModel())

	high := s.Compute(PatientRecord{Age: 1000})
	assert.False(t, math.IsInf(high.HazardRatio, 0))
	assert.Greater(t, high.HazardRatio, 1e10)
	assert.Equal(t, CategoryHigh, high.Category)

	low := s.Compute(PatientRecord{Age: -1000})
	assert.Greater(t, low.HazardRatio, 0.0)
	assert.Equal(t, CategoryLow, low.Category)
	assert.Equal(t, SeverityFavorable, low.Severity)
}

func TestScorerKeepsModelCopy(t *testing.T) {
	m := DefaultModel()
	s := NewScorer(m)

	m.LPMean = 0
	m.Coefficients.Age = 100

	assert.Equal(t, DefaultModel(), s.Model())
	assert.InDelta(t, 3.857, s.Compute(PatientRecord{}).HazardRatio, tolerance)
}

func TestClassifyBoundaries(t *testing.T) {
	m := DefaultModel()
	tests := []struct {
		hr       float64
		category Category
		severity Severity
	}{
		{0, CategoryLow, SeverityFavorable},
		{0.5999, CategoryLow, SeverityFavorable},
		{math.Nextafter(0.6, 0), CategoryLow, SeverityFavorable},
		{0.6, CategoryMedium, SeverityNeutral},
		{1.0, CategoryMedium, SeverityNeutral},
		{math.Nextafter(1.5, 0), CategoryMedium, SeverityNeutral},
		{1.5, CategoryHigh, SeverityAdverse},
		{3.857, CategoryHigh, SeverityAdverse},
		{math.Inf(1), CategoryHigh, SeverityAdverse},
	}

	for _, tt := range tests {
		c, sev := m.Classify(tt.hr)
		assert.Equal(t, tt.category, c, "hr %v", tt.hr)
		assert.Equal(t, tt.severity, sev, "hr %v", tt.hr)
	}
}

func TestThresholdsDescribe(t *testing.T) {
	th := DefaultModel().Thresholds
	assert.Equal(t, "HR < 0.60", th.Describe(CategoryLow))
	assert.Equal(t, "0.60 ≤ HR < 1.50", th.Describe(CategoryMedium))
	assert.Equal(t, "HR ≥ 1.50", th.Describe(CategoryHigh))
	assert.Empty(t, th.Describe(Category("other")))
}

func TestModelValidate(t *testing.T) {
	require.NoError(t, DefaultModel().Validate())

	m := DefaultModel()
	m.Coefficients.Age = math.NaN()
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coefficients.age")

	m = DefaultModel()
	m.Thresholds.Low = 2
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be below")

	m = DefaultModel()
	m.Thresholds.Low = 0
	err = m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	m = DefaultModel()
	m.LPMean = math.Inf(-1)
	assert.Error(t, m.Validate())
}
