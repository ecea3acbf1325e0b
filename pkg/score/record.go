package score

import (
	"fmt"
	"strings"
)

// Coverage is the patient's medical coverage scheme.
// CoverageNone is the reference category of the model.
type Coverage string

const (
	CoverageNone  Coverage = "none"
	CoverageRAMED Coverage = "ramed"
	CoverageAMO   Coverage = "amo"
	CoverageCNOPS Coverage = "cnops"
)

// Coverages lists every coverage option in display order.
var Coverages = []Coverage{CoverageNone, CoverageRAMED, CoverageAMO, CoverageCNOPS}

// ParseCoverage converts a coverage name into a Coverage.
// An empty string is treated as CoverageNone.
func ParseCoverage(s string) (Coverage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CoverageNone, nil
	case "ramed":
		return CoverageRAMED, nil
	case "amo":
		return CoverageAMO, nil
	case "cnops", "cnops/far/cnss":
		return CoverageCNOPS, nil
	default:
		return "", fmt.Errorf("unknown coverage: %q", s)
	}
}

// Label returns the display name of the coverage.
func (c Coverage) Label() string {
	switch c {
	case CoverageNone:
		return "No coverage"
	case CoverageRAMED:
		return "RAMED"
	case CoverageAMO:
		return "AMO"
	case CoverageCNOPS:
		return "CNOPS/FAR/CNSS"
	default:
		return string(c)
	}
}

// Flags returns the one-hot encoding (ramed, amo, cnops) of the coverage.
func (c Coverage) Flags() (ramed, amo, cnops float64) {
	switch c {
	case CoverageRAMED:
		return 1, 0, 0
	case CoverageAMO:
		return 0, 1, 0
	case CoverageCNOPS:
		return 0, 0, 1
	default:
		return 0, 0, 0
	}
}

// PatientRecord is the feature vector fed to the model.
// Binary features are 0 or 1; at most one coverage flag is set.
type PatientRecord struct {
	ConvulsiveCrises     float64 `json:"convulsive_crises" yaml:"convulsive_crises"`
	AVFistulaCreated     float64 `json:"av_fistula_created" yaml:"av_fistula_created"`
	SerumAlbumin         float64 `json:"serum_albumin" yaml:"serum_albumin"`
	Age                  float64 `json:"age" yaml:"age"`
	ResidualDiuresis     float64 `json:"residual_diuresis" yaml:"residual_diuresis"`
	CoverageRAMED        float64 `json:"coverage_ramed" yaml:"coverage_ramed"`
	CoverageAMO          float64 `json:"coverage_amo" yaml:"coverage_amo"`
	CoverageCNOPSFARCNSS float64 `json:"coverage_cnops_far_cnss" yaml:"coverage_cnops_far_cnss"`
}

// PatientInput is the typed form of a patient as collected from a user.
type PatientInput struct {
	Age              float64
	SerumAlbumin     float64
	ConvulsiveCrises bool
	AVFistulaCreated bool
	ResidualDiuresis bool
	Coverage         Coverage
}

// NewPatientRecord encodes the input into model features.
func NewPatientRecord(in PatientInput) PatientRecord {
	ramed, amo, cnops := in.Coverage.Flags()
	return PatientRecord{
		ConvulsiveCrises:     indicator(in.ConvulsiveCrises),
		AVFistulaCreated:     indicator(in.AVFistulaCreated),
		SerumAlbumin:         in.SerumAlbumin,
		Age:                  in.Age,
		ResidualDiuresis:     indicator(in.ResidualDiuresis),
		CoverageRAMED:        ramed,
		CoverageAMO:          amo,
		CoverageCNOPSFARCNSS: cnops,
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
