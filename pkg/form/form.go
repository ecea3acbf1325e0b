// Package form converts user-submitted patient data into scorer input and
// scorer output into display values.
package form

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mchmarny/coxrisk/pkg/score"
)

const (
	FieldAge              = "age"
	FieldAlbumin          = "albumin"
	FieldConvulsiveCrises = "convulsive_crises"
	FieldAVFistula        = "av_fistula"
	FieldResidualDiuresis = "residual_diuresis"
	FieldCoverage         = "coverage"

	ageDefault     = "60"
	albuminDefault = "35"
)

// ErrInvalidInput is wrapped by every validation error.
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes why a single field was rejected.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// FieldErrors returns the field errors contained in err.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var list []*FieldError
		for _, e := range joined.Unwrap() {
			list = append(list, FieldErrors(e)...)
		}
		return list
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return []*FieldError{fe}
	}
	return nil
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Bounds are the clinically plausible ranges of the continuous inputs.
type Bounds struct {
	Age     Range `json:"age" yaml:"age"`
	Albumin Range `json:"albumin" yaml:"albumin"`
}

// DefaultBounds returns age 18-120 years and albumin 10-60 g/L.
func DefaultBounds() Bounds {
	return Bounds{
		Age:     Range{Min: 18, Max: 120},
		Albumin: Range{Min: 10, Max: 60},
	}
}

// Input holds the raw form values as submitted.
type Input struct {
	Age              string
	Albumin          string
	ConvulsiveCrises string
	AVFistula        string
	ResidualDiuresis string
	Coverage         string
}

// DefaultInput is the state of an untouched form.
func DefaultInput() Input {
	return Input{
		Age:      ageDefault,
		Albumin:  albuminDefault,
		Coverage: string(score.CoverageNone),
	}
}

// FromValues reads the form fields out of submitted values.
func FromValues(v url.Values) Input {
	return Input{
		Age:              strings.TrimSpace(v.Get(FieldAge)),
		Albumin:          strings.TrimSpace(v.Get(FieldAlbumin)),
		ConvulsiveCrises: v.Get(FieldConvulsiveCrises),
		AVFistula:        v.Get(FieldAVFistula),
		ResidualDiuresis: v.Get(FieldResidualDiuresis),
		Coverage:         v.Get(FieldCoverage),
	}
}

// Checked reports whether the named checkbox is ticked. Used by templates.
func (in Input) Checked(field string) bool {
	var v string
	switch field {
	case FieldConvulsiveCrises:
		v = in.ConvulsiveCrises
	case FieldAVFistula:
		v = in.AVFistula
	case FieldResidualDiuresis:
		v = in.ResidualDiuresis
	}
	b, err := ParseCheckbox(v)
	return err == nil && b
}

// Selected reports whether c is the chosen coverage. Used by templates.
func (in Input) Selected(c score.Coverage) bool {
	got, err := score.ParseCoverage(in.Coverage)
	return err == nil && got == c
}

// Parse validates the raw input and converts it into typed patient data.
// All failing fields are reported together.
func Parse(in Input, b Bounds) (score.PatientInput, error) {
	var p score.PatientInput
	var errs []error

	var err error
	if p.Age, err = parseNumber(FieldAge, in.Age); err == nil {
		err = checkRange(FieldAge, p.Age, b.Age)
	}
	if err != nil {
		errs = append(errs, err)
	}
	if p.SerumAlbumin, err = parseNumber(FieldAlbumin, in.Albumin); err == nil {
		err = checkRange(FieldAlbumin, p.SerumAlbumin, b.Albumin)
	}
	if err != nil {
		errs = append(errs, err)
	}
	if p.ConvulsiveCrises, err = parseCheckboxField(FieldConvulsiveCrises, in.ConvulsiveCrises); err != nil {
		errs = append(errs, err)
	}
	if p.AVFistulaCreated, err = parseCheckboxField(FieldAVFistula, in.AVFistula); err != nil {
		errs = append(errs, err)
	}
	if p.ResidualDiuresis, err = parseCheckboxField(FieldResidualDiuresis, in.ResidualDiuresis); err != nil {
		errs = append(errs, err)
	}
	if p.Coverage, err = score.ParseCoverage(in.Coverage); err != nil {
		errs = append(errs, &FieldError{Field: FieldCoverage, Reason: "must be one of none, ramed, amo, cnops"})
	}

	return p, errors.Join(errs...)
}

// Validate checks typed patient data against the bounds.
func Validate(p score.PatientInput, b Bounds) error {
	var errs []error
	if err := checkRange(FieldAge, p.Age, b.Age); err != nil {
		errs = append(errs, err)
	}
	if err := checkRange(FieldAlbumin, p.SerumAlbumin, b.Albumin); err != nil {
		errs = append(errs, err)
	}
	switch p.Coverage {
	case score.CoverageNone, score.CoverageRAMED, score.CoverageAMO, score.CoverageCNOPS:
	default:
		errs = append(errs, &FieldError{Field: FieldCoverage, Reason: "must be one of none, ramed, amo, cnops"})
	}
	return errors.Join(errs...)
}

// ParseCheckbox interprets an HTML checkbox or boolean flag value.
func ParseCheckbox(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "", "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("not a checkbox value: %q", v)
	}
}

func parseCheckboxField(field, v string) (bool, error) {
	b, err := ParseCheckbox(v)
	if err != nil {
		return false, &FieldError{Field: field, Reason: "must be checked or unchecked"}
	}
	return b, nil
}

func parseNumber(field, v string) (float64, error) {
	if v == "" {
		return 0, &FieldError{Field: field, Reason: "is required"}
	}
	// accepts a decimal comma, e.g. "35,5"
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return 0, &FieldError{Field: field, Reason: "must be a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &FieldError{Field: field, Reason: "must be a finite number"}
	}
	return f, nil
}

func checkRange(field string, v float64, r Range) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &FieldError{Field: field, Reason: "must be a finite number"}
	}
	if !r.contains(v) {
		return &FieldError{Field: field, Reason: fmt.Sprintf("must be between %g and %g", r.Min, r.Max)}
	}
	return nil
}
