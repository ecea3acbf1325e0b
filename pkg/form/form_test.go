package form

import (
	"errors"
	"net/url"
	"testing"

	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() Input {
	return Input{
		Age:      "60",
		Albumin:  "35",
		Coverage: "none",
	}
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse(DefaultInput(), DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, score.PatientInput{
		Age:          60,
		SerumAlbumin: 35,
		Coverage:     score.CoverageNone,
	}, p)
}

func TestFromValues(t *testing.T) {
	v := url.Values{}
	v.Set(FieldAge, " 72 ")
	v.Set(FieldAlbumin, "31,5")
	v.Set(FieldConvulsiveCrises, "on")
	v.Set(FieldResidualDiuresis, "on")
	v.Set(FieldCoverage, "amo")

	in := FromValues(v)
	assert.True(t, in.Checked(FieldConvulsiveCrises))
	assert.False(t, in.Checked(FieldAVFistula))
	assert.True(t, in.Checked(FieldResidualDiuresis))
	assert.True(t, in.Selected(score.CoverageAMO))
	assert.False(t, in.Selected(score.CoverageNone))

	p, err := Parse(in, DefaultBounds())
	require.NoError(t, err)
	assert.Equal(t, 72.0, p.Age)
	assert.Equal(t, 31.5, p.SerumAlbumin)
	assert.True(t, p.ConvulsiveCrises)
	assert.False(t, p.AVFistulaCreated)
	assert.True(t, p.ResidualDiuresis)
	assert.Equal(t, score.CoverageAMO, p.Coverage)

	r := score.NewPatientRecord(p)
	assert.Equal(t, 0.0, r.CoverageRAMED)
	assert.Equal(t, 1.0, r.CoverageAMO)
	assert.Equal(t, 0.0, r.CoverageCNOPSFARCNSS)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"age below min", func(in *Input) { in.Age = "17.9" }, FieldAge},
		{"age above max", func(in *Input) { in.Age = "120.1" }, FieldAge},
		{"age not a number", func(in *Input) { in.Age = "abc" }, FieldAge},
		{"age NaN", func(in *Input) { in.Age = "NaN" }, FieldAge},
		{"age Inf", func(in *Input) { in.Age = "+Inf" }, FieldAge},
		{"age missing", func(in *Input) { in.Age = "" }, FieldAge},
		{"albumin below min", func(in *Input) { in.Albumin = "9.9" }, FieldAlbumin},
		{"albumin above max", func(in *Input) { in.Albumin = "60.1" }, FieldAlbumin},
		{"unknown coverage", func(in *Input) { in.Coverage = "x" }, FieldCoverage},
		{"bad checkbox", func(in *Input) { in.AVFistula = "maybe" }, FieldAVFistula},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, err := Parse(in, DefaultBounds())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))

			fe := FieldErrors(err)
			require.Len(t, fe, 1)
			assert.Equal(t, tt.field, fe[0].Field)
		})
	}
}

func TestParseBoundsInclusive(t *testing.T) {
	for _, v := range [][2]string{{"18", "10"}, {"120", "60"}} {
		in := validInput()
		in.Age, in.Albumin = v[0], v[1]
		_, err := Parse(in, DefaultBounds())
		assert.NoError(t, err, "age %s albumin %s", v[0], v[1])
	}
}

func TestParseReportsAllFields(t *testing.T) {
	in := Input{Age: "old", Albumin: "", Coverage: "private"}
	_, err := Parse(in, DefaultBounds())
	require.Error(t, err)

	fields := make([]string, 0)
	for _, fe := range FieldErrors(err) {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{FieldAge, FieldAlbumin, FieldCoverage}, fields)
}

func TestParseReportsRangeWithParseErrors(t *testing.T) {
	_, err := Parse(Input{Age: "12", Albumin: "abc"}, DefaultBounds())
	require.Error(t, err)

	reasons := make(map[string]string)
	for _, fe := range FieldErrors(err) {
		reasons[fe.Field] = fe.Reason
	}
	assert.Equal(t, map[string]string{
		FieldAge:     "must be between 18 and 120",
		FieldAlbumin: "must be a number",
	}, reasons)
}

func TestValidate(t *testing.T) {
	b := DefaultBounds()
	assert.NoError(t, Validate(score.PatientInput{Age: 60, SerumAlbumin: 35, Coverage: score.CoverageCNOPS}, b))

	err := Validate(score.PatientInput{Age: 10, SerumAlbumin: 70, Coverage: "other"}, b)
	require.Error(t, err)
	assert.Len(t, FieldErrors(err), 3)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FieldAge, fe.Field)
	assert.Equal(t, "age: must be between 18 and 120", fe.Error())
}

func TestParseCheckbox(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		ok    bool
	}{
		{"on", true, true},
		{"ON", true, true},
		{"true", true, true},
		{"1", true, true},
		{"yes", true, true},
		{"", false, true},
		{"off", false, true},
		{"0", false, true},
		{"no", false, true},
		{"2", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCheckbox(tt.input)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldErrorsNil(t *testing.T) {
	assert.Nil(t, FieldErrors(nil))
	assert.Nil(t, FieldErrors(errors.New("other")))
}
