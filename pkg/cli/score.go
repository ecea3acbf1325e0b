package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	flagAge              = "age"
	flagAlbumin          = "albumin"
	flagConvulsiveCrises = "convulsive-crises"
	flagAVFistula        = "av-fistula"
	flagResidualDiuresis = "residual-diuresis"
	flagCoverage         = "coverage"

	ageFlagDefault     = 60
	albuminFlagDefault = 35
)

// ScoreOutput is what the score command prints.
type ScoreOutput struct {
	Coverage score.Coverage      `json:"coverage" yaml:"coverage"`
	Patient  score.PatientRecord `json:"patient" yaml:"patient"`
	Score    form.View           `json:"score" yaml:"score"`
}

func (a *app) scoreCmd() *cli.Command {
	coverages := make([]string, 0, len(score.Coverages))
	for _, c := range score.Coverages {
		coverages = append(coverages, string(c))
	}

	return &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Compute the hazard ratio and risk category of one patient",
		UsageText: `coxrisk score --age 60 --albumin 35
   coxrisk score --age 60 --albumin 35 --convulsive-crises --av-fistula --coverage amo
   coxrisk --format yaml score --age 72 --albumin 28.5 --residual-diuresis`,
		Action: a.cmdScore,
		Flags: []cli.Flag{
			&cli.FloatFlag{
				Name:  flagAge,
				Usage: "Age in years",
				Value: ageFlagDefault,
			},
			&cli.FloatFlag{
				Name:  flagAlbumin,
				Usage: "Serum albumin in g/L",
				Value: albuminFlagDefault,
			},
			&cli.BoolFlag{
				Name:  flagConvulsiveCrises,
				Usage: "Patient had convulsive crises",
			},
			&cli.BoolFlag{
				Name:  flagAVFistula,
				Usage: "Arteriovenous fistula created",
			},
			&cli.BoolFlag{
				Name:  flagResidualDiuresis,
				Usage: "Residual diuresis present",
			},
			&cli.StringFlag{
				Name:  flagCoverage,
				Usage: fmt.Sprintf("Medical coverage [%s]", strings.Join(coverages, ", ")),
				Value: string(score.CoverageNone),
			},
		},
	}
}

func (a *app) cmdScore(_ context.Context, cmd *cli.Command) error {
	cov, err := score.ParseCoverage(cmd.String(flagCoverage))
	if err != nil {
		return fmt.Errorf("%w: %w", form.ErrInvalidInput, err)
	}

	in := score.PatientInput{
		Age:              cmd.Float(flagAge),
		SerumAlbumin:     cmd.Float(flagAlbumin),
		ConvulsiveCrises: cmd.Bool(flagConvulsiveCrises),
		AVFistulaCreated: cmd.Bool(flagAVFistula),
		ResidualDiuresis: cmd.Bool(flagResidualDiuresis),
		Coverage:         cov,
	}

	if err := form.Validate(in, a.cfg.Bounds); err != nil {
		return fmt.Errorf("invalid patient: %w", err)
	}

	if err := a.encode(a.score(in)); err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	return nil
}

func (a *app) score(in score.PatientInput) *ScoreOutput {
	rec := score.NewPatientRecord(in)
	res := a.scorer.Compute(rec)

	slog.Debug("score computed",
		"lp", res.LinearPredictor,
		"hr", res.HazardRatio,
		"category", res.Category)

	return &ScoreOutput{
		Coverage: in.Coverage,
		Patient:  rec,
		Score:    form.NewView(res, a.scorer.Model().Thresholds),
	}
}
