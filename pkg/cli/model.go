package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/coxrisk/pkg/config"
	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/urfave/cli/v3"
)

const (
	flagPath  = "path"
	flagForce = "force"
)

// ModelOutput is what model show prints.
type ModelOutput struct {
	Source string      `json:"source" yaml:"source"`
	Model  score.Model `json:"model" yaml:"model"`
	Bounds form.Bounds `json:"bounds" yaml:"bounds"`
}

func (a *app) modelCmd() *cli.Command {
	return &cli.Command{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Inspect the scoring model",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the coefficients, cohort baseline and risk thresholds in use",
				Action: a.cmdModelShow,
			},
			{
				Name:   "init",
				Usage:  "Write a config file holding the default model and settings",
				Action: a.cmdModelInit,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagPath,
						Usage: fmt.Sprintf("Config file path (optional, defaults to $HOME/%s/%s)", homeDir, config.FileName),
					},
					&cli.BoolFlag{
						Name:  flagForce,
						Usage: "Overwrite an existing file",
					},
				},
			},
		},
	}
}

func (a *app) cmdModelShow(_ context.Context, _ *cli.Command) error {
	src := a.configPath
	if src == "" {
		src = "default"
	}

	out := &ModelOutput{
		Source: src,
		Model:  a.scorer.Model(),
		Bounds: a.cfg.Bounds,
	}

	if err := a.encode(out); err != nil {
		return fmt.Errorf("error encoding model: %w", err)
	}
	return nil
}

func (a *app) cmdModelInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String(flagPath)
	if path == "" {
		path = defaultConfigInitPath()
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool(flagForce) {
		return fmt.Errorf("config file already exists: %s (use --%s to overwrite)", path, flagForce)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %s: %w", path, err)
	}

	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	slog.Info("config written", "path", path)
	return nil
}
