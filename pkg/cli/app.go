package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/coxrisk/pkg/config"
	"github.com/mchmarny/coxrisk/pkg/logging"
	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName = "coxrisk"
	homeDir = "." + appName

	formatJSON = "json"
	formatYAML = "yaml"

	flagDebug     = "debug"
	flagFormat    = "format"
	flagConfig    = "config"
	flagLogFormat = "log-format"

	configEnvVar = "COXRISK_CONFIG"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefault("info", logging.FormatCLI)

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// app is the state shared by all commands of one run. It is filled in
// once by Before and read-only afterwards.
type app struct {
	out        io.Writer
	format     string
	configPath string
	cfg        *config.Config
	scorer     *score.Scorer
}

func newApp(w io.Writer) *cli.Command {
	a := &app{out: w, format: formatJSON}

	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		Usage:                 "Dialysis mortality risk score (Cox model) as a CLI and a local web form",
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Writer:                w,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&cli.StringFlag{
				Name:  flagFormat,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Usage:   fmt.Sprintf("Path to the config file (optional, defaults to $HOME/%s/%s when present)", homeDir, config.FileName),
				Sources: cli.EnvVars(configEnvVar),
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "Log format [text, json, cli] (optional, overrides config)",
			},
		},
		Commands: []*cli.Command{
			a.scoreCmd(),
			a.modelCmd(),
			a.serverCmd(),
		},
		Before: a.before,
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	f := cmd.String(flagFormat)
	if f == formatYAML || f == "yml" {
		a.format = formatYAML
	}

	path := cmd.String(flagConfig)
	if path == "" {
		path = defaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ctx, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if cmd.Bool(flagDebug) {
		level = "debug"
	}
	logFormat := cfg.Log.Format
	if lf := cmd.String(flagLogFormat); lf != "" {
		logFormat = lf
	}
	logging.SetDefault(level, logFormat)

	slog.Debug("config loaded", "path", path, "log_level", level, "log_format", logFormat)

	a.configPath = path
	a.cfg = cfg
	a.scorer = score.NewScorer(cfg.Model)
	return ctx, nil
}

// defaultConfigPath returns the config file in the home dir, or empty
// when there is none.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir", "error", err)
		return ""
	}

	p := filepath.Join(home, homeDir, config.FileName)
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return p
}

func defaultConfigInitPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return config.FileName
	}
	return filepath.Join(home, homeDir, config.FileName)
}

func (a *app) encode(v any) error {
	if a.format == formatYAML {
		return yaml.NewEncoder(a.out).Encode(v)
	}
	e := json.NewEncoder(a.out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
