package cli

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/metrics"
	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 30
	serverMaxHeaderBytes      = 20

	flagAddress   = "address"
	flagPort      = "port"
	flagNoBrowser = "no-browser"
	flagNoMetrics = "no-metrics"

	portEnvVar = "COXRISK_PORT"
)

var (
	//go:embed assets/* templates/*
	embedFS embed.FS
)

func (a *app) serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server with the risk score form",
		Action:  a.cmdStartServer,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagAddress,
				Usage: "Address on which the server will listen (optional, overrides config)",
			},
			&cli.IntFlag{
				Name:    flagPort,
				Usage:   "Port on which the server will listen (optional, overrides config)",
				Sources: cli.EnvVars(portEnvVar),
			},
			&cli.BoolFlag{
				Name:    flagNoBrowser,
				Aliases: []string{"nb"},
				Usage:   "Do not open browser automatically",
			},
			&cli.BoolFlag{
				Name:  flagNoMetrics,
				Usage: "Do not expose the /metrics endpoint",
			},
		},
	}
}

func (a *app) cmdStartServer(ctx context.Context, cmd *cli.Command) error {
	sc := a.cfg.Server
	if v := cmd.String(flagAddress); v != "" {
		sc.Address = v
	}
	if cmd.IsSet(flagPort) {
		sc.Port = cmd.Int(flagPort)
	}
	if cmd.Bool(flagNoMetrics) {
		sc.Metrics = false
	}
	address := fmt.Sprintf("%s:%d", sc.Address, sc.Port)

	var rec metrics.Recorder = metrics.Nop{}
	var metricsHandler http.Handler
	if sc.Metrics {
		reg := metrics.NewRegistry()
		rec = reg
		metricsHandler = reg.Handler()
	}

	h, err := newHandler(a.scorer, a.cfg.Bounds, rec, metricsHandler)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	s := &http.Server{
		Addr:           address,
		Handler:        h,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	// bind before anything points a browser at the address
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", address, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error shutting down server: %w", err)
		}
		slog.Info("server stopped")
		return nil
	})

	url := fmt.Sprintf("http://%s", ln.Addr())
	slog.Info("server started", "address", url, "metrics", sc.Metrics)

	if !cmd.Bool(flagNoBrowser) {
		openBrowser(url)
	}

	return g.Wait()
}

// handler serves the form and the JSON API over one scorer.
type handler struct {
	scorer  *score.Scorer
	bounds  form.Bounds
	tmpl    *template.Template
	metrics metrics.Recorder
}

func newHandler(s *score.Scorer, b form.Bounds, rec metrics.Recorder, metricsHandler http.Handler) (http.Handler, error) {
	tmpl, err := template.New("").ParseFS(embedFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	assets, err := fs.Sub(embedFS, "assets")
	if err != nil {
		return nil, fmt.Errorf("opening assets: %w", err)
	}

	h := &handler{
		scorer:  s,
		bounds:  b,
		tmpl:    tmpl,
		metrics: rec,
	}
	return withRequestID(h.makeRouter(assets, metricsHandler)), nil
}

func (h *handler) makeRouter(assets fs.FS, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(assets)))

	// Views
	mux.HandleFunc("GET /{$}", h.homeViewHandler)
	mux.HandleFunc("POST /score", h.scoreViewHandler)

	// API
	mux.HandleFunc("POST /api/score", h.scoreAPIHandler)
	mux.HandleFunc("GET /api/model", h.modelAPIHandler)
	mux.HandleFunc("GET /healthz", healthHandler)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return mux
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}
