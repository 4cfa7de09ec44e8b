package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NERVsystems/navtrack/pkg/config"
	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/httpapi"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/osrm"
	"github.com/NERVsystems/navtrack/pkg/server"
	"github.com/NERVsystems/navtrack/pkg/version"
)

// Run modes
const (
	modeMCP    = "mcp"
	modeHTTP   = "http"
	modeReplay = "replay"
)

type options struct {
	version        bool
	debug          bool
	mode           string
	configFile     string
	envFiles       string
	generateConfig string

	// replay
	gpxFile   string
	dest      string
	transport string
	route     int
	speed     float64
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("navtrack", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.version, "version", false, "Display version information")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&opts.mode, "mode", modeMCP, "Run mode: mcp, http or replay")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envFiles, "env", ".env", "Comma-separated .env files to load")
	fs.StringVar(&opts.generateConfig, "generate-config", "", "Generate a Claude Desktop Client config file at the specified path")
	fs.StringVar(&opts.gpxFile, "gpx", "", "GPX file to replay (replay mode)")
	fs.StringVar(&opts.dest, "dest", "", "Destination as lat,lon; defaults to the last GPX point (replay mode)")
	fs.StringVar(&opts.transport, "transport", string(nav.ModeDriving), "Transport mode: driving, walking or transit (replay mode)")
	fs.IntVar(&opts.route, "route", 0, "Candidate route to follow (replay mode)")
	fs.Float64Var(&opts.speed, "speed", 10, "Replay speed multiplier; 0 replays without waiting (replay mode)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.mode {
	case modeMCP, modeHTTP:
	case modeReplay:
		if opts.gpxFile == "" {
			return options{}, errors.New("replay mode requires -gpx")
		}
	default:
		return options{}, fmt.Errorf("unknown mode %q", opts.mode)
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("navtrack failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.version {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	cfg, err := config.Load(config.Options{File: opts.configFile, EnvFiles: splitList(opts.envFiles)})
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries the MCP stream.
	logLevel := cfg.Log.SlogLevel()
	if opts.debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if opts.generateConfig != "" {
		if err := generateClientConfig(opts.generateConfig); err != nil {
			return fmt.Errorf("generate config: %w", err)
		}
		logger.Info("successfully generated Claude Desktop Client config", "path", opts.generateConfig)
		return nil
	}

	client, err := osrm.NewClient(cfg.OSRM, osrm.WithLogger(logger))
	if err != nil {
		return err
	}
	manager, err := newManager(cfg, client, logger)
	if err != nil {
		return err
	}
	defer manager.Close()
	places, err := newPlaceSearcher(cfg.Nominatim, logger)
	if err != nil {
		return err
	}

	logger.Info("starting navtrack",
		"version", version.BuildVersion,
		"mode", opts.mode,
		"log_level", logLevel.String())

	switch opts.mode {
	case modeHTTP:
		return serveHTTP(ctx, cfg.HTTP, httpapi.NewRouter(manager, places, logger, cfg.HTTP.AllowedOrigins), logger)
	case modeReplay:
		return runReplay(ctx, manager, opts, stdout, logger)
	default:
		return server.NewServer(logger, manager, places).Run(ctx, stdin, stdout)
	}
}

func newManager(cfg *config.Config, fetcher navigator.RouteFetcher, logger *slog.Logger) (*navigator.Manager, error) {
	loc, err := cfg.ETA.Location()
	if err != nil {
		return nil, err
	}
	tracker, err := nav.NewTracker(cfg.Tracking, nav.WithLogger(logger), nav.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	return navigator.NewManager(fetcher, tracker, cfg.Navigator, navigator.WithLogger(logger)), nil
}

// placeSearcher is the destination search shared by the MCP and HTTP surfaces.
type placeSearcher interface {
	Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]osm.Place, error)
	Resolve(ctx context.Context, query string, near *geo.Coordinate) (osm.Place, error)
}

// newPlaceSearcher returns nil when destination search is disabled.
func newPlaceSearcher(cfg osm.Config, logger *slog.Logger) (placeSearcher, error) {
	if !cfg.Enabled {
		logger.Info("destination search disabled")
		return nil, nil
	}
	client, err := osm.NewClient(cfg, osm.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func serveHTTP(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down HTTP API")
	return srv.Shutdown(shutdownCtx)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
