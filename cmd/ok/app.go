package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/google/uuid"
	"github.com/hewenyu/OperationKernel/internal/config"
	"github.com/hewenyu/OperationKernel/internal/logging"
	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/provider/anthropic"
	"github.com/hewenyu/OperationKernel/internal/provider/gemini"
	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/hewenyu/OperationKernel/internal/ui"
	uiservices "github.com/hewenyu/OperationKernel/internal/ui/services"
	"github.com/hewenyu/OperationKernel/internal/workflow"
	"github.com/hewenyu/OperationKernel/internal/workflow/dispatch"
	"github.com/hewenyu/OperationKernel/internal/workflow/loop"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 5 * time.Second

type options struct {
	configPath    string
	station       string
	model         string
	maxToolRounds int
	debug         bool
	plain         bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "ok",
		Short:        "An interactive coding agent for your terminal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().WithPath(opts.configPath).Load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: $OK_CONFIG, then ~/.config/ok/config.json)")
	f.StringVar(&opts.station, "station", "", "provider station id (default: config default_station, then the first station)")
	f.StringVar(&opts.model, "model", "", "model name, overriding the station's model")
	f.IntVar(&opts.maxToolRounds, "max-tool-rounds", 0, "tool rounds allowed per turn (default: config agent.max_tool_rounds)")
	f.BoolVar(&opts.debug, "debug", false, "write a JSON debug log to ~/.config/ok/ok-debug.log")
	f.BoolVar(&opts.plain, "plain", false, "use the line-oriented interface instead of the TUI")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

// resolveStation applies the command-line overrides to cfg and returns
// the station to talk to.
func resolveStation(cfg *config.Config, opts options) (config.StationConfig, error) {
	if opts.maxToolRounds > 0 {
		cfg.Agent.MaxToolRounds = opts.maxToolRounds
	}
	st, err := cfg.Station(opts.station)
	if err != nil {
		return config.StationConfig{}, err
	}
	if opts.model != "" {
		st.Model = opts.model
	}
	return st, nil
}

// newClient builds the provider client for a station.
func newClient(st config.StationConfig, hc *http.Client, logger *zap.Logger) (provider.Client, error) {
	key, err := st.APIKey()
	if err != nil {
		return nil, err
	}
	switch st.Provider {
	case config.ProviderAnthropic:
		c, err := anthropic.New(st.APIBase, key, hc, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.ProviderGemini:
		c, err := gemini.New(st.APIBase, key, hc, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("station %q: unsupported provider %q", st.ID, st.Provider)
	}
}

func debugLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), config.DebugLogFile)
	}
	return filepath.Join(config.Dir(home), config.DebugLogFile)
}

// session is everything one run of ok needs.
type session struct {
	id      string
	station config.StationConfig
	engine  *loop.Engine
	jobs    *process.Manager
	events  chan workflow.Event
	logger  *zap.Logger
}

func newSession(id string, cfg *config.Config, st config.StationConfig, client provider.Client, workingDir string, logger *zap.Logger) (*session, error) {
	sb, err := sandbox.New(workingDir, os.TempDir())
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}

	jobs := dispatch.NewJobs(cfg, logger)
	dispatcher := dispatch.New(dispatch.NewTools(cfg, jobs, logger), cfg.Tools.MaxToolOutputChars, logger)

	events := make(chan workflow.Event, 64)
	roots := sb.Roots()
	engine := loop.New(client, dispatcher, sb, events, loop.Options{
		Model:       st.Model,
		MaxTokens:   st.MaxTokens,
		Temperature: st.Temperature,
		System: loop.SystemPrompt(loop.PromptInfo{
			WorkingDir: sb.WorkingDir(),
			Platform:   runtime.GOOS + "/" + runtime.GOARCH,
			Date:       time.Now(),
			ExtraRoots: roots[1:],
			Extra:      cfg.Agent.SystemPromptExtra,
		}),
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		LoopWindow:    cfg.Agent.LoopDetectionWindow,
		Logger:        logger,
	})

	return &session{
		id:      id,
		station: st,
		engine:  engine,
		jobs:    jobs,
		events:  events,
		logger:  logger,
	}, nil
}

// close kills every background job still running.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.jobs.Shutdown(ctx); err != nil {
		s.logger.Warn("job shutdown incomplete", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	st, err := resolveStation(cfg, opts)
	if err != nil {
		return err
	}

	plain := opts.plain || !isatty.IsTerminal(os.Stdin.Fd())
	logger, err := logging.New(logging.Options{Debug: opts.debug, DebugPath: debugLogPath(), Plain: plain})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	id := uuid.NewString()
	logger = logger.With(zap.String("session", id), zap.String("station", st.ID))

	client, err := newClient(st, &http.Client{}, logger)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	s, err := newSession(id, cfg, st, client, wd, logger)
	if err != nil {
		return err
	}
	logger.Info("session started", zap.String("model", st.Model), zap.Bool("plain", plain))
	defer s.close()

	if plain {
		return s.runPlain(ctx, os.Stdin, os.Stdout)
	}
	return s.runTUI(ctx)
}

func (s *session) runTUI(ctx context.Context) error {
	spinnerFactory := func() spinner.Model {
		return spinner.New(spinner.WithSpinner(spinner.Dot))
	}
	u := ui.NewUI(s.engine, s.jobs, s.events, uiservices.NewGlamourRenderer("dark"), spinnerFactory, ui.Options{
		ModelName: s.station.ID + " · " + s.station.Model,
	})
	err := u.Start(ctx)
	s.engine.Cancel()
	return err
}

// runPlain runs the line REPL. The first Ctrl+C cancels a running turn;
// Ctrl+C while idle ends the session.
func (s *session) runPlain(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := ui.NewPlain(s.engine, s.jobs, out)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if !p.Interrupt() {
					cancel()
					return
				}
			}
		}
	}()

	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx, in, s.events) }()

	select {
	case err := <-errc:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.engine.Cancel()
		return nil
	}
}
