// Package main provides dealdesk - the NexusLink deal creation form as a terminal prompt
// or a local web dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/nexuslink/dealdesk/pkg/config"
	"github.com/nexuslink/dealdesk/pkg/crm"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/input"
	"github.com/nexuslink/dealdesk/pkg/progress"
	"github.com/nexuslink/dealdesk/pkg/submit"
	"github.com/nexuslink/dealdesk/pkg/web"
)

// opts holds all command-line options. zero values of the override flags mean "use config".
type opts struct {
	Serve              bool          `short:"s" long:"serve" description:"start web dashboard instead of the terminal form"`
	Port               int           `short:"p" long:"port" description:"web dashboard port (default from config)"`
	Config             string        `long:"config" env:"DEALDESK_CONFIG" description:"config directory (default ~/.config/dealdesk)"`
	SuccessProbability float64       `long:"success-probability" description:"share of simulated submissions that succeed, 0..1"`
	Latency            time.Duration `long:"latency" description:"simulated create-deal latency"`
	ResetDelay         time.Duration `long:"reset-delay" description:"how long the success banner stays"`
	ActivityLog        string        `long:"activity-log" description:"append activity to this file"`
	NoColor            bool          `long:"no-color" description:"disable color output"`
	Debug              bool          `short:"d" long:"debug" description:"enable debug logging"`
	Version            bool          `short:"v" long:"version" description:"print version and exit"`
}

var revision = "unknown"

func main() {
	fmt.Printf("dealdesk %s\n", revision)

	var o opts
	parser := flags.NewParser(&o, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if o.Version {
		os.Exit(0)
	}

	// setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, flagSet(parser)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagSet returns a lookup telling whether a long option was given on the command line.
func flagSet(parser *flags.Parser) func(name string) bool {
	return func(name string) bool {
		opt := parser.FindOptionByLongName(name)
		return opt != nil && opt.IsSet()
	}
}

// app holds the components shared by both modes.
type app struct {
	cfg     *config.Config
	colors  *progress.Colors
	log     lgr.L
	plog    *progress.Logger
	store   *form.Store
	outcome *submit.RandomOutcome
	backend *submit.SimulatedBackend
	orch    *submit.Orchestrator
}

func run(ctx context.Context, o opts, isSet func(string) bool) error {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err = applyFlags(cfg, o, isSet); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	a, err := newApp(cfg, o)
	if err != nil {
		return err
	}
	defer a.close()

	if o.Serve {
		return a.serve(ctx, isSet)
	}

	tty, restore := prepareTerminal(os.Stdin)
	defer restore()
	tf := &terminalForm{
		store:   a.store,
		orch:    a.orch,
		in:      input.NewTerminalCollector(),
		log:     a.plog,
		out:     os.Stdout,
		noColor: o.NoColor || !tty, // piped input gets a plain receipt
	}
	return tf.run(ctx)
}

// applyFlags overrides config values with flags given on the command line.
// flag values get the same range checks as config file values.
func applyFlags(cfg *config.Config, o opts, isSet func(string) bool) error {
	if isSet("port") {
		if o.Port < 1 || o.Port > 65535 {
			return fmt.Errorf("invalid --port: must be 1-65535, got %d", o.Port)
		}
		cfg.Port = o.Port
	}
	if isSet("success-probability") {
		if o.SuccessProbability < 0 || o.SuccessProbability > 1 {
			return fmt.Errorf("invalid --success-probability: must be 0..1, got %v", o.SuccessProbability)
		}
		cfg.SuccessProbability = o.SuccessProbability
	}
	if isSet("latency") {
		if o.Latency < 0 {
			return fmt.Errorf("invalid --latency: must be non-negative, got %v", o.Latency)
		}
		cfg.SubmitLatencyMs = int(o.Latency / time.Millisecond)
	}
	if isSet("reset-delay") {
		if o.ResetDelay < 0 {
			return fmt.Errorf("invalid --reset-delay: must be non-negative, got %v", o.ResetDelay)
		}
		cfg.ResetDelayMs = int(o.ResetDelay / time.Millisecond)
	}
	if isSet("activity-log") {
		cfg.ActivityLog = o.ActivityLog
	}
	return nil
}

func newApp(cfg *config.Config, o opts) (*app, error) {
	colors := progress.NewColors(cfg.Colors)
	mode := "terminal"
	if o.Serve {
		mode = "dashboard"
	}
	plog, err := progress.NewLogger(progress.Config{Path: cfg.ActivityLog, Mode: mode, NoColor: o.NoColor}, colors)
	if err != nil {
		return nil, fmt.Errorf("create activity logger: %w", err)
	}

	log := setupLog(o.Debug)
	latency := cfg.SubmitLatency()
	if latency == 0 {
		latency = -1 // answer immediately
	}
	outcome := submit.NewRandomOutcome(cfg.SuccessProbability, nil)
	backend := submit.NewSimulatedBackend(submit.SimulatedParams{Outcome: outcome, Latency: latency})
	store := form.NewStore()
	orch := submit.New(store, backend, submit.Options{ResetDelay: cfg.ResetDelay(), Logger: log})

	log.Logf("[DEBUG] config dir %s, local %q, success probability %.2f, latency %s",
		cfg.ConfigDir(), cfg.LocalDir(), outcome.Probability(), latency)
	return &app{cfg: cfg, colors: colors, log: log, plog: plog, store: store, outcome: outcome,
		backend: backend, orch: orch}, nil
}

func (a *app) close() {
	a.orch.Close()
	if err := a.plog.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// serve runs the dashboard and the config watcher until ctx is canceled.
func (a *app) serve(ctx context.Context, isSet func(string) bool) error {
	sample, err := crm.LoadSample(a.cfg.SampleData)
	if err != nil {
		return fmt.Errorf("load sample data: %w", err)
	}

	dash, err := web.NewDashboard(web.DashboardConfig{
		Port:     a.cfg.Port,
		DarkMode: a.cfg.DarkMode,
		Log:      a.plog,
		AppLog:   a.log,
		Colors:   a.colors,
	}, web.DashboardDeps{Store: a.store, Submitter: a.orch, Deals: a.backend, Sample: sample})
	if err != nil {
		return fmt.Errorf("create dashboard: %w", err)
	}

	// watcher warnings also go to the activity feed so the page shows a broken config
	watchLog := lgr.Func(func(format string, args ...any) {
		a.log.Logf(format, args...)
		if msg := fmt.Sprintf(format, args...); strings.HasPrefix(msg, "[WARN] ") {
			dash.Activity().Warn("%s", strings.TrimPrefix(msg, "[WARN] "))
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Run(gctx) })
	g.Go(func() error {
		err := config.Watch(gctx, a.cfg, watchLog, func(c *config.Config) {
			a.reload(c, dash, isSet)
		})
		if err != nil {
			// the dashboard keeps working with the startup config
			dash.Activity().Warn("config reload disabled: %v", err)
		}
		return nil
	})
	return g.Wait()
}

// reload applies a changed config: the success probability (unless fixed by flag) and
// the sample data. other keys need a restart.
func (a *app) reload(c *config.Config, dash *web.Dashboard, isSet func(string) bool) {
	if !isSet("success-probability") {
		a.outcome.SetProbability(c.SuccessProbability)
	}
	sample, err := crm.LoadSample(c.SampleData)
	if err != nil {
		dash.Activity().Warn("reload sample data: %v", err)
		return
	}
	dash.SetSample(sample)
	a.plog.Print("config reloaded, success probability %.0f%%", a.outcome.Probability()*100)
}

// setupLog makes the internal logger. without debug only errors are shown, on stderr.
func setupLog(dbg bool) lgr.L {
	if dbg {
		return lgr.New(lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerFunc, lgr.Out(os.Stderr))
	}
	return lgr.New(lgr.LevelBraces, lgr.Out(io.Discard), lgr.Err(os.Stderr))
}
