package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/nexuslink/dealdesk/pkg/config"
	"github.com/nexuslink/dealdesk/pkg/crm"
	"github.com/nexuslink/dealdesk/pkg/form"
	"github.com/nexuslink/dealdesk/pkg/progress"
)

// serverStartupTimeout is the time to wait for server startup before assuming success.
const serverStartupTimeout = 100 * time.Millisecond

// DashboardConfig holds configuration for dashboard initialization.
type DashboardConfig struct {
	Port       int              // web server port
	DarkMode   bool             // default theme
	Log        Logger           // activity logger, console and file
	AppLog     lgr.L            // internal debug logger, lgr.NoOp if nil
	Colors     *progress.Colors // colors for startup info
	BufferSize int              // activity events kept for the page, DefaultBufferSize if zero
}

// DashboardDeps are the form components the dashboard serves.
type DashboardDeps struct {
	Store     *form.Store
	Submitter Submitter
	Deals     DealSource
	Sample    *crm.Sample
}

// Dashboard wires the form store to the activity feed and the web server.
type Dashboard struct {
	port     int
	colors   *progress.Colors
	activity *Activity
	server   *Server
}

// NewDashboard creates a dashboard. it subscribes the activity feed to the store, so
// form changes are logged and streamed from this point on.
func NewDashboard(cfg DashboardConfig, deps DashboardDeps) (*Dashboard, error) {
	if cfg.Log == nil {
		return nil, errors.New("activity logger is required")
	}
	if cfg.Colors == nil {
		cfg.Colors = progress.NewColors(config.ColorConfig{})
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	buffer := NewBuffer(cfg.BufferSize)
	srv, err := NewServer(ServerConfig{Port: cfg.Port, DarkMode: cfg.DarkMode}, ServerDeps{
		Store:     deps.Store,
		Submitter: deps.Submitter,
		Deals:     deps.Deals,
		Sample:    deps.Sample,
		Buffer:    buffer,
		Logger:    cfg.AppLog,
	})
	if err != nil {
		return nil, fmt.Errorf("create web server: %w", err)
	}

	activity := NewActivity(cfg.Log, buffer)
	activity.OnEvent(srv.PublishActivity)
	deps.Store.Subscribe(activity.Observe)

	return &Dashboard{port: cfg.Port, colors: cfg.Colors, activity: activity, server: srv}, nil
}

// Activity returns the dashboard activity feed.
func (d *Dashboard) Activity() *Activity { return d.activity }

// SetSample replaces the contacts and stats shown on the page.
func (d *Dashboard) SetSample(s *crm.Sample) { d.server.SetSample(s) }

// Run starts the web server and blocks until ctx is canceled.
// returns an error if the server fails to start or stops on its own.
func (d *Dashboard) Run(ctx context.Context) error {
	srvErrCh, err := startServerAsync(ctx, d.server, d.port)
	if err != nil {
		return err
	}
	d.colors.Info().Printf("web dashboard: http://localhost:%d\n", d.port)
	d.colors.Info().Printf("press Ctrl+C to exit\n")
	return monitorErrors(ctx, srvErrCh)
}

// startServerAsync starts a web server in the background and waits briefly for startup errors.
// returns the error channel for monitoring late errors, or an error if startup fails.
func startServerAsync(ctx context.Context, srv *Server, port int) (chan error, error) {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	// wait briefly for startup errors
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return nil, fmt.Errorf("web server failed to start on port %d: %w", port, err)
		}
		// stopped cleanly, ctx was canceled during startup
		return errCh, nil
	case <-time.After(serverStartupTimeout):
		// server started successfully
	}

	return errCh, nil
}

// monitorErrors waits for shutdown, returning a server error that happens before it.
func monitorErrors(ctx context.Context, srvErrCh chan error) error {
	select {
	case <-ctx.Done():
		// drain so the server goroutine finishes its shutdown
		for range srvErrCh {
		}
		return nil
	case srvErr, ok := <-srvErrCh:
		if !ok || ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("web server error: %w", srvErr)
	}
}
