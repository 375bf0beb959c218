package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"palmguard/internal/api"
	"palmguard/internal/autostart"
	"palmguard/internal/config"
	"palmguard/internal/control"
	"palmguard/internal/engine"
	"palmguard/internal/hotkey"
	"palmguard/internal/input"
	"palmguard/internal/notify"
	"palmguard/internal/protocol"
	"palmguard/internal/tray"
)

// shutdownTimeout bounds the final re-enable on exit
const shutdownTimeout = 3 * time.Second

var (
	runMinimized bool
	runNoTray    bool
)

func init() {
	runCmd.Flags().BoolVar(&runMinimized, "minimized", false, "start in the tray without the startup notification")
	runCmd.Flags().BoolVar(&runNoTray, "no-tray", false, "run without a tray icon until interrupted")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the touchpad guard",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := newService(ctx, e, cancel)
	if err != nil {
		return err
	}

	if runNoTray {
		svc.run(ctx)
		return nil
	}

	// the tray owns the main goroutine; the service stops it when done
	t := tray.New(tray.Actions{
		ToggleTouchpad:   svc.toggleTouchpad,
		ToggleMonitoring: svc.toggleMonitoring,
		Quit:             cancel,
	}, e.logger)
	svc.tray = t
	svc.updateTray()
	go func() {
		svc.run(ctx)
		t.Stop()
	}()
	t.Run()
	cancel()
	<-svc.done
	return nil
}

// service is a running guard with its peripherals
type service struct {
	ctx      context.Context
	quit     context.CancelFunc
	mgr      *config.Manager
	eng      *engine.Engine
	notifier *notify.Notifier
	hotkeys  *hotkey.Manager
	feed     *input.Feed
	tray     *tray.Tray
	logger   *slog.Logger
	done     chan struct{}
}

func newService(ctx context.Context, e *env, quit context.CancelFunc) (*service, error) {
	cfg := e.cfg
	notifier := notify.New(nil, nil, e.logger)
	notifier.Start(ctx)

	eng, err := engine.New(ctx, cfg, engine.Options{Logger: e.logger, Notifier: notifier})
	if err != nil {
		notifier.Close()
		return nil, err
	}

	s := &service{
		ctx:      ctx,
		quit:     quit,
		mgr:      e.mgr,
		eng:      eng,
		notifier: notifier,
		hotkeys:  hotkey.NewManager(e.logger),
		feed:     input.NewFeed(e.logger),
		logger:   e.logger.With("component", "service"),
		done:     make(chan struct{}),
	}
	s.feed.OnActivity(eng.RecordActivity)
	s.feed.OnKey(s.hotkeys.UpdateState)
	s.registerHotkeys(cfg)
	eng.Subscribe(func(protocol.Message) { s.updateTray() })

	e.mgr.RegisterChangeCallback(s.applyConfig)
	return s, nil
}

// run blocks until ctx is done, then restores the touchpad
func (s *service) run(ctx context.Context) {
	defer close(s.done)
	defer s.notifier.Close()

	cfg := s.mgr.Get()
	if err := autostart.Sync(cfg.General.StartOnBoot); err != nil {
		s.logger.Warn("autostart sync failed", "error", err)
	}

	go func() {
		if err := s.feed.Run(ctx, input.DefaultSources()); err != nil {
			s.logger.Warn("no keyboard feed, auto-disable is inactive", "error", err)
		}
	}()
	go func() {
		if err := s.mgr.Watch(ctx); err != nil {
			s.logger.Warn("config watch unavailable", "error", err)
		}
	}()
	if cfg.API.Enabled {
		server := api.NewServer(s.eng, cfg.API.Token, s.logger)
		go func() {
			if err := server.Start(ctx, cfg.API.Listen); err != nil {
				s.logger.Warn("API server unavailable", "error", err)
			}
		}()
	}

	if cfg.General.AutoStartMonitoring {
		if err := s.eng.Start(ctx); err != nil {
			s.logger.Error("failed to start monitoring", "error", err)
		}
	}
	if !runMinimized && !cfg.General.StartMinimized {
		s.notifier.Message("PalmGuard", "Running. Strategy: "+string(s.eng.Handle().Kind))
	}

	<-ctx.Done()
	s.logger.Info("shutting down")

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.eng.Close(closeCtx); err != nil {
		s.logger.Error("failed to restore touchpad", "error", err)
	}
}

func (s *service) registerHotkeys(cfg *config.Config) {
	s.hotkeys.Clear()
	bindings := []struct {
		name   string
		hotkey string
		fn     func()
	}{
		{"toggle_touchpad", cfg.Hotkeys.ToggleTouchpad, s.toggleTouchpad},
		{"toggle_monitoring", cfg.Hotkeys.ToggleMonitoring, s.toggleMonitoring},
		{"exit_app", cfg.Hotkeys.ExitApp, s.quit},
	}
	for _, b := range bindings {
		if err := s.hotkeys.Register(b.hotkey, b.fn); err != nil {
			s.logger.Warn("invalid hotkey ignored", "binding", b.name, "error", err)
		}
	}
}

func (s *service) applyConfig(cfg *config.Config) {
	s.logger.Info("applying configuration")
	s.eng.ApplyConfig(s.ctx, cfg)
	s.registerHotkeys(cfg)
	if err := autostart.Sync(cfg.General.StartOnBoot); err != nil {
		s.logger.Warn("autostart sync failed", "error", err)
	}
	s.updateTray()
}

func (s *service) toggleTouchpad() {
	if err := s.eng.ToggleNow(s.ctx); err != nil {
		s.logger.Error("toggle failed", "error", err)
	}
}

func (s *service) toggleMonitoring() {
	running, err := s.eng.ToggleMonitoring(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("toggle monitoring failed", "error", err)
		return
	}
	if running {
		s.notifier.Message("PalmGuard", "Monitoring started")
	} else {
		s.notifier.Message("PalmGuard", "Monitoring stopped")
	}
}

func (s *service) updateTray() {
	if s.tray == nil {
		return
	}
	st := s.eng.State()
	s.tray.Update(tray.Status{
		State:      st.String(),
		Strategy:   string(s.eng.Handle().Kind),
		Monitoring: s.eng.Running(),
		Enabled:    st == control.StateEnabled,
	})
}
