package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/verifypanel/internal/api"
	"github.com/AaronLay10/verifypanel/internal/audio"
	"github.com/AaronLay10/verifypanel/internal/config"
	"github.com/AaronLay10/verifypanel/internal/events"
	"github.com/AaronLay10/verifypanel/internal/logpane"
	"github.com/AaronLay10/verifypanel/internal/mqtt"
	"github.com/AaronLay10/verifypanel/internal/panel"
	"github.com/AaronLay10/verifypanel/internal/prefs"
	"github.com/AaronLay10/verifypanel/internal/sequencer"
	"github.com/AaronLay10/verifypanel/internal/version"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the panel page and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
}

// mqttStarter counts hardware triggers alongside starting the run.
type mqttStarter struct {
	ctrl    *sequencer.Controller
	metrics *api.Metrics
}

func (s mqttStarter) Start() bool {
	started := s.ctrl.Start()
	s.metrics.Trigger("mqtt", started)
	return started
}

func serve(ctx context.Context, cfg *config.PanelConfig, logger *zap.Logger) error {
	startedAt := time.Now()

	store, err := prefs.Open(ctx, cfg.Preferences, cfg.Panel.ID)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	defer store.Close()

	themes := prefs.NewThemes(store)
	if _, err := themes.Load(ctx); err != nil {
		logger.Warn("stored theme unreadable, using dark", zap.Error(err))
	}

	bus := events.NewBus(0)
	bridge := api.NewBridge(bus, logger)
	themes.OnChange(bridge.ThemeChanged)

	pane := logpane.New(
		logpane.WithMaxLines(cfg.LogMaxLines()),
		logpane.WithPublisher(bridge),
	)
	metrics := api.NewMetrics(cfg.Panel.ID, bus, startedAt)
	alerter := api.NewAlerter(cfg.Alerts.WebhookURL, cfg.Panel.Name, cfg.AlertTimeout(), logger)
	ready := api.NewReadiness()

	if p, ok := store.(interface{ Ping(context.Context) error }); ok {
		ready.Add("preferences", false, p.Ping)
	}

	beeper := audio.Multi{audio.NewEventBeeper(bus, logger)}

	var client *mqtt.Client
	var trigger *mqtt.Trigger
	if cfg.MQTT.Enabled {
		password, err := config.ResolveSecret("PANEL_MQTT_PASSWORD")
		if err != nil {
			return err
		}
		clientID := cfg.MQTT.ClientID
		if clientID == "" {
			clientID = "verifypanel-" + cfg.Panel.ID
		}
		client = mqtt.NewClient(mqtt.Options{
			URL:      cfg.MQTTURL(),
			ClientID: clientID,
			Username: cfg.MQTT.Username,
			Password: password,
			OnConnect: func() {
				if trigger == nil {
					return
				}
				// Subscriptions do not survive a reconnect.
				trigger.Reset()
				go func() {
					if err := trigger.Subscribe(); err != nil {
						logger.Warn("mqtt trigger subscribe failed", zap.Error(err))
					}
				}()
			},
		}, logger)
		if cfg.MQTT.CueTopic != "" {
			beeper = append(beeper, mqtt.NewCueBeeper(client, cfg.MQTT.CueTopic, logger))
		}
		ready.Add("mqtt", true, func(context.Context) error {
			if !client.IsConnected() {
				return mqtt.ErrNotConnected
			}
			return nil
		})
	}

	ctrl := sequencer.New(
		sequencer.WithStages(cfg.Stages()),
		sequencer.WithTiming(cfg.Timing()),
		sequencer.WithVerifiedChance(cfg.VerifiedChance()),
		sequencer.WithLog(pane),
		sequencer.WithBeeper(beeper),
		sequencer.WithRecorder(bridge),
		sequencer.WithRecorder(metrics),
		sequencer.WithRecorder(alerter),
		sequencer.WithObserver(bridge.Snapshot),
		sequencer.WithLogger(logger),
	)

	if client != nil && cfg.MQTT.TriggerTopic != "" {
		trigger = mqtt.NewTrigger(client, cfg.MQTT.TriggerTopic, mqttStarter{ctrl: ctrl, metrics: metrics}, logger)
	}

	session := panel.NewSession(uuid.New(), version.BuildTime(startedAt), version.Version)
	srv := api.NewServer(api.Deps{
		Checker:   ctrl,
		Bus:       bus,
		Pane:      pane,
		Themes:    themes,
		Panel:     panel.New(pane, beeper, panel.WithBus(bus), panel.WithLogger(logger)),
		Session:   session,
		PanelName: cfg.Panel.Name,
		Metrics:   metrics,
		Readiness: ready,
		TLS:       api.TLSConfig{CertFile: cfg.TLS.CertFile, KeyFile: cfg.TLS.KeyFile},
		Logger:    logger,
	})

	logger.Info("panel starting",
		zap.String("panel", cfg.Panel.ID),
		zap.String("session", session.ID),
		zap.String("version", version.Version),
		zap.String("preferences", cfg.Preferences.Backend),
		zap.Bool("mqtt", client != nil),
		zap.Bool("alerts", alerter.Enabled()),
	)
	bus.Emit("info", "system.startup", "", map[string]any{"session_id": session.ID})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Addr())
	})
	if client != nil {
		g.Go(func() error {
			// Paho keeps retrying in the background after a timeout.
			if err := client.Connect(); err != nil {
				var timeout *mqtt.ConnectTimeoutError
				if !errors.As(err, &timeout) {
					return fmt.Errorf("mqtt connect: %w", err)
				}
				logger.Warn("mqtt broker not reachable yet", zap.Error(err))
			}
			<-gctx.Done()
			client.Disconnect()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		// Triggers still arriving over HTTP or MQTT are refused from here
		// on; a run in progress always completes.
		ctrl.Shutdown()
		alerter.Wait()
		bus.Emit("info", "system.shutdown", "", nil)
		bus.CloseAll()
		return nil
	})

	err = g.Wait()
	logger.Info("panel stopped")
	return err
}
