package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"github.com/godbus/dbus/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/audio"
	"github.com/altrise/clockapp/pkg/events"
	"github.com/altrise/clockapp/pkg/ipc"
	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/altrise/clockapp/pkg/platform"
	"github.com/altrise/clockapp/pkg/power"
	"github.com/altrise/clockapp/pkg/receiver"
	"github.com/altrise/clockapp/pkg/ringing"
	"github.com/altrise/clockapp/pkg/scheduler"
	"github.com/altrise/clockapp/pkg/store"
)

const (
	appID          = "io.altrise.clockapp"
	appName        = "clockapp"
	appDisplayName = "AltRise Clock"
)

// ClockApp owns the alarm lifecycle and the windows that drive it
type ClockApp struct {
	app    fyne.App
	logger *slog.Logger

	cfgMu       sync.RWMutex
	config      *models.Config
	configStore *store.ConfigStore

	alarmStore *store.AlarmStore
	flag       *store.ActiveAlarmStore
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	bus        *events.Bus
	rtc        *scheduler.RTCWakeAlarm
	waker      *scheduler.CronWaker
	scheduler  *scheduler.Scheduler
	sound      *audio.AlarmSound
	vibrator   *ringing.PatternVibrator
	ringer     *ringing.Service
	receiver   *receiver.Receiver
	manager    *alarms.Manager

	session   *dbus.Conn
	ipc       *ipc.Server
	inhibitor *power.Inhibitor

	// Only touched on the main goroutine
	alarmsWindow  *AlarmsWindow
	dismissWindow *DismissWindow

	cancel context.CancelFunc
	group  errgroup.Group
}

// newClockApp builds the lifecycle components on top of a's preferences.
// Nothing is scheduled until start.
func newClockApp(a fyne.App, logger *slog.Logger, rtcPath string) *ClockApp {
	logger = logging.OrDefault(logger)
	ca := &ClockApp{app: a, logger: logger}
	prefs := a.Preferences()

	ca.configStore = store.NewConfigStore(prefs)
	ca.config = ca.configStore.Load()

	ca.alarmStore = store.NewAlarmStore(prefs, logger)
	ca.flag = store.NewActiveAlarmStore(prefs)

	ca.registry = prometheus.NewRegistry()
	ca.metrics = metrics.New(ca.registry)
	ca.bus = events.NewBus()

	ca.rtc = scheduler.NewRTCWakeAlarm(rtcPath)
	ca.waker = scheduler.NewCronWaker(ca.rtc, logger)
	ca.scheduler = scheduler.New(ca.alarmStore, ca.waker, ca.rtc,
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(ca.metrics),
	)

	ca.sound = audio.NewAlarmSound(ca.config.SoundPath, logger)
	ca.vibrator = ringing.NewPatternVibrator(ca.pulse)
	ca.ringer = ringing.NewService(ringing.Deps{
		Store:       ca.alarmStore,
		Flag:        ca.flag,
		Scheduler:   ca.scheduler,
		Sound:       ca.sound,
		Vibrator:    ca.vibrator,
		Presenter:   &presenter{ca: ca},
		Broadcaster: ca.bus,
		Grace:       time.Duration(ca.config.AutoStopGraceMillis) * time.Millisecond,
		Metrics:     ca.metrics,
		Logger:      logger,
	})

	ca.receiver = receiver.New(ca.alarmStore, ca.ringer, ca.scheduler, ca.metrics, logger)
	ca.waker.OnFire(func(id int) { ca.receiver.OnTrigger(id) })

	ca.manager = alarms.NewManager(ca.alarmStore, ca.scheduler, logger)
	return ca
}

// start recovers from an unclean exit, registers every enabled alarm once
// and brings up the background services
func (ca *ClockApp) start() {
	ca.ringer.Recover()

	ctx, cancel := context.WithCancel(context.Background())
	ca.cancel = cancel

	ca.connectSessionBus(ctx)

	sleep := power.NewSleepWatcher(ca.scheduler.RescheduleAllAlarms, ca.logger)
	ca.goBackground("sleep watcher", func() error { return sleep.Run(ctx) })

	ca.startMetricsServer(ctx)

	ca.scheduler.RescheduleAllAlarms()
	ca.waker.Start()

	if err := setupAutostart(ca.currentConfig().AutoStart, ca.logger); err != nil {
		ca.logger.Warn("failed to setup autostart", "error", err)
	}

	ca.setupSystemTray()

	if len(ca.manager.List()) == 0 {
		ca.showAlarmsWindow()
	}
}

func (ca *ClockApp) run() {
	ca.app.Lifecycle().SetOnStarted(platform.HideFromDock)
	ca.app.Lifecycle().SetOnStopped(ca.shutdown)
	ca.app.Run()
}

func (ca *ClockApp) quit() {
	ca.app.Quit()
}

// shutdown stops ringing and every background service. The active flag is
// cleared so the next start does not think an alarm is still ringing.
func (ca *ClockApp) shutdown() {
	ca.ringer.Shutdown()
	<-ca.waker.Stop().Done()

	if ca.cancel != nil {
		ca.cancel()
	}
	if err := ca.group.Wait(); err != nil {
		ca.logger.Debug("background services stopped", "error", err)
	}

	if ca.inhibitor != nil {
		if err := ca.inhibitor.Release(); err != nil {
			ca.logger.Debug("failed to release screensaver inhibit", "error", err)
		}
	}
	if ca.ipc != nil {
		if err := ca.ipc.Close(); err != nil {
			ca.logger.Debug("failed to release bus name", "error", err)
		}
	}
	if ca.session != nil {
		ca.session.Close()
	}
	ca.logger.Info("shut down")
}

// connectSessionBus exports the control API and prepares screensaver
// inhibition. Both are optional.
func (ca *ClockApp) connectSessionBus(ctx context.Context) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		ca.logger.Warn("session bus unavailable, remote control disabled", "error", err)
		return
	}
	ca.session = conn
	ca.inhibitor = power.NewInhibitor(conn, appDisplayName, ca.logger)

	svc := ipc.NewAlarmService(notifyingManager{Manager: ca.manager, changed: ca.alarmsChanged}, ca.ringer, ca.logger)
	server, err := ipc.Serve(conn, svc, ca.logger)
	if err != nil {
		ca.logger.Warn("failed to export control API", "error", err)
		return
	}
	ca.ipc = server
	ca.goBackground("ipc relay", func() error { return server.Relay(ctx, ca.bus) })
}

func (ca *ClockApp) startMetricsServer(ctx context.Context) {
	addr := ca.currentConfig().MetricsAddr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(ca.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ca.goBackground("metrics server", func() error {
		ca.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	ca.group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// goBackground runs fn on the errgroup and logs its failure right away
func (ca *ClockApp) goBackground(name string, fn func() error) {
	ca.group.Go(func() error {
		if err := fn(); err != nil {
			ca.logger.Warn("background service stopped", "service", name, "error", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

func (ca *ClockApp) currentConfig() models.Config {
	ca.cfgMu.RLock()
	defer ca.cfgMu.RUnlock()
	return *ca.config
}

// applyConfig persists cfg and applies what can change at runtime
func (ca *ClockApp) applyConfig(cfg *models.Config) error {
	cfg.Normalize()
	if err := setupAutostart(cfg.AutoStart, ca.logger); err != nil {
		return err
	}
	ca.configStore.Save(cfg)

	ca.cfgMu.Lock()
	ca.config = cfg
	ca.cfgMu.Unlock()

	ca.sound.SetPath(cfg.SoundPath)
	ca.logger.Info("settings saved")
	ca.alarmsChanged()
	return nil
}

// alarmsChanged refreshes every view of the alarm list
func (ca *ClockApp) alarmsChanged() {
	fyne.Do(func() {
		ca.updateSystemTrayMenu()
		if ca.alarmsWindow != nil {
			ca.alarmsWindow.refreshAlarms()
		}
	})
}

// pulse renders one vibration phase on the dismissal window
func (ca *ClockApp) pulse(on bool) {
	fyne.Do(func() {
		if ca.dismissWindow != nil {
			ca.dismissWindow.setPulse(on)
		}
	})
}

func (ca *ClockApp) showAlarmsWindow() {
	if ca.alarmsWindow != nil {
		ca.alarmsWindow.window.RequestFocus()
		ca.alarmsWindow.window.Show()
		return
	}

	cfg := ca.currentConfig()
	ca.alarmsWindow = NewAlarmsWindow(ca.app, ca.manager, ca.scheduler, &cfg, func(newConfig *models.Config) error {
		return ca.applyConfig(newConfig)
	})
	ca.alarmsWindow.onChanged = ca.alarmsChanged
	ca.alarmsWindow.window.SetOnClosed(func() {
		ca.alarmsWindow = nil
	})
	ca.alarmsWindow.Show()
}

// showDismissWindow opens the dismissal screen for the ringing alarm id,
// replacing a screen left over for another alarm
func (ca *ClockApp) showDismissWindow(id int) {
	if dw := ca.dismissWindow; dw != nil {
		if dw.AlarmID() == id {
			dw.Show()
			return
		}
		dw.Close()
	}

	cfg := ca.currentConfig()
	var dw *DismissWindow
	dw, err := NewDismissWindow(ca.app, id, DismissOptions{
		Store:    ca.alarmStore,
		Ringer:   ca.ringer,
		Bus:      ca.bus,
		Metrics:  ca.metrics,
		Config:   cfg,
		Logger:   ca.logger,
		OnClosed: func() {
			if ca.dismissWindow == dw {
				ca.dismissWindow = nil
			}
		},
	})
	if err != nil {
		ca.logger.Warn("dismissal screen not opened", "alarm_id", id, "error", err)
		return
	}
	ca.dismissWindow = dw
	dw.Show()
}

func (ca *ClockApp) closeDismissWindow() {
	if ca.dismissWindow != nil {
		ca.dismissWindow.Close()
	}
}

// notifyingManager refreshes the views after changes made over D-Bus
type notifyingManager struct {
	*alarms.Manager
	changed func()
}

func (m notifyingManager) Create(req alarms.Request) (models.Alarm, error) {
	alarm, err := m.Manager.Create(req)
	if err == nil {
		m.changed()
	}
	return alarm, err
}

func (m notifyingManager) Disarm(id int) bool {
	ok := m.Manager.Disarm(id)
	if ok {
		m.changed()
	}
	return ok
}
