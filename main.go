package main

import (
	"fmt"
	"os"

	"fyne.io/fyne/v2/app"

	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// runApp runs the tray application until the user quits
func runApp(flags *globalFlags) error {
	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return err
	}

	a := app.NewWithID(appID)

	logDir := flags.logDir
	if logDir == "" && a.Storage().RootURI() != nil {
		logDir = a.Storage().RootURI().Path()
	}
	logger := logging.New(logging.Config{
		Level:   level,
		Dir:     logDir,
		Service: appName,
	})
	defer logger.Close()

	ca := newClockApp(a, logger.Logger, flags.rtcPath)
	ca.start()
	ca.logger.Info("started", "alarms", len(ca.manager.List()), "exact", ca.scheduler.CanScheduleExact())
	ca.run()
	return nil
}

type globalFlags struct {
	logLevel string
	logDir   string
	rtcPath  string
}

func (f *globalFlags) validate() error {
	if _, err := logging.ParseLevel(f.logLevel); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	if f.rtcPath == "" {
		f.rtcPath = scheduler.DefaultRTCPath
	}
	return nil
}
