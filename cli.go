package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/ical"
	"github.com/altrise/clockapp/pkg/ipc"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/altrise/clockapp/pkg/scheduler"
)

// remote is the running app as seen by the CLI
type remote interface {
	List() ([]models.Alarm, error)
	Add(req alarms.Request) (int, error)
	Delete(id int) error
	Stop() error
	Active() (int, bool, error)
	Close() error
}

func dialRemote() (remote, error) {
	c, err := ipc.Dial()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(dialRemote, runApp)
}

func newRootCmdWith(dial func() (remote, error), run func(*globalFlags) error) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Alarm clock with a puzzle to turn it off",
		Long: `Without a subcommand clockapp runs the tray application.
The subcommands control an instance that is already running.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flags.logDir, "log-dir", "", "directory for the JSON log file (default: app storage)")
	rootCmd.Flags().StringVar(&flags.rtcPath, "rtc", scheduler.DefaultRTCPath, "RTC wake alarm file used for exact wake-ups")

	withRemote := func(fn func(cmd *cobra.Command, args []string, r remote) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			r, err := dial()
			if err != nil {
				return err
			}
			defer r.Close()
			return fn(cmd, args, r)
		}
	}

	rootCmd.AddCommand(
		newListCmd(withRemote),
		newAddCmd(withRemote),
		newDeleteCmd(withRemote),
		newStopCmd(withRemote),
		newStatusCmd(withRemote),
		newExportCmd(withRemote),
		newImportCmd(withRemote),
	)
	return rootCmd
}

type remoteRunner func(fn func(cmd *cobra.Command, args []string, r remote) error) func(*cobra.Command, []string) error

func newListCmd(withRemote remoteRunner) *cobra.Command {
	var use12 bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List alarms",
		Args:    cobra.NoArgs,
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			list, err := r.List()
			if err != nil {
				return err
			}
			return printAlarms(cmd.OutOrStdout(), list, !use12)
		}),
	}
	cmd.Flags().BoolVar(&use12, "12h", false, "show times as 7:30 AM")
	return cmd
}

func newAddCmd(withRemote remoteRunner) *cobra.Command {
	var label, end string
	cmd := &cobra.Command{
		Use:   "add HH:MM",
		Short: "Add an alarm",
		Args:  cobra.ExactArgs(1),
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			req, err := parseAlarmRequest(args[0], label, end != "", end)
			if err != nil {
				return err
			}
			id, err := r.Add(req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d set for %s\n", id, models.FormatTimeOfDay(req.Hour, req.Minute, true))
			return nil
		}),
	}
	cmd.Flags().StringVar(&label, "label", "", "alarm label")
	cmd.Flags().StringVar(&end, "end", "", "stop automatically at HH:MM")
	return cmd
}

func newDeleteCmd(withRemote remoteRunner) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an alarm",
		Args:    cobra.ExactArgs(1),
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid alarm id %q", args[0])
			}
			if err := r.Delete(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d deleted\n", id)
			return nil
		}),
	}
}

func newStopCmd(withRemote remoteRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the ringing alarm without the puzzle",
		Args:  cobra.NoArgs,
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			if err := r.Stop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			return nil
		}),
	}
}

func newStatusCmd(withRemote remoteRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an alarm is ringing",
		Args:  cobra.NoArgs,
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			id, active, err := r.Active()
			if err != nil {
				return err
			}
			if active {
				fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d is ringing\n", id)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "No alarm is ringing")
			}
			return nil
		}),
	}
}

func newExportCmd(withRemote remoteRunner) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export enabled alarms as iCalendar",
		Args:  cobra.NoArgs,
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			list, err := r.List()
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return ical.Export(cmd.OutOrStdout(), list, time.Now())
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := ical.Export(f, list, time.Now()); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newImportCmd(withRemote remoteRunner) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE|URL",
		Short: "Add alarms for calendar events starting within the next day",
		Long: `Reads an iCalendar file, an http(s) feed or "-" for stdin and adds one
alarm per event that starts within the next 24 hours. Cancelled and all-day
events are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: withRemote(func(cmd *cobra.Command, args []string, r remote) error {
			result, err := readCalendar(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, req := range result.Requests {
				at := models.FormatTimeOfDay(req.Hour, req.Minute, true)
				if dryRun {
					fmt.Fprintf(out, "Would set %s %s\n", at, req.Label)
					continue
				}
				id, err := r.Add(req)
				if err != nil {
					return fmt.Errorf("add %s: %w", at, err)
				}
				fmt.Fprintf(out, "Alarm %d set for %s %s\n", id, at, req.Label)
			}
			fmt.Fprintf(out, "%d events imported, %d skipped\n", len(result.Requests), result.Skipped.Total())
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the alarms without adding them")
	return cmd
}

func readCalendar(cmd *cobra.Command, source string) (*ical.ImportResult, error) {
	im := &ical.Importer{}
	switch {
	case source == "-":
		return im.Import(cmd.InOrStdin(), time.Now())
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		body, err := im.Fetch(cmd.Context(), source)
		if err != nil {
			return nil, err
		}
		return im.Import(bytes.NewReader(body), time.Now())
	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return im.Import(f, time.Now())
	}
}

// parseAlarmRequest turns the add form or command line into a request
func parseAlarmRequest(at, label string, hasEnd bool, end string) (alarms.Request, error) {
	hour, minute, err := models.ParseTimeOfDay(strings.TrimSpace(at))
	if err != nil {
		return alarms.Request{}, err
	}
	req := alarms.Request{
		Hour:   hour,
		Minute: minute,
		Label:  strings.TrimSpace(label),
	}
	if hasEnd {
		endHour, endMinute, err := models.ParseTimeOfDay(strings.TrimSpace(end))
		if err != nil {
			return alarms.Request{}, fmt.Errorf("end: %w", err)
		}
		req.HasEndTime = true
		req.EndHour = endHour
		req.EndMinute = endMinute
	}
	return req, nil
}

func printAlarms(w io.Writer, list []models.Alarm, use24Hour bool) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No alarms")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tEND\tENABLED\tLABEL")
	for _, a := range list {
		end := "-"
		if a.HasEndTime {
			end = models.FormatTimeOfDay(a.EndHourOfDay, a.EndMinute, use24Hour)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", a.ID, a.TimeOfDay(use24Hour), end, a.IsEnabled, a.Label)
	}
	return tw.Flush()
}
