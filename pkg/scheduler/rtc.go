package scheduler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultRTCPath is the wakealarm attribute of the first real-time clock
const DefaultRTCPath = "/sys/class/rtc/rtc0/wakealarm"

// RTCWakeAlarm arms the kernel RTC wake alarm through sysfs. It is both the
// WakeAlarm behind exact registrations and the Capability deciding whether
// they are allowed.
type RTCWakeAlarm struct {
	path string
}

// NewRTCWakeAlarm creates an RTCWakeAlarm for the given sysfs attribute
func NewRTCWakeAlarm(path string) *RTCWakeAlarm {
	if path == "" {
		path = DefaultRTCPath
	}
	return &RTCWakeAlarm{path: path}
}

// CanScheduleExact reports whether the wakealarm attribute is writable
func (r *RTCWakeAlarm) CanScheduleExact() bool {
	return unix.Access(r.path, unix.W_OK) == nil
}

// PermissionHint explains how to allow exact wake-ups
func (r *RTCWakeAlarm) PermissionHint() string {
	return fmt.Sprintf("Alarms can only wake this machine from suspend when %s is writable by your user. "+
		"Add a udev rule granting write access, for example:\n"+
		`  ACTION=="add", SUBSYSTEM=="rtc", RUN+="/bin/chgrp wheel /sys%%p/wakealarm", RUN+="/bin/chmod g+w /sys%%p/wakealarm"`,
		r.path)
}

// Arm sets the wake alarm. The attribute rejects a new value while one is
// set, so it is cleared first.
func (r *RTCWakeAlarm) Arm(at time.Time) error {
	if err := r.write("0"); err != nil {
		return err
	}
	return r.write(strconv.FormatInt(at.Unix(), 10))
}

// Disarm clears the wake alarm
func (r *RTCWakeAlarm) Disarm() error {
	return r.write("0")
}

func (r *RTCWakeAlarm) write(value string) error {
	err := writeExisting(r.path, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrExactDenied, err)
	default:
		return fmt.Errorf("write %s: %w", r.path, err)
	}
}

// writeExisting writes to a file without creating it
func writeExisting(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
