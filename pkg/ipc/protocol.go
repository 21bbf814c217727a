// Package ipc exposes the running app on the D-Bus session bus: a small
// control API used by the CLI and the AutoStopped signal other processes
// can listen for.
package ipc

const (
	ObjectPath    = "/io/altrise/ClockApp"
	InterfaceName = "io.altrise.ClockApp"
	ServiceName   = "io.altrise.ClockApp"

	// SignalAutoStopped carries the id of an alarm stopped by its end time
	SignalAutoStopped = InterfaceName + ".AutoStopped"

	ErrorNotFound     = InterfaceName + ".Error.NotFound"
	ErrorInvalidAlarm = InterfaceName + ".Error.InvalidAlarm"
)
