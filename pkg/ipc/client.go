package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/godbus/dbus/v5"
)

// ErrNotRunning is returned when no app instance owns the bus name
var ErrNotRunning = errors.New("clockapp is not running")

// Client calls a running app instance
type Client struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to the session bus
func Dial() (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn: conn,
		obj:  conn.Object(ServiceName, dbus.ObjectPath(ObjectPath)),
	}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// List returns all alarms
func (c *Client) List() ([]models.Alarm, error) {
	var payload string
	if err := c.call("List").Store(&payload); err != nil {
		return nil, mapError(err)
	}

	var list []models.Alarm
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, fmt.Errorf("decode alarm list: %w", err)
	}
	return list, nil
}

// Add creates an alarm and returns its id
func (c *Client) Add(req alarms.Request) (int, error) {
	var id int32
	err := c.call("Add",
		int32(req.Hour), int32(req.Minute), req.Label,
		req.HasEndTime, int32(req.EndHour), int32(req.EndMinute),
	).Store(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return int(id), nil
}

// Delete removes an alarm
func (c *Client) Delete(id int) error {
	return mapError(c.call("Delete", int32(id)).Err)
}

// Stop dismisses the ringing alarm
func (c *Client) Stop() error {
	return mapError(c.call("Stop").Err)
}

// Active returns the ringing alarm id
func (c *Client) Active() (int, bool, error) {
	var (
		id     int32
		active bool
	)
	if err := c.call("Active").Store(&id, &active); err != nil {
		return 0, false, mapError(err)
	}
	return int(id), active, nil
}

func (c *Client) call(method string, args ...interface{}) *dbus.Call {
	return c.obj.Call(InterfaceName+"."+method, 0, args...)
}

// mapError turns D-Bus error names back into package sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var name string
	var body []interface{}
	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
		name, body = dbusErr.Name, dbusErr.Body
	case errors.As(err, &dbusErrPtr):
		name, body = dbusErrPtr.Name, dbusErrPtr.Body
	default:
		return err
	}

	msg := name
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			msg = s
		}
	}

	switch name {
	case ErrorNotFound:
		return fmt.Errorf("%w: %s", alarms.ErrNotFound, msg)
	case ErrorInvalidAlarm:
		return fmt.Errorf("%w: %s", models.ErrInvalidAlarm, msg)
	case "org.freedesktop.DBus.Error.ServiceUnknown", "org.freedesktop.DBus.Error.NameHasNoOwner":
		return ErrNotRunning
	default:
		return err
	}
}
