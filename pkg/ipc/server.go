package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/altrise/clockapp/pkg/alarms"
	"github.com/altrise/clockapp/pkg/events"
	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Manager is the alarm facade the API drives
type Manager interface {
	List() []models.Alarm
	Create(req alarms.Request) (models.Alarm, error)
	Disarm(id int) bool
}

// Ringer is the ringing service as seen by the API
type Ringer interface {
	Stop()
	ActiveAlarm() (int, bool)
}

// AlarmService is the exported D-Bus object. Its exported methods are the
// interface's methods.
type AlarmService struct {
	manager Manager
	ringer  Ringer
	logger  *slog.Logger
}

// NewAlarmService creates the exported object
func NewAlarmService(manager Manager, ringer Ringer, logger *slog.Logger) *AlarmService {
	return &AlarmService{
		manager: manager,
		ringer:  ringer,
		logger:  logging.OrDefault(logger).With("component", "ipc"),
	}
}

// List returns all alarms as a JSON array in the persisted layout
func (s *AlarmService) List() (string, *dbus.Error) {
	data, err := json.Marshal(s.manager.List())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// Add creates and schedules an alarm and returns its id
func (s *AlarmService) Add(hour, minute int32, label string, hasEnd bool, endHour, endMinute int32) (int32, *dbus.Error) {
	alarm, err := s.manager.Create(alarms.Request{
		Hour:       int(hour),
		Minute:     int(minute),
		Label:      label,
		HasEndTime: hasEnd,
		EndHour:    int(endHour),
		EndMinute:  int(endMinute),
	})
	if errors.Is(err, models.ErrInvalidAlarm) {
		return 0, dbus.NewError(ErrorInvalidAlarm, []interface{}{err.Error()})
	}
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	s.logger.Info("alarm added over D-Bus", "alarm_id", alarm.ID)
	return int32(alarm.ID), nil
}

// Delete cancels and removes an alarm
func (s *AlarmService) Delete(id int32) *dbus.Error {
	if !s.manager.Disarm(int(id)) {
		return dbus.NewError(ErrorNotFound, []interface{}{fmt.Sprintf("alarm %d not found", id)})
	}
	s.logger.Info("alarm deleted over D-Bus", "alarm_id", id)
	return nil
}

// Stop dismisses the ringing alarm without the puzzle. Like a dismissal on
// screen it removes the alarm, whose wake-up has already been used.
func (s *AlarmService) Stop() *dbus.Error {
	id, ok := s.ringer.ActiveAlarm()
	s.ringer.Stop()
	if ok {
		s.manager.Disarm(id)
		s.logger.Info("ringing alarm stopped remotely", "alarm_id", id)
	}
	return nil
}

// Active returns the ringing alarm id
func (s *AlarmService) Active() (int32, bool, *dbus.Error) {
	id, ok := s.ringer.ActiveAlarm()
	return int32(id), ok, nil
}

// Emitter sends D-Bus signals
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// Server owns the bus name and relays auto-stop events as signals
type Server struct {
	conn   *dbus.Conn
	emit   Emitter
	logger *slog.Logger
}

// Serve claims ServiceName on conn and exports svc. It fails when another
// instance already owns the name.
func Serve(conn *dbus.Conn, svc *AlarmService, logger *slog.Logger) (*Server, error) {
	reply, err := conn.RequestName(ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return nil, fmt.Errorf("failed to request name: %s already owned", ServiceName)
	}

	if err := conn.Export(svc, dbus.ObjectPath(ObjectPath), InterfaceName); err != nil {
		return nil, fmt.Errorf("failed to export interface: %w", err)
	}

	node := &introspect.Node{
		Name: ObjectPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    InterfaceName,
				Methods: introspect.Methods(svc),
				Signals: []introspect.Signal{{
					Name: "AutoStopped",
					Args: []introspect.Arg{{Name: "id", Type: "i"}},
				}},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), dbus.ObjectPath(ObjectPath), "org.freedesktop.DBus.Introspectable"); err != nil {
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	return &Server{
		conn:   conn,
		emit:   conn,
		logger: logging.OrDefault(logger).With("component", "ipc"),
	}, nil
}

// AutoStopped emits the AutoStopped signal
func (s *Server) AutoStopped(id int) {
	if err := s.emit.Emit(dbus.ObjectPath(ObjectPath), SignalAutoStopped, int32(id)); err != nil {
		s.logger.Warn("failed to emit AutoStopped", "alarm_id", id, "error", err)
	}
}

// Subscriber delivers auto-stop events
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.AutoStopped, func())
}

// Relay emits a signal for every auto-stop event until ctx is done
func (s *Server) Relay(ctx context.Context, bus Subscriber) error {
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.AutoStopped(ev.AlarmID)
		}
	}
}

// Close releases the bus name
func (s *Server) Close() error {
	if _, err := s.conn.ReleaseName(ServiceName); err != nil {
		return err
	}
	return nil
}
