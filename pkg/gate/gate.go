// Package gate is the dismissal screen's state machine: the only normal way
// out of a ringing alarm is solving an arithmetic puzzle, while the auto-stop
// signal closes the screen whatever the puzzle state.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/altrise/clockapp/pkg/events"
	"github.com/altrise/clockapp/pkg/logging"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
)

var (
	// ErrAlarmNotFound is returned when opening the gate for an unknown alarm
	ErrAlarmNotFound = errors.New("alarm not found")
	// ErrNotSolved is returned when dismissing before the puzzle is solved
	ErrNotSolved = errors.New("puzzle not solved")
)

// BackHint is shown when the user tries to leave without solving
const BackHint = "Solve the puzzle to dismiss!"

// State of the gate
type State int

const (
	Unsolved State = iota
	Solved
	Closed
)

func (s State) String() string {
	switch s {
	case Unsolved:
		return "unsolved"
	case Solved:
		return "solved"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// AlarmStore is the part of the alarm store the gate uses
type AlarmStore interface {
	GetAlarm(id int) (models.Alarm, bool)
	DeleteAlarm(id int)
}

// Dismisser stops a ringing alarm
type Dismisser interface {
	Dismiss(id int)
}

// Subscriber delivers auto-stop events
type Subscriber interface {
	Subscribe(buffer int) (<-chan events.AutoStopped, func())
}

// Deps are the collaborators of a Gate
type Deps struct {
	Store   AlarmStore
	Ringer  Dismisser
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Options tune a Gate
type Options struct {
	// Ceiling bounds the puzzle answer; zero means DefaultCeiling
	Ceiling int
	// Rand drives puzzle generation; nil means a random seed
	Rand *rand.Rand
	// OnClose runs once when the gate closes
	OnClose func()
}

// Gate guards the dismissal of one ringing alarm
type Gate struct {
	mu      sync.Mutex
	alarm   models.Alarm
	puzzle  Puzzle
	state   State
	deps    Deps
	onClose func()
	closed  chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// Open creates a gate for alarm id with a fresh puzzle
func Open(id int, deps Deps, opts Options) (*Gate, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid id %d", ErrAlarmNotFound, id)
	}
	alarm, ok := deps.Store.GetAlarm(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAlarmNotFound, id)
	}

	g := &Gate{
		alarm:   alarm,
		puzzle:  NewPuzzle(opts.Rand, opts.Ceiling),
		deps:    deps,
		onClose: opts.OnClose,
		closed:  make(chan struct{}),
		logger:  logging.OrDefault(deps.Logger).With("component", "gate", "alarm_id", id),
	}
	g.logger.Debug("dismissal gate opened", "puzzle", g.puzzle.Question())
	return g, nil
}

// Alarm returns the alarm being dismissed
func (g *Gate) Alarm() models.Alarm {
	return g.alarm
}

// Puzzle returns the challenge
func (g *Gate) Puzzle() Puzzle {
	return g.puzzle
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Check submits an answer. A wrong answer leaves the gate Unsolved with no
// lockout; once Solved every check succeeds.
func (g *Gate) Check(input string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Solved:
		return true
	case Closed:
		return false
	}

	correct := g.puzzle.Accepts(input)
	g.deps.Metrics.PuzzleAnswered(correct)
	if !correct {
		g.logger.Debug("wrong puzzle answer")
		return false
	}
	g.state = Solved
	g.logger.Info("puzzle solved")
	return true
}

// Dismiss stops the ringing alarm, deletes it and closes the gate
func (g *Gate) Dismiss() error {
	g.mu.Lock()
	if g.state != Solved {
		g.mu.Unlock()
		return ErrNotSolved
	}
	g.state = Closed
	g.mu.Unlock()

	g.deps.Ringer.Dismiss(g.alarm.ID)
	g.deps.Store.DeleteAlarm(g.alarm.ID)
	g.logger.Info("alarm dismissed")
	g.close()
	return nil
}

// AutoStop handles the auto-stop signal for id. Zero matches any alarm.
func (g *Gate) AutoStop(id int) {
	if id != 0 && id != g.alarm.ID {
		return
	}

	g.mu.Lock()
	if g.state == Closed {
		g.mu.Unlock()
		return
	}
	g.state = Closed
	g.mu.Unlock()

	g.deps.Store.DeleteAlarm(g.alarm.ID)
	g.logger.Info("gate closed by auto-stop")
	g.close()
}

// Back handles a request to leave the screen; the gate stays open
func (g *Gate) Back() string {
	return BackHint
}

// Listen closes the gate on a matching auto-stop event. It returns when ctx
// is done or the gate closes.
func (g *Gate) Listen(ctx context.Context, bus Subscriber) {
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.closed:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			g.AutoStop(ev.AlarmID)
		}
	}
}

// Done is closed once the gate closes
func (g *Gate) Done() <-chan struct{} {
	return g.closed
}

func (g *Gate) close() {
	g.once.Do(func() {
		close(g.closed)
		if g.onClose != nil {
			g.onClose()
		}
	})
}
