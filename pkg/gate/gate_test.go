package gate

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/altrise/clockapp/pkg/events"
	"github.com/altrise/clockapp/pkg/metrics"
	"github.com/altrise/clockapp/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu     sync.Mutex
	alarms map[int]models.Alarm
}

func (s *memStore) GetAlarm(id int) (models.Alarm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alarms[id]
	return a, ok
}

func (s *memStore) DeleteAlarm(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alarms, id)
}

type dismissLog struct {
	mu  sync.Mutex
	ids []int
}

func (d *dismissLog) Dismiss(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
}

func openGate(t *testing.T, closes *int) (*Gate, *memStore, *dismissLog, *metrics.Metrics) {
	t.Helper()
	store := &memStore{alarms: map[int]models.Alarm{7: models.NewAlarm(7, 7, 0, "")}}
	ringer := &dismissLog{}
	m := metrics.New(prometheus.NewRegistry())
	g, err := Open(7, Deps{Store: store, Ringer: ringer, Metrics: m}, Options{
		Rand:    rand.New(rand.NewPCG(1, 2)),
		OnClose: func() { *closes++ },
	})
	require.NoError(t, err)
	return g, store, ringer, m
}

func wrongAnswer(p Puzzle) string {
	return strconv.Itoa(p.Answer() + 1)
}

func TestOpen_InvalidOrMissing(t *testing.T) {
	store := &memStore{alarms: map[int]models.Alarm{}}

	_, err := Open(0, Deps{Store: store}, Options{})
	assert.ErrorIs(t, err, ErrAlarmNotFound)

	_, err = Open(-1, Deps{Store: store}, Options{})
	assert.ErrorIs(t, err, ErrAlarmNotFound)

	_, err = Open(3, Deps{Store: store}, Options{})
	assert.ErrorIs(t, err, ErrAlarmNotFound)
}

func TestGate_WrongThenRightThenDismiss(t *testing.T) {
	closes := 0
	g, store, ringer, m := openGate(t, &closes)
	assert.Equal(t, Unsolved, g.State())

	assert.False(t, g.Check(wrongAnswer(g.Puzzle())))
	assert.False(t, g.Check("abc"))
	assert.Equal(t, Unsolved, g.State())
	assert.ErrorIs(t, g.Dismiss(), ErrNotSolved)

	assert.True(t, g.Check(" "+strconv.Itoa(g.Puzzle().Answer())+"\n"))
	assert.Equal(t, Solved, g.State())
	assert.True(t, g.Check("anything"), "checking after solved is a no-op")

	require.NoError(t, g.Dismiss())
	assert.Equal(t, Closed, g.State())
	assert.Equal(t, []int{7}, ringer.ids)
	_, ok := store.GetAlarm(7)
	assert.False(t, ok)
	assert.Equal(t, 1, closes)

	select {
	case <-g.Done():
	default:
		t.Fatal("gate not done after dismiss")
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PuzzleAttempts.WithLabelValues("incorrect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PuzzleAttempts.WithLabelValues("correct")))
}

func TestGate_AutoStopOverridesPuzzle(t *testing.T) {
	closes := 0
	g, store, ringer, _ := openGate(t, &closes)

	g.AutoStop(8)
	assert.Equal(t, Unsolved, g.State(), "other alarm ignored")

	g.AutoStop(7)
	assert.Equal(t, Closed, g.State())
	_, ok := store.GetAlarm(7)
	assert.False(t, ok)
	assert.Empty(t, ringer.ids)

	g.AutoStop(7)
	assert.Equal(t, 1, closes)
	assert.ErrorIs(t, g.Dismiss(), ErrNotSolved)
}

func TestGate_AutoStopWhenSolved(t *testing.T) {
	closes := 0
	g, _, _, _ := openGate(t, &closes)
	require.True(t, g.Check(strconv.Itoa(g.Puzzle().Answer())))

	g.AutoStop(0)
	assert.Equal(t, Closed, g.State())
	assert.Equal(t, 1, closes)
}

func TestGate_BackNeverCloses(t *testing.T) {
	closes := 0
	g, _, _, _ := openGate(t, &closes)

	assert.Equal(t, "Solve the puzzle to dismiss!", g.Back())
	assert.Equal(t, Unsolved, g.State())
	assert.Zero(t, closes)
}

func TestGate_ListenClosesOnBroadcast(t *testing.T) {
	closes := 0
	g, _, _, _ := openGate(t, &closes)
	bus := events.NewBus()

	done := make(chan struct{})
	go func() {
		g.Listen(context.Background(), bus)
		close(done)
	}()
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	bus.AutoStopped(7)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not return")
	}
	assert.Equal(t, Closed, g.State())
	assert.Zero(t, bus.Subscribers())
}

func TestGate_ListenStopsOnContext(t *testing.T) {
	closes := 0
	g, _, _, _ := openGate(t, &closes)
	bus := events.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Listen(ctx, bus)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not return")
	}
	assert.Equal(t, Unsolved, g.State())
}

func TestPuzzle_ResultsWithinCeiling(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	ops := map[Op]int{}

	for _, ceiling := range []int{1, 10, DefaultCeiling, 200} {
		for i := 0; i < 2000; i++ {
			p := NewPuzzle(r, ceiling)
			ops[p.Op]++
			assert.GreaterOrEqual(t, p.Answer(), 0)
			assert.LessOrEqual(t, p.Answer(), ceiling)
			assert.True(t, p.Accepts(strconv.Itoa(p.Answer())))
		}
	}
	assert.InDelta(t, ops[Add], ops[Sub], 600, "operators are picked uniformly")
}

func TestPuzzle_DefaultsAndRendering(t *testing.T) {
	p := NewPuzzle(nil, 0)
	assert.LessOrEqual(t, p.Answer(), DefaultCeiling)

	assert.Equal(t, "3 + 4 = ?", Puzzle{A: 3, B: 4, Op: Add}.Question())
	assert.Equal(t, "9 - 4 = ?", Puzzle{A: 9, B: 4, Op: Sub}.Question())
	assert.False(t, Puzzle{A: 9, B: 4, Op: Sub}.Accepts("5.0"))
	assert.True(t, Puzzle{A: 9, B: 4, Op: Sub}.Accepts("\t5 "))
}
