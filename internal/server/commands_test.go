package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatrace/trackdash/internal/dispatcher"
	"github.com/seatrace/trackdash/internal/playback"
	"github.com/seatrace/trackdash/internal/session"
)

func TestClampSpeed(t *testing.T) {
	tests := []struct {
		speed, want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{30, 30},
		{60, 60},
		{61, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampSpeed(tt.speed, 1, 60), "speed %d", tt.speed)
	}
	assert.Equal(t, 500, ClampSpeed(500, 0, 0), "no upper bound when unset")
}

func TestCommands_TickRecordsFrames(t *testing.T) {
	f := newFixture(t)
	running := f.registry.Create()
	f.registry.Create()
	running.Toggle()

	n, err := f.commands.tick(dispatcher.Event{Command: dispatcher.CmdTick, Timestamp: t0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{running.ID()}, f.telemetry.frames)

	frame, ok := running.Frame()
	require.True(t, ok)
	assert.Equal(t, 1, frame.Tick)
}

func TestCommands_TickEvictsIdleSessions(t *testing.T) {
	f := newFixture(t, func(d *session.Defaults) { d.IdleTimeout = time.Nanosecond })
	for i := 0; i < 5; i++ {
		f.registry.Create()
	}
	require.Eventually(t, func() bool {
		_, err := f.commands.tick(dispatcher.Event{Command: dispatcher.CmdTick, Timestamp: t0})
		assert.NoError(t, err)
		return f.registry.Len() == 0
	}, time.Second, time.Millisecond)
}

func TestCommands_TickThroughDispatcher(t *testing.T) {
	f := newFixture(t)
	sess := f.registry.Create()
	sess.Toggle()

	require.Eventually(t, func() bool {
		_, _ = f.server.deps.Dispatcher.Dispatch(dispatcher.Event{Command: dispatcher.CmdTick})
		return sess.Status().Tick >= 1
	}, 2*time.Second, time.Millisecond)
}

func TestCommands_ArgumentErrors(t *testing.T) {
	f := newFixture(t)
	id := f.registry.Create().ID()

	_, err := f.commands.speed(dispatcher.Event{Session: id})
	assert.ErrorIs(t, err, ErrInvalidArgs)

	_, err = f.commands.crossFilter(dispatcher.Event{Args: []string{"ship_type"}})
	assert.ErrorIs(t, err, ErrInvalidArgs)

	frame, err := f.commands.vessels(dispatcher.Event{Session: id})
	require.NoError(t, err)
	assert.Len(t, frame.(playback.Frame).Overlays, 1, "empty selection keeps the previous frame")
}
