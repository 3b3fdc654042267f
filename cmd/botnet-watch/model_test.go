package main

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
	"github.com/dd0wney/cluso-botnetsim/pkg/stream"
)

type fakeReceiver struct {
	msgs []stream.Message
	err  error
}

func (f *fakeReceiver) Recv(ctx context.Context) (stream.Message, error) {
	if len(f.msgs) == 0 {
		if f.err != nil {
			return stream.Message{}, f.err
		}
		return stream.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func TestWaitForMessage(t *testing.T) {
	ev := propagation.TickEvent{RunID: "r", Tick: 0, Infected: 2}
	done := stream.RunDone{RunID: "r", Ticks: 1}
	r := &fakeReceiver{msgs: []stream.Message{{Tick: &ev}, {Done: &done}, {}}}
	ctx := context.Background()

	assert.Equal(t, tickEventMsg(ev), waitForMessage(ctx, r)())
	assert.Equal(t, runDoneMsg(done), waitForMessage(ctx, r)())
	assert.IsType(t, streamErrMsg{}, waitForMessage(ctx, r)())

	msg := waitForMessage(ctx, r)()
	require.IsType(t, streamErrMsg{}, msg)
	assert.ErrorIs(t, msg.(streamErrMsg).err, context.Canceled)
}

func TestModel_TicksAndDone(t *testing.T) {
	m := initialModel(context.Background(), &fakeReceiver{}, "inproc://x")

	m, cmd := update(t, m, tickEventMsg{RunID: "a", Tick: 0, Nodes: 10, Infected: 1})
	assert.NotNil(t, cmd)
	m, _ = update(t, m, tickEventMsg{RunID: "a", Tick: 1, Nodes: 10, Infected: 4, NewInfections: 3})
	require.Len(t, m.events, 2)
	assert.Equal(t, "a", m.runID)
	assert.Len(t, m.tickTable.Rows(), 2)
	assert.Equal(t, "0.400", m.tickTable.Rows()[1][4])

	m, _ = update(t, m, runDoneMsg{RunID: "a", Ticks: 2, FinalInfected: 5, Success: true})
	require.NotNil(t, m.done)
	assert.Contains(t, m.View(), "finished after 2 ticks")

	// a tick from another run resets the view
	m, _ = update(t, m, tickEventMsg{RunID: "b", Tick: 0, Nodes: 10, Infected: 2})
	assert.Equal(t, "b", m.runID)
	assert.Len(t, m.events, 1)
	assert.Nil(t, m.done)
}

func TestModel_Errors(t *testing.T) {
	m := initialModel(context.Background(), &fakeReceiver{}, "inproc://x")

	m, cmd := update(t, m, streamErrMsg{err: errors.New("bad frame")})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "bad frame")

	_, cmd = update(t, m, streamErrMsg{err: context.Canceled})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_Keys(t *testing.T) {
	m := initialModel(context.Background(), &fakeReceiver{}, "inproc://x")
	assert.Contains(t, m.View(), "No ticks received yet")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ticksView, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, timelineView, m.currentView)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}
