package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caraudio/internal/hal"
	"caraudio/internal/platform"
	"caraudio/internal/tui"
)

func findAction(t *testing.T, actions []tui.Action, k string) tui.Action {
	t.Helper()
	for _, a := range actions {
		for _, bound := range a.Binding.Keys() {
			if bound == k {
				return a
			}
		}
	}
	t.Fatalf("no action bound to %q", k)
	return tui.Action{}
}

func TestSimulatorActions(t *testing.T) {
	sim := hal.NewSimulator(hal.SimulatorConfig{FocusSupported: true, AvailableStreams: 0x3})
	sim.Start()
	defer sim.Close()
	stack := platform.NewStack()
	stack.Start()
	defer stack.Close()

	actions := SimulatorActions(sim, stack)

	media := findAction(t, actions, "m")
	assert.Contains(t, media.Run(), "media-player requests")
	top, ok := stack.Top()
	require.True(t, ok)
	assert.Equal(t, "media-player", top.PackageName)

	nav := findAction(t, actions, "n")
	nav.Run()
	top, _ = stack.Top()
	assert.Equal(t, "navigation", top.PackageName)

	assert.Contains(t, nav.Run(), "navigation abandons")
	top, _ = stack.Top()
	assert.Equal(t, "media-player", top.PackageName)

	assert.Contains(t, findAction(t, actions, "d").Run(), "true")
	assert.Contains(t, findAction(t, actions, "d").Run(), "false")

	findAction(t, actions, "+").Run()
	assert.Eventually(t, func() bool { return sim.Volume(0) == 5 }, time.Second, time.Millisecond)

	assert.Equal(t, "car source takes focus", findAction(t, actions, "e").Run())
	assert.Equal(t, "car source hands focus back", findAction(t, actions, "e").Run())
}
