package cmd

import (
	"fmt"
	"sync"

	"caraudio/internal/hal"
	"caraudio/internal/platform"
	"caraudio/internal/routing"
	"caraudio/internal/tui"
)

// simApp is a simulated application that toggles its focus request.
type simApp struct {
	client   *platform.Client
	listener *platform.AppListener
	attrs    *platform.Attributes
	gain     platform.FocusChange
	holding  bool
}

func (a *simApp) toggle() string {
	if a.holding {
		res := a.client.AbandonFocus(a.listener)
		a.holding = false
		return fmt.Sprintf("%s abandons focus: %v", a.listener.Name, res)
	}
	res := a.client.RequestFocus(a.listener, a.attrs, a.gain, 0, false)
	a.holding = res == platform.RequestGranted
	return fmt.Sprintf("%s requests %v: %v", a.listener.Name, a.gain, res)
}

// SimulatorActions binds keys to the simulated vehicle and a few simulated
// applications on stack.
func SimulatorActions(sim *hal.Simulator, stack *platform.Stack) []tui.Action {
	app := func(name string, usage routing.Usage, gain platform.FocusChange) *simApp {
		return &simApp{
			client:   stack.Client(name),
			listener: &platform.AppListener{Name: name},
			attrs:    &platform.Attributes{Usage: usage},
			gain:     gain,
		}
	}
	media := app("media-player", routing.UsageMusic, platform.FocusGain)
	nav := app("navigation", routing.UsageNavigationGuidance, platform.FocusGainTransientMayDuck)
	phone := app("phone", routing.UsageVoiceCall, platform.FocusGainTransient)
	radio := app("radio", routing.UsageRadio, platform.FocusGain)

	var (
		mu           sync.Mutex
		externalHeld bool
		dropping     bool
		volume       int32
		streamOn     bool
	)

	return []tui.Action{
		tui.NewAction("m", "m", "media", media.toggle),
		tui.NewAction("n", "n", "nav", nav.toggle),
		tui.NewAction("p", "p", "call", phone.toggle),
		tui.NewAction("r", "r", "radio", radio.toggle),
		tui.NewAction("e", "e", "car source", func() string {
			mu.Lock()
			defer mu.Unlock()
			externalHeld = !externalHeld
			if externalHeld {
				sim.InjectExternalFocus(hal.FocusStateLoss, hal.ExtFocusPermanent)
				return "car source takes focus"
			}
			sim.InjectExternalFocus(hal.FocusStateLoss, hal.ExtFocusNone)
			return "car source hands focus back"
		}),
		tui.NewAction("d", "d", "drop replies", func() string {
			mu.Lock()
			defer mu.Unlock()
			dropping = !dropping
			sim.SetDropResponses(dropping)
			return fmt.Sprintf("vehicle drops replies: %t", dropping)
		}),
		tui.NewAction("+,=", "+", "volume", func() string {
			mu.Lock()
			defer mu.Unlock()
			volume = (volume + 5) % 45
			sim.SetVolume(0, volume)
			return fmt.Sprintf("stream 0 volume %d", volume)
		}),
		tui.NewAction("s", "s", "stream 0", func() string {
			mu.Lock()
			defer mu.Unlock()
			streamOn = !streamOn
			state := hal.StreamStateStopped
			if streamOn {
				state = hal.StreamStateStarted
			}
			sim.SetStreamStatus(0, state)
			return fmt.Sprintf("stream 0 started: %t", streamOn)
		}),
	}
}
