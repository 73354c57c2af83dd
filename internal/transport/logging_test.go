package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"caraudio/internal/audio"
	"caraudio/internal/hal"
)

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	assert.NoError(t, lt.Send("anything"))
	assert.NotPanics(t, func() {
		lt.OnFocusSnapshot(audio.Snapshot{State: hal.FocusStateLoss})
	})
	assert.NoError(t, lt.Close())
}
