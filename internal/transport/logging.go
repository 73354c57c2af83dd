package transport

import (
	"caraudio/internal/audio"
	applog "caraudio/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("LOG_TRANSPORT: %T %+v", data, data)
	return nil // Logging transport never fails to "send"
}

// OnFocusSnapshot logs every arbiter snapshot.
func (lt *LoggingTransport) OnFocusSnapshot(s audio.Snapshot) {
	_ = lt.Send(s.FocusState())
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interfaces at compile time.
var (
	_ Transport           = (*LoggingTransport)(nil)
	_ audio.FocusObserver = (*LoggingTransport)(nil)
)
