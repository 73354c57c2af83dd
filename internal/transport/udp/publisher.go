// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	"caraudio/internal/audio"
	applog "caraudio/internal/log"
	"caraudio/internal/monitoring"
)

// Snapshotter returns the current arbiter state.
type Snapshotter interface {
	Snapshot() audio.Snapshot
}

// UDPPublisher periodically samples the arbiter state, packs it into a fixed
// binary layout and sends it over UDP using a UDPSender. It runs in a
// separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *UDPSender
	source   Snapshotter
	interval time.Duration
	metrics  *monitoring.Metrics

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 100ms.
// metrics may be nil.
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source Snapshotter, metrics *monitoring.Metrics) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: snapshot source cannot be nil")
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:   sender,
		source:   source,
		interval: interval,
		metrics:  metrics,
	}, nil
}

// Start begins the periodic publishing. Calling Start on a running publisher
// is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture for the goroutine to avoid racing on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// buildAndSendPacket samples the arbiter and sends one packet.
func (p *UDPPublisher) buildAndSendPacket() {
	s := p.source.Snapshot()

	p.sequenceNum++
	pkt := Packet{
		Sequence:      p.sequenceNum,
		Timestamp:     time.Now().UnixNano(),
		State:         int32(s.State),
		Streams:       s.Streams,
		ExternalFocus: uint32(s.ExternalFocus),
		Contexts:      s.Contexts,
	}
	if s.RadioActive {
		pkt.Flags |= FlagRadioActive
	}
	if s.CallActive {
		pkt.Flags |= FlagCallActive
	}

	if err := p.sender.Send(pkt); err != nil {
		applog.Warnf("UDPPublisher: %v", err)
		return
	}
	if p.metrics != nil {
		p.metrics.UDPPackets.Inc()
	}
	applog.Debugf("UDPPublisher: Sent packet %d", p.sequenceNum)
}

// Close stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
