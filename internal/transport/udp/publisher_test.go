package udp

import (
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caraudio/internal/audio"
	"caraudio/internal/hal"
	"caraudio/internal/monitoring"
)

type staticSource audio.Snapshot

func (s staticSource) Snapshot() audio.Snapshot { return audio.Snapshot(s) }

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPublisherSendsStatusPackets(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()

	m := monitoring.NewMetrics()
	src := staticSource{
		State:         hal.FocusStateGainTransient,
		Streams:       0x3,
		ExternalFocus: hal.ExtFocusPlayOnly,
		Contexts:      hal.ContextNavigation | hal.ContextRadio,
		RadioActive:   true,
	}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender, src, m)
	require.NoError(t, err)
	pub.Start()
	pub.Start()
	defer pub.Close()

	buf := make([]byte, 64)
	var prev uint32
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := conn.ReadFromUDP(buf)
		require.NoError(t, err)

		pkt, err := DecodePacket(buf[:n])
		require.NoError(t, err)
		assert.Greater(t, pkt.Sequence, prev)
		prev = pkt.Sequence
		assert.Equal(t, int32(hal.FocusStateGainTransient), pkt.State)
		assert.Equal(t, uint32(0x3), pkt.Streams)
		assert.Equal(t, uint32(hal.ExtFocusPlayOnly), pkt.ExternalFocus)
		assert.Equal(t, hal.ContextNavigation|hal.ContextRadio, pkt.Contexts)
		assert.Equal(t, FlagRadioActive, pkt.Flags)
		assert.NotZero(t, pkt.Timestamp)
	}

	require.NoError(t, pub.Stop())
	require.NoError(t, pub.Stop())
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.UDPPackets), 2.0)

	st := sender.Stats()
	assert.Equal(t, float64(st.Packets), testutil.ToFloat64(m.UDPPackets))
	assert.Equal(t, st.Packets*PacketSize, st.Bytes)
	assert.Zero(t, st.Errors)
}

func TestNewUDPPublisherValidation(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()

	tests := []struct {
		name   string
		sender *UDPSender
		source Snapshotter
	}{
		{"nil sender", nil, staticSource{}},
		{"nil source", sender, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUDPPublisher(time.Millisecond, tt.sender, tt.source, nil)
			assert.Error(t, err)
		})
	}

	pub, err := NewUDPPublisher(0, sender, staticSource{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, pub.interval)
}

func TestDecodePacketRejectsShortInput(t *testing.T) {
	_, err := DecodePacket(make([]byte, PacketSize-1))
	assert.Error(t, err)
}

func TestSenderRoundTrip(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()
	assert.Equal(t, conn.LocalAddr().String(), sender.Target().String())

	want := Packet{
		Sequence:      7,
		Timestamp:     42,
		State:         int32(hal.FocusStateLossTransientExclusive),
		Streams:       0x2,
		ExternalFocus: uint32(hal.ExtFocusTransient),
		Contexts:      hal.ContextCall,
		Flags:         FlagCallActive,
	}
	require.NoError(t, sender.Send(want))

	buf := make([]byte, 64)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, PacketSize, n)
	got, err := DecodePacket(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, SenderStats{Packets: 1, Bytes: PacketSize}, sender.Stats())
}

func TestSenderClosed(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	require.NoError(t, err)
	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.Send(Packet{}), ErrSenderClosed)
}
