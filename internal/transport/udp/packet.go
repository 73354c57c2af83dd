// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Flag bits of the packet flags byte.
const (
	FlagRadioActive uint8 = 1 << 0
	FlagCallActive  uint8 = 1 << 1
)

// PacketSize is the encoded size of one status packet.
const PacketSize = 4 + 8 + 4 + 4 + 4 + 4 + 1

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Focus State       | int32          | 4            | Vehicle focus state     |
| Streams           | uint32         | 4            | Granted stream bitmask  |
| External Focus    | uint32         | 4            | External focus flags    |
| Audio Contexts    | uint32         | 4            | Last requested contexts |
| Flags             | uint8          | 1            | bit0 radio, bit1 call   |
+-----------------------------------------------------------------------------+

Visual Layout:

|<- 4 ->|<--- 8 --->|<- 4 ->|<- 4 ->|<- 4 ->|<- 4 ->|<1>|
+-------+-----------+-------+-------+-------+-------+---+
|  Seq  | Timestamp | State |Streams|  Ext  |  Ctx  | F |
+-------+-----------+-------+-------+-------+-------+---+
*/

// Packet is one status datagram.
type Packet struct {
	Sequence      uint32
	Timestamp     int64
	State         int32
	Streams       uint32
	ExternalFocus uint32
	Contexts      uint32
	Flags         uint8
}

func (p Packet) encode(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, p); err != nil {
		return fmt.Errorf("failed to encode packet %d: %w", p.Sequence, err)
	}
	return nil
}

// DecodePacket parses a datagram produced by UDPPublisher.
func DecodePacket(b []byte) (Packet, error) {
	var pkt Packet
	if len(b) != PacketSize {
		return pkt, fmt.Errorf("bad packet size %d, want %d", len(b), PacketSize)
	}
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &pkt); err != nil {
		return pkt, fmt.Errorf("failed to decode packet: %w", err)
	}
	return pkt, nil
}
