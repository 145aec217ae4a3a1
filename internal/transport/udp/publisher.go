// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"pocket/internal/log"
	"pocket/internal/note"
	"pocket/internal/tuner"
)

// PacketSize is the length of every reading packet.
const PacketSize = 19

// DefaultInterval is used when a non-positive interval is configured.
const DefaultInterval = 33 * time.Millisecond

var ErrShortPacket = errors.New("packet shorter than 19 bytes")

// ReadingSource supplies the reading to publish on each tick.
type ReadingSource interface {
	Latest() tuner.Reading
}

// PacketSender delivers one datagram.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

// Publisher periodically packs the latest reading into a fixed binary packet
// and sends it. It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   PacketSender
	source   ReadingSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum uint32
	packet      []byte // Reused for every send.
}

// NewPublisher creates a Publisher. A non-positive interval selects
// DefaultInterval.
func NewPublisher(interval time.Duration, sender PacketSender, source ReadingSource) (*Publisher, error) {
	if sender == nil {
		return nil, errors.New("UDPPublisher: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("UDPPublisher: reading source cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		packet:   make([]byte, 0, PacketSize),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// Publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})

	// Local copies so the goroutine never reads the fields Stop clears.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("UDPPublisher: Publishing every %s", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Calling Stop on a
// stopped Publisher is a no-op.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: Stopped after %d packets", p.sequenceNum)
	return nil
}

// Close stops publishing and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

/*
Packet Structure (BigEndian), 19 bytes

|<-- 4 -->|<------ 8 ------>|<- 1 ->|<- 1 ->|<- 1 ->|<-- 4 -->|
+---------+-----------------+-------+-------+-------+---------+
|   Seq   |    Timestamp    |  Det  | MIDI  | Cents |   Hz    |
| uint32  | int64 unix nano | uint8 | uint8 | int8  | float32 |
+---------+-----------------+-------+-------+-------+---------+

Det is 1 when a pitch was detected. MIDI, Cents and Hz are zero otherwise.
*/

// Packet is the decoded form of a reading packet.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Detected  bool
	MIDI      uint8
	Cents     int8
	Frequency float32
}

// AppendPacket appends the encoding of r with sequence number seq to dst.
func AppendPacket(dst []byte, seq uint32, r tuner.Reading) []byte {
	var ts int64
	if !r.Time.IsZero() {
		ts = r.Time.UnixNano()
	}

	var det, midi uint8
	var cents int8
	var hz float32
	if r.Detected {
		det = 1
		midi = uint8(r.Label.MIDI)
		cents = int8(max(-128, min(127, r.Label.Cents)))
		hz = float32(r.Frequency)
	}

	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts))
	dst = append(dst, det, midi, byte(cents))
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(hz))
}

// DecodePacket parses a packet produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < PacketSize {
		return Packet{}, fmt.Errorf("%w: %d", ErrShortPacket, len(b))
	}
	return Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
		Detected:  b[12] == 1,
		MIDI:      b[13],
		Cents:     int8(b[14]),
		Frequency: math.Float32frombits(binary.BigEndian.Uint32(b[15:19])),
	}, nil
}

// Label returns the note the packet describes.
func (pk Packet) Label() (note.Label, bool) {
	if !pk.Detected {
		return note.Label{}, false
	}
	label, err := note.MIDILabel(int(pk.MIDI))
	if err != nil {
		return note.Label{}, false
	}
	label.Cents = int(pk.Cents)
	return label, true
}

func (p *Publisher) publish() {
	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, p.source.Latest())

	if err := p.sender.Send(p.packet); err != nil {
		log.Warnf("UDPPublisher: Error sending packet %d: %v", p.sequenceNum, err)
		return
	}
	log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
}

var _ interface{ Close() error } = (*Publisher)(nil)
