// SPDX-License-Identifier: MIT

// Package udp publishes the current bar heights as compact binary
// datagrams at a fixed rate, independent of the analysis rate.
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "spectrum/internal/log"
)

// HeightsSource is polled on every tick. visualizer.Visualizer satisfies it.
type HeightsSource interface {
	BarCount() int
	HeightsInto(dst []float64) error
}

// HeaderSize is the fixed part of a packet.
const HeaderSize = 4 + 8 + 2

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is a decoded datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64 // unix nanoseconds
	Heights   []float32
}

/*
UDP Packet Structure (BigEndian)

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |   Bar Count   |       Bar Heights       |
|      (uint32)     |   (int64, unix ns)    |   (uint16)    |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// AppendPacket encodes one packet onto dst.
func AppendPacket(dst []byte, seq uint32, timestamp int64, heights []float64) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(heights)))
	for _, h := range heights {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(h)))
	}
	return dst
}

// DecodePacket parses a datagram produced by AppendPacket.
func DecodePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(b))
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	count := int(binary.BigEndian.Uint16(b[12:14]))
	payload := b[HeaderSize:]
	if len(payload) < count*4 {
		return Packet{}, fmt.Errorf("%w: want %d heights, have %d bytes", ErrShortPacket, count, len(payload))
	}
	p.Heights = make([]float32, count)
	for i := range p.Heights {
		p.Heights[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[i*4:]))
	}
	return p, nil
}

// UDPPublisher periodically reads the bar heights, packs them and sends
// them with a UDPSender. It runs in its own goroutine between Start and
// Stop.
type UDPPublisher struct {
	sender   *UDPSender
	source   HeightsSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker and doneChan

	sequenceNum uint32

	// Reused on every tick.
	heights []float64
	packet  []byte
}

// NewUDPPublisher validates its collaborators. A non-positive interval
// defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender, source HeightsSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("UDPPublisher: heights source cannot be nil")
	}
	bars := source.BarCount()
	if bars < 1 || bars > math.MaxUint16 {
		return nil, fmt.Errorf("UDPPublisher: bar count %d does not fit a packet", bars)
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Bars: %d)", interval, bars)

	return &UDPPublisher{
		sender:   sender,
		source:   source,
		interval: interval,
		heights:  make([]float64, bars),
		packet:   make([]byte, 0, HeaderSize+4*bars),
	}, nil
}

// Start launches the publishing goroutine. Calling it while running is a
// no-op.
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

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine and waits for it. Safe to call repeatedly.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: stopped after %d packets", p.sequenceNum)
	return nil
}

// buildAndSendPacket runs on every tick.
func (p *UDPPublisher) buildAndSendPacket() {
	if err := p.source.HeightsInto(p.heights); err != nil {
		applog.Errorf("UDPPublisher: Error getting heights: %v", err)
		return
	}

	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, time.Now().UnixNano(), p.heights)

	if err := p.sender.Send(p.packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
	}
}

// Close stops the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
