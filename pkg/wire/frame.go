// Package wire defines the fixed binary layouts exchanged at the edges of
// the core: the 64-byte ingress frame read off the market-data feed, and the
// type tags that select how its payload is interpreted.
//
// RawFrame is the only structure in the module that claims exact wire
// compatibility with an external format. Everything downstream of the feed
// handler works with Go-native records instead.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MessageType tags the payload carried by a RawFrame.
type MessageType uint32

const (
	MessageInvalid   MessageType = 0
	MessageTick      MessageType = 1
	MessageTrade     MessageType = 2
	MessageHeartbeat MessageType = 3
)

// FrameSize is the fixed, contractual size of a RawFrame on the wire.
const FrameSize = 64

// payloadSize is the width of the payload region, offset 24..56.
const payloadSize = 32

// RawFrame is the 64-byte little-endian frame read from the exchange feed.
//
//	offset  size  field
//	0       8     sequence number
//	8       8     exchange timestamp (ns)
//	16      4     message type
//	20      4     instrument id (1..6)
//	24      32    payload
//	56      2     checksum
//	58      6     padding, must be zero
type RawFrame struct {
	Sequence     uint64
	ExchangeTSNs uint64
	Type         MessageType
	InstrumentID uint32
	Payload      [payloadSize]byte
	Checksum     uint16
	_            [6]byte
}

// TickPayload decodes the Tick-shaped interpretation of a frame's payload:
// bid price, ask price (f64 LE), bid size, ask size (u64 LE).
type TickPayload struct {
	BidPrice float64
	AskPrice float64
	BidSize  uint64
	AskSize  uint64
}

// TradePayload decodes the Trade-shaped interpretation of a frame's payload:
// trade price (f64 LE), trade size (u64 LE), 16-byte ASCII trade id.
type TradePayload struct {
	Price   float64
	Size    uint64
	TradeID [16]byte
}

// Encode serializes the frame into a freshly computed checksum and returns
// the 64-byte wire representation.
func (f *RawFrame) Encode() [FrameSize]byte {
	var buf [FrameSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], f.Sequence)
	binary.LittleEndian.PutUint64(buf[8:16], f.ExchangeTSNs)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(f.Type))
	binary.LittleEndian.PutUint32(buf[20:24], f.InstrumentID)
	copy(buf[24:56], f.Payload[:])
	f.Checksum = computeChecksum(buf[:56])
	binary.LittleEndian.PutUint16(buf[56:58], f.Checksum)
	return buf
}

// DecodeRawFrame parses a 64-byte wire buffer into a RawFrame. It does not
// validate the checksum; callers run that check explicitly so that a
// mismatch can be counted rather than treated as a parse failure.
func DecodeRawFrame(buf []byte) (RawFrame, error) {
	if len(buf) != FrameSize {
		return RawFrame{}, fmt.Errorf("wire: frame must be %d bytes, got %d", FrameSize, len(buf))
	}
	var f RawFrame
	f.Sequence = binary.LittleEndian.Uint64(buf[0:8])
	f.ExchangeTSNs = binary.LittleEndian.Uint64(buf[8:16])
	f.Type = MessageType(binary.LittleEndian.Uint32(buf[16:20]))
	f.InstrumentID = binary.LittleEndian.Uint32(buf[20:24])
	copy(f.Payload[:], buf[24:56])
	f.Checksum = binary.LittleEndian.Uint16(buf[56:58])
	return f, nil
}

// computeChecksum XORs each byte of b into the low byte of a 16-bit
// accumulator, matching the writer's checksum algorithm.
func computeChecksum(b []byte) uint16 {
	var acc uint16
	for _, c := range b {
		acc ^= uint16(c)
	}
	return acc
}

// VerifyChecksum reports whether the frame's stored checksum matches the
// bytes preceding it.
func (f *RawFrame) VerifyChecksum(raw []byte) bool {
	if len(raw) < 56 {
		return false
	}
	return computeChecksum(raw[:56]) == f.Checksum
}

// DecodeTick interprets the frame's payload as a TickPayload.
func DecodeTick(payload [payloadSize]byte) TickPayload {
	return TickPayload{
		BidPrice: decodeF64(payload[0:8]),
		AskPrice: decodeF64(payload[8:16]),
		BidSize:  binary.LittleEndian.Uint64(payload[16:24]),
		AskSize:  binary.LittleEndian.Uint64(payload[24:32]),
	}
}

// DecodeTrade interprets the frame's payload as a TradePayload.
func DecodeTrade(payload [payloadSize]byte) TradePayload {
	var tp TradePayload
	tp.Price = decodeF64(payload[0:8])
	tp.Size = binary.LittleEndian.Uint64(payload[8:16])
	copy(tp.TradeID[:], payload[16:32])
	return tp
}

// EncodeTickPayload writes a TickPayload into a fresh payload buffer.
func EncodeTickPayload(t TickPayload) [payloadSize]byte {
	var p [payloadSize]byte
	encodeF64(p[0:8], t.BidPrice)
	encodeF64(p[8:16], t.AskPrice)
	binary.LittleEndian.PutUint64(p[16:24], t.BidSize)
	binary.LittleEndian.PutUint64(p[24:32], t.AskSize)
	return p
}

// EncodeTradePayload writes a TradePayload into a fresh payload buffer.
func EncodeTradePayload(t TradePayload) [payloadSize]byte {
	var p [payloadSize]byte
	encodeF64(p[0:8], t.Price)
	binary.LittleEndian.PutUint64(p[8:16], t.Size)
	copy(p[16:32], t.TradeID[:])
	return p
}

func decodeF64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func encodeF64(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
