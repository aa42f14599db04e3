package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	payload := EncodeTickPayload(TickPayload{
		BidPrice: 99.5,
		AskPrice: 99.515625,
		BidSize:  10,
		AskSize:  12,
	})
	f := RawFrame{
		Sequence:     1,
		ExchangeTSNs: 123456789,
		Type:         MessageTick,
		InstrumentID: 3,
		Payload:      payload,
	}

	buf := f.Encode()
	got, err := DecodeRawFrame(buf[:])
	if err != nil {
		t.Fatalf("DecodeRawFrame: %v", err)
	}
	if got.Sequence != f.Sequence || got.Type != f.Type || got.InstrumentID != f.InstrumentID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.VerifyChecksum(buf[:]) {
		t.Fatal("checksum should verify after round trip")
	}

	tp := DecodeTick(got.Payload)
	if tp.BidPrice != 99.5 || tp.BidSize != 10 || tp.AskSize != 12 {
		t.Fatalf("decoded tick payload mismatch: %+v", tp)
	}
}

func TestDecodeRawFrameWrongSize(t *testing.T) {
	t.Parallel()
	if _, err := DecodeRawFrame(make([]byte, 10)); err == nil {
		t.Fatal("expected error for undersized buffer")
	}
}

func TestVerifyChecksumDetectsCorruption(t *testing.T) {
	t.Parallel()
	f := RawFrame{Sequence: 42, Type: MessageHeartbeat}
	buf := f.Encode()
	buf[0] ^= 0xFF // corrupt a byte within the checksummed region
	got, _ := DecodeRawFrame(buf[:])
	if got.VerifyChecksum(buf[:]) {
		t.Fatal("checksum should not verify after corruption")
	}
}
