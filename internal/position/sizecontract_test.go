package position

import (
	"testing"
	"unsafe"
)

func TestVenuePositionSizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(VenuePosition{}); got != 64 {
		t.Fatalf("sizeof(VenuePosition) = %d, want 64", got)
	}
}

func TestSettlementInstructionSizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(SettlementInstruction{}); got != 64 {
		t.Fatalf("sizeof(SettlementInstruction) = %d, want 64", got)
	}
}

func TestPositionBreakSizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(PositionBreak{}); got != 128 {
		t.Fatalf("sizeof(PositionBreak) = %d, want 128", got)
	}
}

func TestHistoryEntrySizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(HistoryEntry{}); got != 64 {
		t.Fatalf("sizeof(HistoryEntry) = %d, want 64", got)
	}
}
