package order

import (
	"testing"
	"unsafe"
)

func TestRecordSizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(Record{}); got != 128 {
		t.Fatalf("sizeof(Record) = %d, want 128", got)
	}
}

func TestAuditEntrySizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(AuditEntry{}); got != 64 {
		t.Fatalf("sizeof(AuditEntry) = %d, want 64", got)
	}
}
