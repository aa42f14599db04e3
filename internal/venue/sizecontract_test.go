package venue

import (
	"testing"
	"unsafe"
)

func TestResponseSizeContract(t *testing.T) {
	t.Parallel()
	if got := unsafe.Sizeof(Response{}); got != 64 {
		t.Fatalf("sizeof(Response) = %d, want 64", got)
	}
}
