package queue

import (
	"testing"

	"github.com/drampim/dram-pim/internal/command"
)

func TestGetBatch_SizeBuckets(t *testing.T) {
	tests := []struct {
		name       string
		requestCap int
		expectCap  int
	}{
		{"small bucket - exact", sizeSmall, sizeSmall},
		{"small bucket - smaller", 10, sizeSmall},
		{"medium bucket - exact", sizeMedium, sizeMedium},
		{"medium bucket - smaller", 40, sizeMedium},
		{"large bucket - exact", sizeLarge, sizeLarge},
		{"large bucket - smaller", 100, sizeLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := GetBatch(tt.requestCap)
			if len(batch) != 0 {
				t.Errorf("GetBatch(%d) returned len=%d, want 0", tt.requestCap, len(batch))
			}
			if cap(batch) != tt.expectCap {
				t.Errorf("GetBatch(%d) returned cap=%d, want %d", tt.requestCap, cap(batch), tt.expectCap)
			}
			PutBatch(batch)
		})
	}
}

func TestBatchPool_Reuse(t *testing.T) {
	batch1 := GetBatch(sizeSmall)
	batch1 = append(batch1, command.Command{Kind: command.READ})
	ptr1 := &batch1[:1][0]
	PutBatch(batch1)

	batch2 := GetBatch(sizeSmall)
	batch2 = append(batch2, command.Command{Kind: command.WRITE})
	ptr2 := &batch2[:1][0]
	PutBatch(batch2)

	if ptr1 == ptr2 {
		t.Log("batch backing array was successfully reused from pool")
	} else {
		t.Log("batch was not reused (sync.Pool GC behavior)")
	}
}

func TestPutBatch_NonStandardCap(t *testing.T) {
	batch := make([]command.Command, 0, 200)
	PutBatch(batch)
}

func BenchmarkGetBatch_Small(b *testing.B) {
	for i := 0; i < b.N; i++ {
		batch := GetBatch(sizeSmall)
		PutBatch(batch)
	}
}

func BenchmarkGetBatch_Large(b *testing.B) {
	for i := 0; i < b.N; i++ {
		batch := GetBatch(sizeLarge)
		PutBatch(batch)
	}
}

func BenchmarkMakeBatch_Small(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = make([]command.Command, 0, sizeSmall)
	}
}
