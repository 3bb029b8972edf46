package utils

import (
	"reflect"
	"testing"
)

func TestRingBufferKeepsInsertionOrder(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 2; i++ {
		rb.Append(i)
	}
	if got := rb.GetAll(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("GetAll() = %v", got)
	}
	if rb.IsFull() {
		t.Fatal("buffer should not be full")
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 3; i++ {
		if _, evicted := rb.Append(i); evicted {
			t.Fatalf("unexpected eviction at %d", i)
		}
	}
	old, evicted := rb.Append(4)
	if !evicted || old != 1 {
		t.Fatalf("Append(4) evicted (%d, %v), want (1, true)", old, evicted)
	}
	if got := rb.GetAll(); !reflect.DeepEqual(got, []int{2, 3, 4}) {
		t.Fatalf("GetAll() = %v", got)
	}
	if rb.Size() != 3 || rb.Capacity() != 3 {
		t.Fatalf("Size=%d Capacity=%d", rb.Size(), rb.Capacity())
	}
}

func TestRingBufferGetLatest(t *testing.T) {
	rb := NewRingBuffer[int](4)
	for i := 1; i <= 6; i++ {
		rb.Append(i)
	}
	cases := []struct {
		n    int
		want []int
	}{
		{0, []int{}},
		{1, []int{6}},
		{2, []int{5, 6}},
		{10, []int{3, 4, 5, 6}},
	}
	for _, tc := range cases {
		if got := rb.GetLatest(tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("GetLatest(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
	if v, ok := rb.Newest(); !ok || v != 6 {
		t.Errorf("Newest() = %d, %v", v, ok)
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer[string](2)
	rb.Append("a")
	rb.Clear()
	if rb.Size() != 0 {
		t.Fatalf("Size after Clear = %d", rb.Size())
	}
	if _, ok := rb.Newest(); ok {
		t.Fatal("Newest on empty buffer should report false")
	}
}

func TestRingBufferDefaultCapacity(t *testing.T) {
	if c := NewRingBuffer[int](0).Capacity(); c != 1000 {
		t.Fatalf("Capacity = %d, want 1000", c)
	}
}
