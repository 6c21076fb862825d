package parallel

import (
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWork = 0

	var counter int64
	n := 1000

	For(n, 1, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_DisjointWrites(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinWork: 0}

	out := make([]int, 37)
	For(len(out), 1, func(i int) {
		out[i] = i * i
	}, cfg)

	for i, v := range out {
		if v != i*i {
			t.Errorf("out[%d] = %d, want %d", i, v, i*i)
		}
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(5, 1<<20, func(i int) {
		order = append(order, i)
	}, Sequential())

	for i, v := range order {
		if v != i {
			t.Fatalf("sequential order broken at %d: %v", i, order)
		}
	}
}

func TestFor_SmallWorkStaysInline(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinWork: 1000}

	var order []int
	For(10, 10, func(i int) {
		order = append(order, i)
	}, cfg)

	if len(order) != 10 || order[9] != 9 {
		t.Errorf("expected inline execution, got %v", order)
	}
}
