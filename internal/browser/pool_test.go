package browser

import (
	"context"
	"testing"
)

func TestNewPool_ClampsSize(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, defaultPoolSize},
		{-1, defaultPoolSize},
		{2, 2},
		{100, hardCapPoolSize},
	}
	for _, tc := range cases {
		p := NewPool("", tc.in, nil)
		if p.maxSize != tc.want {
			t.Fatalf("NewPool(%d): got maxSize %d, want %d", tc.in, p.maxSize, tc.want)
		}
	}
}

func TestAcquire_RejectsUnsupportedEngine(t *testing.T) {
	p := NewPool("", 1, nil)
	_, err := p.Acquire(context.Background(), EngineFirefox)
	if err == nil {
		t.Fatal("expected error for unsupported engine")
	}
}

func TestPool_SizeStartsAtZero(t *testing.T) {
	p := NewPool("", 3, nil)
	if p.Size() != 0 {
		t.Fatalf("expected empty pool, got size %d", p.Size())
	}
}
