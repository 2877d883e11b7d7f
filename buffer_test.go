package serialdiag

import (
	"errors"
	"testing"
)

func TestResponseBuffer_StartsZeroed(t *testing.T) {
	b, err := NewResponseBuffer(ResponseCapacity)
	if err != nil {
		t.Fatalf("NewResponseBuffer: %v", err)
	}
	if b.Cap() != ResponseCapacity || b.Len() != 0 {
		t.Fatalf("expected cap %d len 0, got cap %d len %d", ResponseCapacity, b.Cap(), b.Len())
	}
	for i, c := range b.Space() {
		if c != 0 {
			t.Fatalf("byte %d not zeroed: %#x", i, c)
		}
	}
	if b.String() != "" {
		t.Fatalf("expected empty string, got %q", b.String())
	}
}

func TestResponseBuffer_AdvanceIsClamped(t *testing.T) {
	b, _ := NewResponseBuffer(4)
	copy(b.Space(), "AB")
	b.Advance(2)
	if got := len(b.Space()); got != 2 {
		t.Fatalf("expected 2 bytes of space, got %d", got)
	}

	b.Advance(10)
	if b.Len() != 4 {
		t.Fatalf("advance past capacity must clamp, got len %d", b.Len())
	}
	if len(b.Space()) != 0 {
		t.Fatalf("full buffer must have no space, got %d", len(b.Space()))
	}

	b.Advance(-3)
	if b.Len() != 4 {
		t.Fatalf("negative advance must be ignored, got len %d", b.Len())
	}
}

func TestResponseBuffer_StringStopsAtNUL(t *testing.T) {
	b, _ := NewResponseBuffer(16)
	n := copy(b.Space(), "ACME\x00tail")
	b.Advance(n)

	if b.String() != "ACME" {
		t.Fatalf("expected %q, got %q", "ACME", b.String())
	}
	if string(b.Bytes()) != "ACME\x00tail" {
		t.Fatalf("Bytes must keep the full filled region, got %q", b.Bytes())
	}
}

func TestResponseBuffer_Reset(t *testing.T) {
	b, _ := NewResponseBuffer(8)
	b.Advance(copy(b.Space(), "12345678"))
	b.Reset()

	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after reset, got len %d", b.Len())
	}
	for i, c := range b.Space() {
		if c != 0 {
			t.Fatalf("byte %d not cleared: %#x", i, c)
		}
	}
}

func TestResponseBuffer_InvalidCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		want     error
	}{
		{0, ErrInvalidBuffer},
		{-1, ErrInvalidBuffer},
		{MaxBufferSize + 1, ErrBufferTooLarge},
	}
	for _, tt := range tests {
		if _, err := NewResponseBuffer(tt.capacity); !errors.Is(err, tt.want) {
			t.Fatalf("NewResponseBuffer(%d): expected %v, got %v", tt.capacity, tt.want, err)
		}
	}
}
