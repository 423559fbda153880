package handle

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestUpdateVisibleToAllHolders(t *testing.T) {
	h := New([]byte("old"))
	other := h // second holder, same handle

	if err := h.Update(func(v *[]byte) { *v = []byte("new") }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := other.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if string(got) != "new" {
		t.Fatalf("mutation not visible through second holder: %q", got)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	h := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.View(func(int) {})
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if err := h.Update(func(v *int) { *v++ }); err != nil {
			t.Errorf("Update: %v", err)
		}
	}
	wg.Wait()
	got, err := h.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got != 100 {
		t.Fatalf("lost updates: got %d, want 100", got)
	}
}

func TestPanicPoisons(t *testing.T) {
	h := New("fine")

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("panic should propagate out of Update")
			}
		}()
		_ = h.Update(func(*string) { panic("mid-mutation crash") })
	}()

	if !h.Poisoned() {
		t.Fatalf("handle should be poisoned after writer panic")
	}
	if _, err := h.Value(); !errors.Is(err, ErrPoisoned) {
		t.Fatalf("Value on poisoned handle: %v", err)
	}
	if err := h.View(func(string) {}); !errors.Is(err, ErrPoisoned) {
		t.Fatalf("View on poisoned handle: %v", err)
	}
	if err := h.Update(func(*string) {}); !errors.Is(err, ErrPoisoned) {
		t.Fatalf("Update on poisoned handle: %v", err)
	}
	if _, err := h.EncodeWith(func(string) ([]byte, error) { return nil, nil }); !errors.Is(err, ErrPoisoned) {
		t.Fatalf("EncodeWith on poisoned handle: %v", err)
	}
}

func TestEncodeWithPanicPoisons(t *testing.T) {
	h := New(1)
	func() {
		defer func() { _ = recover() }()
		_, _ = h.EncodeWith(func(int) ([]byte, error) { panic("encoder crash") })
	}()
	if !h.Poisoned() {
		t.Fatalf("handle should be poisoned after encoder panic")
	}
}

type sprintEncoder struct{}

func (sprintEncoder) Encode(v any) ([]byte, error) { return []byte(fmt.Sprint(v)), nil }

func TestEncodeLocked(t *testing.T) {
	h := New(42)
	b, err := h.EncodeLocked(sprintEncoder{})
	if err != nil {
		t.Fatalf("EncodeLocked: %v", err)
	}
	if string(b) != "42" {
		t.Fatalf("EncodeLocked bytes: %q", b)
	}

	// Locked interface is what the facade consumes.
	var lv Locked = h
	if _, err := lv.EncodeLocked(sprintEncoder{}); err != nil {
		t.Fatalf("Locked.EncodeLocked: %v", err)
	}
}
