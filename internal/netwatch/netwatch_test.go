package netwatch

import (
	"testing"
	"time"
)

func TestManualNotifiesOnTransitionsOnly(t *testing.T) {
	w := NewManual(false)
	sub := w.Subscribe()

	w.SetOnline(false) // no transition
	w.SetOnline(true)
	w.SetOnline(true) // no transition
	w.SetOnline(false)

	for _, want := range []bool{true, false} {
		select {
		case got := <-sub:
			if got != want {
				t.Fatalf("transition = %v, want %v", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing transition %v", want)
		}
	}

	select {
	case got := <-sub:
		t.Fatalf("unexpected extra transition %v", got)
	default:
	}
}

func TestManualOnlineFlag(t *testing.T) {
	w := NewManual(true)
	if !w.Online() {
		t.Fatal("expected initial online")
	}
	w.SetOnline(false)
	if w.Online() {
		t.Fatal("expected offline after SetOnline(false)")
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	w := NewManual(false)
	w.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			w.SetOnline(i%2 == 0)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
