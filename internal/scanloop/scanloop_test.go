package scanloop

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRunFiresAndStops(t *testing.T) {
	var fired atomic.Int32
	stopCh := make(chan struct{})
	done := make(chan struct{})

	go func() {
		Run(stopCh, time.Millisecond, 0, func() { fired.Add(1) })
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fired.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("sweep did not fire")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(stopCh)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stop")
	}
}

func TestRunStopsBeforeFirstFire(t *testing.T) {
	var fired atomic.Int32
	stopCh := make(chan struct{})
	close(stopCh)

	done := make(chan struct{})
	go func() {
		Run(stopCh, time.Hour, 0, func() { fired.Add(1) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if fired.Load() != 0 {
		t.Fatalf("fired = %d, want 0", fired.Load())
	}
}
