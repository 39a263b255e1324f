package runtime

import (
	"testing"
	"time"
)

func TestLifecycleShutdownReleasesWaiters(t *testing.T) {
	l := NewLifecycle()

	select {
	case <-l.Done():
		t.Fatal("Done closed before Shutdown")
	default:
	}

	released := make(chan struct{})
	go func() {
		<-l.Done()
		close(released)
	}()

	l.Shutdown()

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released after Shutdown")
	}
}

func TestLifecycleShutdownIsIdempotent(t *testing.T) {
	l := NewLifecycle()
	l.Shutdown()
	l.Shutdown() // second call must not panic on a closed channel

	select {
	case <-l.Done():
	default:
		t.Fatal("Done still open after Shutdown")
	}
}
