package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeService struct {
	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
	errCh    chan error
}

func (f *fakeService) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeService) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeService) Errors() <-chan error {
	return f.errCh
}

func (f *fakeService) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started, f.stopped
}

func TestServiceHostStartStopOrder(t *testing.T) {
	host := NewServiceHost()

	var order []string
	var mu sync.Mutex
	record := func(name string) {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
	}

	for _, name := range []string{"first", "second"} {
		name := name
		svc := &orderedService{name: name, record: record}
		if err := host.Register(name, func(ctx context.Context) (Service, error) {
			return svc, nil
		}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if err := host.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := host.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"start first", "start second", "stop second", "stop first"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i, step := range want {
		if order[i] != step {
			t.Fatalf("step %d = %q, want %q (full order %v)", i, order[i], step, order)
		}
	}
}

type orderedService struct {
	name   string
	record func(string)
}

func (o *orderedService) Start(ctx context.Context) error {
	o.record("start " + o.name)
	return nil
}

func (o *orderedService) Shutdown(ctx context.Context) error {
	o.record("stop " + o.name)
	return nil
}

func TestServiceHostStartFailureRollsBack(t *testing.T) {
	host := NewServiceHost()

	good := &fakeService{}
	bad := &fakeService{startErr: errors.New("boom")}

	if err := host.Register("good", func(ctx context.Context) (Service, error) {
		return good, nil
	}); err != nil {
		t.Fatalf("register good: %v", err)
	}
	if err := host.Register("bad", func(ctx context.Context) (Service, error) {
		return bad, nil
	}); err != nil {
		t.Fatalf("register bad: %v", err)
	}

	if err := host.Start(context.Background()); err == nil {
		t.Fatal("expected start error")
	}

	if _, stopped := good.counts(); stopped != 1 {
		t.Fatalf("good service stopped %d times, want 1", stopped)
	}
}

func TestServiceHostRejectsDuplicateRegistration(t *testing.T) {
	host := NewServiceHost()
	factory := func(ctx context.Context) (Service, error) {
		return &fakeService{}, nil
	}
	if err := host.Register("svc", factory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := host.Register("svc", factory); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestServiceHostForwardsServiceErrors(t *testing.T) {
	host := NewServiceHost()
	svc := &fakeService{errCh: make(chan error, 1)}
	if err := host.Register("noisy", func(ctx context.Context) (Service, error) {
		return svc, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := host.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer host.Stop(context.Background())

	svc.errCh <- errors.New("failure")

	select {
	case err := <-host.Errors():
		if err == nil {
			t.Fatal("nil error forwarded")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded error")
	}
}
