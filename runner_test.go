package spisim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestRunnerMockClock(t *testing.T) {
	bus := wireUp(t, 0, Mode0, MSBFirst, false)
	r, err := NewRunner(bus, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	mock := clock.NewMock()
	r.WithClock(mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Advance simulated time; sleeps give the runner goroutine a chance to
	// install its ticker and drain it.
	for i := 0; i < 50; i++ {
		mock.Add(time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v; expected context.Canceled", err)
	}
	if bus.Ticks() == 0 {
		t.Fatal("runner never ticked the bus")
	}
}

func TestRunnerRejectsBadPeriod(t *testing.T) {
	bus := wireUp(t, 0, Mode0, MSBFirst, false)
	if _, err := NewRunner(bus, 0); err == nil {
		t.Error("zero period accepted")
	}
	if _, err := NewRunner(bus, -time.Second); err == nil {
		t.Error("negative period accepted")
	}
}
