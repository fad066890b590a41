package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorkerSubmitRunsInOrder(t *testing.T) {
	w := New(0, nil)
	defer w.Close()

	var order []int
	futs := make([]*Future, 5)
	for i := 0; i < 5; i++ {
		i := i
		futs[i] = w.Submit(func(h int) (any, error) {
			order = append(order, i)
			return i, nil
		})
	}

	ctx := context.Background()
	for i, f := range futs {
		v, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
		if v.(int) != i {
			t.Errorf("job %d returned %v", i, v)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("jobs ran out of order: %v", order)
		}
	}
}

func TestWorkerPanicRecovered(t *testing.T) {
	w := New("handle", nil)
	defer w.Close()

	f := w.Submit(func(h string) (any, error) {
		panic("boom")
	})
	_, err := f.Wait(context.Background())
	if err == nil {
		t.Fatal("expected error from panicking job")
	}

	// worker must still be alive after a panic
	f2 := w.Submit(func(h string) (any, error) {
		return h, nil
	})
	v, err := f2.Wait(context.Background())
	if err != nil || v.(string) != "handle" {
		t.Fatalf("worker did not survive panic: v=%v err=%v", v, err)
	}
}

func TestWorkerTeardownOnClose(t *testing.T) {
	torn := make(chan struct{})
	w := New(1, func(h int) { close(torn) })
	w.Close()

	select {
	case <-torn:
	case <-time.After(time.Second):
		t.Fatal("teardown was not called")
	}
}

func TestWorkerSubmitAfterCloseFails(t *testing.T) {
	w := New(1, nil)
	w.Close()

	f := w.Submit(func(h int) (any, error) { return nil, nil })
	_, err := f.Wait(context.Background())
	if !errors.Is(err, errWorkerClosed) {
		t.Fatalf("expected errWorkerClosed, got %v", err)
	}
}

func TestFutureWaitRespectsContext(t *testing.T) {
	w := New(1, nil)
	defer w.Close()

	release := make(chan struct{})
	f := w.Submit(func(h int) (any, error) {
		<-release
		return h, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	close(release)
}
