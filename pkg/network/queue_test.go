package network

import (
	"io"
	"sync"
	"testing"
)

func TestSerialQueueRunsInOrder(t *testing.T) {
	q := newSerialQueue(newTestLogger(io.Discard))

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		q.submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestSerialQueueReentrantSubmit(t *testing.T) {
	q := newSerialQueue(newTestLogger(io.Discard))

	done := make(chan struct{})
	var order []string
	q.submit(func() {
		order = append(order, "outer")
		q.submit(func() {
			order = append(order, "inner")
			close(done)
		})
		order = append(order, "outer-end")
	})
	<-done

	want := []string{"outer", "outer-end", "inner"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSerialQueueSurvivesPanic(t *testing.T) {
	buf := &syncBuffer{}
	q := newSerialQueue(newTestLogger(buf))

	done := make(chan struct{})
	q.submit(func() { panic("boom") })
	q.submit(func() { close(done) })
	<-done

	if got := buf.String(); got == "" {
		t.Error("expected the panic to be logged")
	}
}
