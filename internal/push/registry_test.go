package push

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	mu   sync.Mutex
	msgs [][]byte
	fail bool
}

func (f *fakeConn) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}

	r.Register(a, 1)
	r.Register(b, 1)
	r.Register(a, 1)

	if !r.IsConnected(1) {
		t.Fatal("expected user 1 to be connected")
	}
	if got := r.Connections(); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}

	r.Unregister(a, 1)
	if !r.IsConnected(1) {
		t.Error("user 1 still has one channel")
	}
	r.Unregister(b, 1)
	if r.IsConnected(1) {
		t.Error("user 1 should be disconnected")
	}
	if got := r.Connections(); got != 0 {
		t.Errorf("expected 0 connections, got %d", got)
	}

	// Unknown user and unknown conn are no-ops
	r.Unregister(a, 99)
	r.Unregister(&fakeConn{}, 1)
}

func TestDeliverAllChannels(t *testing.T) {
	r := NewRegistry()
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Register(a, 1)
	r.Register(b, 1)
	r.Register(other, 2)

	if n := r.Deliver([]byte(`{"type":"notification"}`), 1); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("expected one frame on each channel, got %d and %d", a.count(), b.count())
	}
	if other.count() != 0 {
		t.Error("other user must not receive the frame")
	}
}

func TestDeliverNoChannels(t *testing.T) {
	r := NewRegistry()
	if n := r.Deliver([]byte("x"), 7); n != 0 {
		t.Errorf("expected no deliveries, got %d", n)
	}
	if r.IsConnected(7) {
		t.Error("deliver must not create entries")
	}
}

func TestDeliverEvictsFailingChannel(t *testing.T) {
	r := NewRegistry()
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	r.Register(good, 1)
	r.Register(bad, 1)

	if n := r.Deliver([]byte("x"), 1); n != 1 {
		t.Errorf("expected 1 delivery, got %d", n)
	}
	if got := r.Connections(); got != 1 {
		t.Errorf("expected failing channel evicted, %d left", got)
	}

	r.Deliver([]byte("y"), 1)
	if good.count() != 2 {
		t.Errorf("expected 2 frames on the good channel, got %d", good.count())
	}

	// The only channel failing removes the user entirely
	solo := &fakeConn{fail: true}
	r.Register(solo, 3)
	r.Deliver([]byte("z"), 3)
	if r.IsConnected(3) {
		t.Error("user 3 should be dropped after its only channel failed")
	}
}

func TestBroadcast(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(a, 1)
	r.Register(b, 2)

	if n := r.Broadcast([]byte("x"), []uint64{1, 2, 3}); n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(3)
		userID := uint64(i % 5)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			r.Register(c, userID)
			r.Deliver([]byte("x"), userID)
			r.Unregister(c, userID)
		}()
		go func() {
			defer wg.Done()
			r.Deliver([]byte("y"), userID)
			_ = r.IsConnected(userID)
		}()
		go func() {
			defer wg.Done()
			c := &fakeConn{fail: true}
			r.Register(c, userID)
			r.Deliver([]byte("z"), userID)
			_ = r.Connections()
		}()
	}
	wg.Wait()

	// Every conn that stayed registered is a failing one delivery would evict
	for id := uint64(0); id < 5; id++ {
		r.Deliver([]byte("flush"), id)
	}
	if got := r.Connections(); got != 0 {
		t.Errorf("expected all channels gone, %d left", got)
	}
}

func TestChannel(t *testing.T) {
	if got := Channel(42); got != "gestionale:push:42" {
		t.Errorf("unexpected channel %s", got)
	}
}
