package server

import (
	"errors"
	"sync"
	"testing"
)

type fakeConn struct {
	id      string
	mu      sync.Mutex
	open    bool
	sendErr error
	sent    []interface{}
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, open: true}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeConn) Send(payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return ErrConnectionClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) close() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
}

func (f *fakeConn) messages() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.sent...)
}

func TestRegistrySize(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("a", newFakeConn("a"))
	if r.Size() != 1 {
		t.Fatalf("Size after register = %d", r.Size())
	}
	r.Register("b", newFakeConn("b"))
	if r.Size() != 2 {
		t.Fatalf("Size after second register = %d", r.Size())
	}

	if !r.Unregister("a") {
		t.Fatal("Unregister(a) reported missing")
	}
	if r.Size() != 1 {
		t.Fatalf("Size after unregister = %d", r.Size())
	}

	if r.Unregister("missing") {
		t.Fatal("Unregister(missing) reported removal")
	}
	if r.Size() != 1 {
		t.Fatalf("Size after no-op unregister = %d", r.Size())
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("IDs() = %v", ids)
	}
}

func TestRegistryBroadcastSkipsClosed(t *testing.T) {
	r := NewRegistry(nil)
	open1, open2, closed := newFakeConn("1"), newFakeConn("2"), newFakeConn("3")
	closed.close()

	// closes between the IsOpen check and the send
	racing := newFakeConn("4")
	racing.sendErr = errors.New("use of closed network connection")

	for _, c := range []*fakeConn{open1, open2, closed, racing} {
		r.Register(c.id, c)
	}

	if n := r.Broadcast("hello"); n != 2 {
		t.Fatalf("Broadcast delivered %d, want 2", n)
	}
	if len(open1.messages()) != 1 || len(open2.messages()) != 1 {
		t.Fatal("open connections should receive the payload")
	}
	if len(closed.messages()) != 0 || len(racing.messages()) != 0 {
		t.Fatal("closed connections should receive nothing")
	}
}

func TestRegistryBroadcastEmpty(t *testing.T) {
	if n := NewRegistry(nil).Broadcast("x"); n != 0 {
		t.Fatalf("Broadcast on empty registry = %d", n)
	}
}
