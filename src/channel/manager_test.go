package channel

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Fakes
// -----------------------------------------------------------------------------

type fakeTransport struct {
	mu     sync.Mutex
	writes []map[string]interface{}
	closed bool
	inbox  chan []byte
	drop   chan error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{inbox: make(chan []byte, 16), drop: make(chan error, 1)}
}

func (f *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case data := <-f.inbox:
		return data, nil
	case err := <-f.drop:
		return nil, err
	}
}

func (f *fakeTransport) WriteMessage(data []byte) error {
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.writes = append(f.writes, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		select {
		case f.drop <- errors.New("use of closed connection"):
		default:
		}
	}
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) sent() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]interface{}(nil), f.writes...)
}

type fakeDialer struct {
	mu         sync.Mutex
	fail       bool
	calls      int
	transports []*fakeTransport
}

func (d *fakeDialer) dial(ctx context.Context, url string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.fail {
		return nil, errors.New("connection refused")
	}
	t := newFakeTransport()
	d.transports = append(d.transports, t)
	return t, nil
}

func (d *fakeDialer) setFail(v bool) {
	d.mu.Lock()
	d.fail = v
	d.mu.Unlock()
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transports[len(d.transports)-1]
}

type scheduled struct {
	delay time.Duration
	fire  func()
}

type fakeTimer struct{ stopped bool }

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	pending chan scheduled
}

func newFakeClock() *fakeClock {
	return &fakeClock{pending: make(chan scheduled, 16)}
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) Timer {
	c.pending <- scheduled{delay: d, fire: f}
	return &fakeTimer{}
}

func (c *fakeClock) next(t *testing.T) scheduled {
	t.Helper()
	select {
	case s := <-c.pending:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect scheduled")
		return scheduled{}
	}
}

func (c *fakeClock) expectNone(t *testing.T) {
	t.Helper()
	select {
	case s := <-c.pending:
		t.Fatalf("unexpected reconnect scheduled after %s", s.delay)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestManager(token string) (*Manager, *fakeDialer, *fakeClock) {
	d := &fakeDialer{}
	c := newFakeClock()
	m := NewManager(Options{
		URL:       "ws://test/ws",
		Token:     StaticToken(token),
		Dial:      d.dial,
		AfterFunc: c.afterFunc,
	})
	return m, d, c
}

func waitState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", m.State(), want)
}

// -----------------------------------------------------------------------------
// Backoff
// -----------------------------------------------------------------------------

func TestBackoff(t *testing.T) {
	want := []time.Duration{
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}
	for i, w := range want {
		if got := Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	if got := Backoff(0); got != time.Second {
		t.Errorf("Backoff(0) = %s", got)
	}
}

func TestReconnectSequenceStopsAfterFiveAttempts(t *testing.T) {
	m, d, clock := newTestManager("")
	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	d.setFail(true)
	d.last().drop <- errors.New("connection reset")

	var delays []time.Duration
	for i := 0; i < 5; i++ {
		s := clock.next(t)
		delays = append(delays, s.delay)
		s.fire()
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	clock.expectNone(t)

	if d.count() != 6 {
		t.Fatalf("dial calls = %d, want 6", d.count())
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %s", m.State())
	}
}

func TestGiveUpHookReportsMaxReconnects(t *testing.T) {
	d := &fakeDialer{}
	clock := newFakeClock()
	gaveUp := make(chan error, 1)
	m := NewManager(Options{
		URL:       "ws://test/ws",
		Dial:      d.dial,
		AfterFunc: clock.afterFunc,
		OnGiveUp:  func(err error) { gaveUp <- err },
	})
	m.Connect(context.Background())

	d.setFail(true)
	d.last().drop <- errors.New("reset")
	for i := 0; i < DefaultMaxAttempts; i++ {
		clock.next(t).fire()
	}

	select {
	case err := <-gaveUp:
		if !errors.Is(err, ErrMaxReconnects) {
			t.Fatalf("err = %v, want ErrMaxReconnects", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("give-up hook not called")
	}
}

func TestSuccessfulOpenResetsAttempts(t *testing.T) {
	m, d, clock := newTestManager("")
	m.Connect(context.Background())

	d.setFail(true)
	d.last().drop <- errors.New("reset")
	first := clock.next(t)
	first.fire()
	second := clock.next(t)
	if second.delay != 4*time.Second {
		t.Fatalf("second delay = %s", second.delay)
	}

	d.setFail(false)
	second.fire()
	waitState(t, m, StateOpen)

	d.last().drop <- errors.New("reset again")
	if s := clock.next(t); s.delay != 2*time.Second {
		t.Fatalf("delay after successful open = %s, want 2s", s.delay)
	}
}

func TestConnectIgnoredWhileReconnectScheduled(t *testing.T) {
	m, d, clock := newTestManager("")
	m.Connect(context.Background())
	d.last().drop <- errors.New("reset")
	clock.next(t)
	waitState(t, m, StateReconnecting)

	calls := d.count()
	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.count() != calls {
		t.Fatal("Connect dialed while a reconnect was scheduled")
	}
}

func TestConnectNoopWhenOpen(t *testing.T) {
	m, d, _ := newTestManager("")
	m.Connect(context.Background())
	m.Connect(context.Background())
	if d.count() != 1 {
		t.Fatalf("dial calls = %d, want 1", d.count())
	}
	if m.State() != StateOpen {
		t.Fatalf("state = %s", m.State())
	}
}

func TestDisconnectDoesNotReconnect(t *testing.T) {
	m, _, clock := newTestManager("")
	m.Connect(context.Background())
	m.Disconnect()

	clock.expectNone(t)
	if m.State() != StateDisconnected {
		t.Fatalf("state = %s", m.State())
	}
}

func TestStaleReconnectTimerAfterDisconnectAndConnect(t *testing.T) {
	m, d, clock := newTestManager("")
	m.Connect(context.Background())
	d.last().drop <- errors.New("reset")
	stale := clock.next(t)

	// the timer callback may already be running when Disconnect stops it
	m.Disconnect()
	if err := m.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	fresh := d.last()
	calls := d.count()

	stale.fire()

	if d.count() != calls {
		t.Fatalf("dial calls = %d, want %d", d.count(), calls)
	}
	if fresh.isClosed() {
		t.Fatal("healthy transport closed by an old reconnect timer")
	}
	if m.State() != StateOpen {
		t.Fatalf("state = %s, want Open", m.State())
	}
	clock.expectNone(t)
}

func TestPlainErrorIsNotCleanClose(t *testing.T) {
	if isCleanClose(errors.New("EOF")) {
		t.Fatal("plain error treated as clean close")
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

func TestResubscribeAfterReconnect(t *testing.T) {
	m, d, _ := newTestManager("tok-123")
	m.Subscribe("alerts")
	m.Subscribe("nodes")

	m.Connect(context.Background())
	m.Disconnect()
	m.Connect(context.Background())

	got := d.last().sent()
	want := []map[string]interface{}{
		{"type": "auth", "token": "tok-123"},
		{"type": "subscribe", "channel": "alerts"},
		{"type": "subscribe", "channel": "nodes"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sent on reopen = %v, want %v", got, want)
	}
}

func TestSubscribeWhileOpenAndUnsubscribe(t *testing.T) {
	m, d, _ := newTestManager("")
	m.Connect(context.Background())
	m.Subscribe("alerts")
	m.Unsubscribe("alerts")

	got := d.last().sent()
	if len(got) != 2 || got[0]["type"] != "subscribe" || got[1]["type"] != "unsubscribe" {
		t.Fatalf("sent = %v", got)
	}
	if subs := m.Subscriptions(); len(subs) != 0 {
		t.Fatalf("subscriptions = %v", subs)
	}
}

func TestSendRequiresOpen(t *testing.T) {
	m, d, _ := newTestManager("")
	if err := m.Send(map[string]string{"type": "GET_HISTORY"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send before connect = %v", err)
	}

	m.Connect(context.Background())
	if err := m.Send(map[string]string{"type": "GET_HISTORY"}); err != nil {
		t.Fatal(err)
	}
	if got := d.last().sent(); len(got) != 1 || got[0]["type"] != "GET_HISTORY" {
		t.Fatalf("sent = %v", got)
	}
}

func TestReconnectClosesPreviousTransport(t *testing.T) {
	m, d, _ := newTestManager("")
	m.Connect(context.Background())
	first := d.last()

	m.open(context.Background())
	first.mu.Lock()
	closed := first.closed
	first.mu.Unlock()
	if !closed {
		t.Fatal("previous transport left open")
	}
}

// -----------------------------------------------------------------------------
// Dispatch
// -----------------------------------------------------------------------------

func TestDispatchTypeThenChannelInOrder(t *testing.T) {
	m, _, _ := newTestManager("")
	var calls []string
	m.OnMessage(ByType("LIVE_UPDATE"), func(Message) { calls = append(calls, "type-1") })
	m.OnMessage(ByChannel("alerts"), func(Message) { calls = append(calls, "channel-1") })
	m.OnMessage(ByType("LIVE_UPDATE"), func(Message) { calls = append(calls, "type-2") })

	m.dispatch([]byte(`{"type":"LIVE_UPDATE","channel":"alerts"}`))

	want := []string{"type-1", "type-2", "channel-1"}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
}

func TestDispatchKeySpacesAreIndependent(t *testing.T) {
	m, _, _ := newTestManager("")
	called := false
	m.OnMessage(ByChannel("LIVE_UPDATE"), func(Message) { called = true })

	m.dispatch([]byte(`{"type":"LIVE_UPDATE"}`))
	if called {
		t.Fatal("channel handler fired for a type match")
	}
}

func TestDispatchIsolatesPanics(t *testing.T) {
	m, _, _ := newTestManager("")
	reached := false
	m.OnMessage(ByType("X"), func(Message) { panic("boom") })
	m.OnMessage(ByType("X"), func(Message) { reached = true })

	m.dispatch([]byte(`{"type":"X"}`))
	if !reached {
		t.Fatal("second handler not invoked after panic")
	}
}

func TestDispatchMalformedAndUnmatched(t *testing.T) {
	m, _, _ := newTestManager("")
	called := false
	m.OnMessage(ByType("X"), func(Message) { called = true })

	m.dispatch([]byte(`{not json`))
	m.dispatch([]byte(`{"type":"Y"}`))
	if called {
		t.Fatal("handler invoked for non-matching input")
	}
}

func TestOffMessage(t *testing.T) {
	m, _, _ := newTestManager("")
	count := 0
	id := m.OnMessage(ByType("X"), func(Message) { count++ })
	m.OnMessage(ByType("X"), func(Message) { count += 10 })

	if !m.OffMessage(ByType("X"), id) {
		t.Fatal("OffMessage reported missing")
	}
	if m.OffMessage(ByType("X"), id) {
		t.Fatal("second OffMessage reported removal")
	}
	m.dispatch([]byte(`{"type":"X"}`))
	if count != 10 {
		t.Fatalf("count = %d, want 10", count)
	}
}

func TestInboundMessagesReachHandlers(t *testing.T) {
	m, d, _ := newTestManager("")
	got := make(chan Message, 1)
	m.OnMessage(ByType("HISTORY_DATA"), func(msg Message) { got <- msg })
	m.Connect(context.Background())

	d.last().inbox <- []byte(`{"type":"HISTORY_DATA","trafficHistory":[]}`)
	select {
	case msg := <-got:
		if msg.Type() != "HISTORY_DATA" {
			t.Fatalf("type = %s", msg.Type())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestMessageDecode(t *testing.T) {
	msg := Message{"type": "TRAFFIC_CONTROL", "action": "block"}
	var out struct {
		Action string `json:"action"`
	}
	if err := msg.Decode(&out); err != nil || out.Action != "block" {
		t.Fatalf("Decode = %+v, %v", out, err)
	}
	if msg.Channel() != "" {
		t.Fatal("missing channel should be empty")
	}
}
