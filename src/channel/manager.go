package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"onion-watch/src/helpers"
	"onion-watch/src/logger"
	"onion-watch/src/models"
)

var (
	ErrNotConnected  = errors.New("channel: not connected")
	ErrMaxReconnects = errors.New("channel: maximum reconnect attempts reached")
)

// -----------------------------------------------------------------------------

// Options configure a Manager. Only URL is required.
type Options struct {
	URL         string
	Token       func() string // read on every open; "" skips auth
	MaxAttempts int
	Dial        Dialer
	AfterFunc   AfterFunc
	Logger      *logger.Logger

	// OnGiveUp runs on its own goroutine once reconnects are exhausted
	OnGiveUp func(err error)
}

// FileToken reads the token from path on every call
func FileToken(path string) func() string {
	return func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
}

// StaticToken always returns token
func StaticToken(token string) func() string {
	return func() string { return token }
}

// -----------------------------------------------------------------------------
// Manager owns one connection to the live-update endpoint.
// It keeps subscriptions across reconnects and dispatches inbound messages
// first by type, then by channel.
// -----------------------------------------------------------------------------

type Manager struct {
	opts Options
	log  *logger.Logger

	mu            sync.Mutex
	state         State
	transport     Transport
	generation    uint64
	attempts      int
	timer         Timer
	closing       bool
	subscriptions map[string]struct{}
	handlers      map[Key][]registration
	nextID        HandlerID

	writeMu sync.Mutex
}

// -----------------------------------------------------------------------------

func NewManager(opts Options) *Manager {
	if opts.Dial == nil {
		opts.Dial = WebSocketDialer
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = defaultAfterFunc
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Token == nil {
		opts.Token = StaticToken("")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	return &Manager{
		opts:          opts,
		log:           opts.Logger,
		state:         StateDisconnected,
		subscriptions: make(map[string]struct{}),
		handlers:      make(map[Key][]registration),
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// -----------------------------------------------------------------------------

func (m *Manager) setStateLocked(s State) {
	if m.state != s {
		m.log.Debug("State %s -> %s", m.state, s)
	}
	m.state = s
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Connect dials the server. It is a no-op while Open or Connecting, and it
// is ignored while a reconnect is already scheduled.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.state == StateOpen || m.state == StateConnecting:
		m.mu.Unlock()
		return nil
	case m.timer != nil:
		m.mu.Unlock()
		m.log.Debug("Reconnect already scheduled, ignoring Connect")
		return nil
	}
	m.closing = false
	m.mu.Unlock()

	return m.open(ctx)
}

// -----------------------------------------------------------------------------

func (m *Manager) open(ctx context.Context) error {
	m.mu.Lock()
	// never more than one transport
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.generation++
	gen := m.generation
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	t, err := m.opts.Dial(ctx, m.opts.URL)

	m.mu.Lock()
	if gen != m.generation || m.closing {
		// Disconnect won the race
		m.mu.Unlock()
		if t != nil {
			t.Close()
		}
		return ErrNotConnected
	}
	if err != nil {
		m.setStateLocked(StateErrored)
		m.log.Warning("Connect to %s failed: %v", m.opts.URL, err)
		m.scheduleReconnectLocked()
		m.mu.Unlock()
		return helpers.NewTransportError("dial "+m.opts.URL, err)
	}

	m.transport = t
	m.attempts = 0
	m.setStateLocked(StateOpen)
	channels := m.subscribedLocked()
	m.mu.Unlock()

	m.log.Info("Connected to %s", m.opts.URL)

	if token := m.opts.Token(); token != "" {
		m.write(t, models.MClientCommand{Type: models.MsgAuth, Token: token})
	}
	for _, ch := range channels {
		m.write(t, models.MClientCommand{Type: models.MsgSubscribe, Channel: ch})
	}

	go m.readLoop(t, gen)
	return nil
}

// -----------------------------------------------------------------------------

// Disconnect closes the connection and cancels any scheduled reconnect.
// Subscriptions and handlers are kept for the next Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closing = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.generation++
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}
	m.setStateLocked(StateDisconnected)
}

// -----------------------------------------------------------------------------

func (m *Manager) readLoop(t Transport, gen uint64) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			m.handleDrop(gen, err)
			return
		}
		m.dispatch(data)
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) handleDrop(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.closing {
		return
	}
	if m.transport != nil {
		m.transport.Close()
		m.transport = nil
	}

	if isCleanClose(err) {
		m.setStateLocked(StateClosed)
		m.log.Info("Connection closed: %v", err)
	} else {
		m.setStateLocked(StateErrored)
		m.log.Warning("Connection lost: %v", err)
	}
	m.scheduleReconnectLocked()
}

// -----------------------------------------------------------------------------

func (m *Manager) scheduleReconnectLocked() {
	if m.attempts >= m.opts.MaxAttempts {
		m.setStateLocked(StateDisconnected)
		err := fmt.Errorf("%w (%d attempts against %s)", ErrMaxReconnects, m.attempts, m.opts.URL)
		m.log.Error("%v", err)
		if m.opts.OnGiveUp != nil {
			go m.opts.OnGiveUp(err)
		}
		return
	}

	m.attempts++
	delay := Backoff(m.attempts)
	m.setStateLocked(StateReconnecting)
	m.log.Info("Reconnecting in %s (attempt %d/%d)", delay, m.attempts, m.opts.MaxAttempts)

	// Disconnect and every open bump the generation, so a callback that
	// already fired when its timer was stopped sees a newer one and exits.
	gen := m.generation
	m.timer = m.opts.AfterFunc(delay, func() {
		m.mu.Lock()
		if gen != m.generation || m.closing || m.state != StateReconnecting {
			m.mu.Unlock()
			m.log.Debug("Stale reconnect timer ignored")
			return
		}
		m.timer = nil
		m.mu.Unlock()

		m.open(context.Background())
	})
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe records channel and tells the server when connected
func (m *Manager) Subscribe(channel string) error {
	m.mu.Lock()
	m.subscriptions[channel] = struct{}{}
	t := m.openTransportLocked()
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return m.write(t, models.MClientCommand{Type: models.MsgSubscribe, Channel: channel})
}

// -----------------------------------------------------------------------------

func (m *Manager) Unsubscribe(channel string) error {
	m.mu.Lock()
	delete(m.subscriptions, channel)
	t := m.openTransportLocked()
	m.mu.Unlock()

	if t == nil {
		return nil
	}
	return m.write(t, models.MClientCommand{Type: models.MsgUnsubscribe, Channel: channel})
}

// -----------------------------------------------------------------------------

// Subscriptions returns the subscribed channels, sorted
func (m *Manager) Subscriptions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribedLocked()
}

func (m *Manager) subscribedLocked() []string {
	out := make([]string, 0, len(m.subscriptions))
	for ch := range m.subscriptions {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// Send encodes v as JSON and writes it
func (m *Manager) Send(v interface{}) error {
	m.mu.Lock()
	t := m.openTransportLocked()
	m.mu.Unlock()

	if t == nil {
		return ErrNotConnected
	}
	return m.write(t, v)
}

func (m *Manager) openTransportLocked() Transport {
	if m.state != StateOpen {
		return nil
	}
	return m.transport
}

func (m *Manager) write(t Transport, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("channel: encode message: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := t.WriteMessage(data); err != nil {
		m.log.Warning("Write failed: %v", err)
		return helpers.NewTransportError("write", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// OnMessage registers h under key; handlers run in registration order
func (m *Manager) OnMessage(key Key, h Handler) HandlerID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.handlers[key] = append(m.handlers[key], registration{id: m.nextID, fn: h})
	return m.nextID
}

// -----------------------------------------------------------------------------

// OffMessage removes one registration; it reports whether it existed
func (m *Manager) OffMessage(key Key, id HandlerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.handlers[key]
	for i, r := range list {
		if r.id != id {
			continue
		}
		list = append(list[:i:i], list[i+1:]...)
		if len(list) == 0 {
			delete(m.handlers, key)
		} else {
			m.handlers[key] = list
		}
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

// dispatch runs the type pass then the channel pass
func (m *Manager) dispatch(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Warning("Dropping malformed message: %v", err)
		return
	}

	var matched []registration
	m.mu.Lock()
	if t := msg.Type(); t != "" {
		matched = append(matched, m.handlers[ByType(t)]...)
	}
	if ch := msg.Channel(); ch != "" {
		matched = append(matched, m.handlers[ByChannel(ch)]...)
	}
	m.mu.Unlock()

	for _, r := range matched {
		m.invoke(r, msg)
	}
}

// -----------------------------------------------------------------------------

func (m *Manager) invoke(r registration, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("Handler %d panicked on %s: %v", r.id, msg.Type(), rec)
		}
	}()
	r.fn(msg)
}
