package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/common/clock"
	"github.com/AlibekovAA/givematch-portal/internal/common/constants"
	"github.com/AlibekovAA/givematch-portal/internal/common/logger"
	"github.com/AlibekovAA/givematch-portal/internal/observability/metrics"
)

var errClosedByPeer = errors.New("connection closed")

type Listener func(Message)

// Subscriber is the part of a channel that hooks depend on.
type Subscriber interface {
	Subscribe(listener Listener) (unsubscribe func())
}

type ManagerConfig struct {
	Name        string
	Endpoint    string
	Policy      ReconnectPolicy
	DialTimeout time.Duration
}

type Status struct {
	Channel         string     `json:"channel"`
	State           State      `json:"state"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	Listeners       int        `json:"listeners"`
	LastError       string     `json:"last_error,omitempty"`
	LastConnectedAt *time.Time `json:"last_connected_at,omitempty"`
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Manager owns the single reconnecting connection of one channel and fans
// inbound messages out to its listeners.
//
// Every transition (API call, dial result, read failure, timer fire) happens
// under mu. Each dial, connection and timer carries the generation it was
// started in; a callback whose generation is no longer current does nothing.
type Manager struct {
	name        string
	endpoint    string
	policy      ReconnectPolicy
	dialTimeout time.Duration
	dialer      Dialer
	clock       clock.Clock
	log         *logger.Logger

	mu            sync.Mutex
	state         State
	attempts      int
	generation    uint64
	conn          Conn
	timer         clock.Timer
	cancelDial    context.CancelFunc
	lastErr       error
	lastConnected time.Time

	listenersMu sync.Mutex
	listeners   []listenerEntry
	nextID      uint64

	writeMu sync.Mutex
}

func NewManager(cfg ManagerConfig, dialer Dialer, clk clock.Clock, log *logger.Logger) *Manager {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = constants.RealtimeHandshakeTimeout
	}

	m := &Manager{
		name:        cfg.Name,
		endpoint:    cfg.Endpoint,
		policy:      cfg.Policy,
		dialTimeout: cfg.DialTimeout,
		dialer:      dialer,
		clock:       clk,
		log:         log,
		state:       StateDisconnected,
	}
	metrics.RealtimeChannelState.WithLabelValues(m.name).Set(float64(StateDisconnected))
	return m
}

func (m *Manager) Name() string     { return m.name }
func (m *Manager) Endpoint() string { return m.endpoint }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	st := Status{
		Channel:     m.name,
		State:       m.state,
		Attempts:    m.attempts,
		MaxAttempts: m.policy.MaxAttempts,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	if !m.lastConnected.IsZero() {
		t := m.lastConnected
		st.LastConnectedAt = &t
	}
	m.mu.Unlock()

	m.listenersMu.Lock()
	st.Listeners = len(m.listeners)
	m.listenersMu.Unlock()
	return st
}

// Connect opens the channel unless it is already connecting or connected.
// A manual connect starts a fresh backoff cycle, so it also revives a channel
// that exhausted its attempts or was disconnected.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateDisconnected {
		return
	}

	m.stopTimerLocked()
	m.attempts = 0
	m.dialLocked()
}

// Disconnect closes the channel and suppresses auto-reconnect. Once it returns
// no scheduled or in-flight reconnect can take effect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopTimerLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.attempts = m.policy.MaxAttempts
	m.generation++
	conn := m.conn
	m.conn = nil
	wasOpen := m.state != StateDisconnected
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.log.Debugf("realtime close channel=%s: %v", m.name, err)
		}
	}
	if wasOpen {
		m.log.WithFields(context.Background(), logger.Fields{
			"channel": m.name,
			"action":  "realtime_disconnect",
		}).Info("realtime channel disconnected")
	}
}

// Subscribe registers listener and returns a function that removes it.
// The returned function is safe to call more than once and from inside a
// listener.
func (m *Manager) Subscribe(listener Listener) func() {
	m.listenersMu.Lock()
	m.nextID++
	id := m.nextID
	next := make([]listenerEntry, len(m.listeners), len(m.listeners)+1)
	copy(next, m.listeners)
	m.listeners = append(next, listenerEntry{id: id, fn: listener})
	count := len(m.listeners)
	m.listenersMu.Unlock()

	metrics.RealtimeListeners.WithLabelValues(m.name).Set(float64(count))

	var once sync.Once
	return func() {
		once.Do(func() { m.removeListener(id) })
	}
}

func (m *Manager) removeListener(id uint64) {
	m.listenersMu.Lock()
	next := make([]listenerEntry, 0, len(m.listeners))
	for _, l := range m.listeners {
		if l.id != id {
			next = append(next, l)
		}
	}
	m.listeners = next
	count := len(next)
	m.listenersMu.Unlock()

	metrics.RealtimeListeners.WithLabelValues(m.name).Set(float64(count))
}

// Send JSON-encodes v and writes it if the channel is connected. It reports
// whether the frame was handed to the transport. Nothing is queued.
// []byte and json.RawMessage values are written as-is.
func (m *Manager) Send(v any) bool {
	var data []byte
	switch b := v.(type) {
	case []byte:
		data = b
	case json.RawMessage:
		data = b
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			m.log.Warnf("realtime send encode failed channel=%s: %v", m.name, err)
			return false
		}
		data = encoded
	}

	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		metrics.RealtimeSendsDropped.WithLabelValues(m.name).Inc()
		m.log.Debugf("realtime send skipped channel=%s state=%s", m.name, state)
		return false
	}

	m.writeMu.Lock()
	err := conn.WriteMessage(data)
	m.writeMu.Unlock()
	if err != nil {
		metrics.RealtimeSendsDropped.WithLabelValues(m.name).Inc()
		m.log.Warnf("realtime send failed channel=%s: %v", m.name, err)
		return false
	}
	return true
}

func (m *Manager) dialLocked() {
	m.generation++
	gen := m.generation
	m.setStateLocked(StateConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), m.dialTimeout)
	m.cancelDial = cancel

	go m.dial(ctx, cancel, gen)
}

func (m *Manager) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	conn, err := m.dialer.Dial(ctx, m.endpoint)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		metrics.RealtimeConnectAttempts.WithLabelValues(m.name, "error").Inc()
		m.log.Warnf("realtime dial failed channel=%s attempt=%d: %v", m.name, m.attempts, err)
		m.handleCloseLocked(err)
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.attempts = 0
	m.lastErr = nil
	m.lastConnected = m.clock.Now()
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	metrics.RealtimeConnectAttempts.WithLabelValues(m.name, "success").Inc()
	m.log.WithFields(context.Background(), logger.Fields{
		"channel":  m.name,
		"endpoint": m.endpoint,
		"action":   "realtime_connected",
	}).Info("realtime channel connected")

	m.readLoop(conn, gen)
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			current := gen == m.generation
			if current {
				m.conn = nil
				m.log.Infof("realtime connection lost channel=%s: %v", m.name, err)
				m.handleCloseLocked(err)
			}
			m.mu.Unlock()

			if current {
				conn.Close()
			}
			return
		}

		if !m.isCurrent(gen) {
			return
		}
		m.dispatch(data)
	}
}

// handleCloseLocked is the single decision point after a failed dial, a read
// error or a close.
func (m *Manager) handleCloseLocked(cause error) {
	if cause == nil {
		cause = errClosedByPeer
	}
	m.lastErr = cause
	m.setStateLocked(StateDisconnected)

	if m.attempts >= m.policy.MaxAttempts {
		metrics.RealtimeReconnectsExhausted.WithLabelValues(m.name).Inc()
		m.log.WithFields(context.Background(), logger.Fields{
			"channel":  m.name,
			"attempts": m.attempts,
			"action":   "realtime_reconnect_exhausted",
		}).Warn("realtime reconnect attempts exhausted")
		return
	}

	delay := m.policy.Delay(m.attempts)
	m.attempts++
	gen := m.generation
	m.timer = m.clock.AfterFunc(delay, func() { m.reconnect(gen) })

	metrics.RealtimeReconnectsScheduled.WithLabelValues(m.name).Inc()
	m.log.Debugf("realtime reconnect scheduled channel=%s attempt=%d delay=%s", m.name, m.attempts, delay)
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != StateDisconnected {
		return
	}
	m.timer = nil
	m.dialLocked()
}

func (m *Manager) dispatch(data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		metrics.RealtimeMalformedMessages.WithLabelValues(m.name).Inc()
		m.log.Warnf("realtime dropped message channel=%s: %v", m.name, err)
		return
	}
	metrics.RealtimeMessagesTotal.WithLabelValues(m.name, msg.Kind).Inc()

	m.listenersMu.Lock()
	snapshot := m.listeners
	m.listenersMu.Unlock()

	for _, l := range snapshot {
		own := msg
		own.Payload = bytes.Clone(msg.Payload)
		m.invoke(l, own)
	}
}

func (m *Manager) invoke(l listenerEntry, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RealtimeListenerPanics.WithLabelValues(m.name).Inc()
			m.log.Errorf("realtime listener panic channel=%s kind=%s: %v", m.name, msg.Kind, fmt.Sprint(r))
		}
	}()
	l.fn(msg)
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	metrics.RealtimeChannelState.WithLabelValues(m.name).Set(float64(s))
}
