package main

import (
    "sync"
    "sync/atomic"
    "time"
)

// EventType names a lifecycle transition or outcome reported by a session,
// the control listener or the coordinator.
type EventType string

const (
    EventGrabbed      EventType = "grabbed"      // device opened and held exclusively
    EventReading      EventType = "reading"      // read loop started
    EventMatch        EventType = "match"        // completed code equals the match code
    EventMismatch     EventType = "mismatch"     // completed code differs
    EventDeviceLost   EventType = "device_lost"  // read error, session ended for good
    EventClosed       EventType = "closed"       // session closed on shutdown
    EventCommand      EventType = "command"      // control command accepted
    EventRejected     EventType = "rejected"     // control payload ignored
    EventPulseError   EventType = "pulse_error"  // relay could not be driven
    EventConfigReload EventType = "config_reload"
)

// Event is one entry of the coordinator's event stream.
type Event struct {
    Time      time.Time `json:"time"`
    Type      EventType `json:"type"`
    Device    string    `json:"device,omitempty"`
    Direction Direction `json:"direction,omitempty"`
    Code      string    `json:"code,omitempty"`
    Remote    string    `json:"remote,omitempty"`
    Err       string    `json:"error,omitempty"`
}

// recentEvents is how many events the status API can show.
const recentEvents = 100

// EventHub fans events out to subscribers and keeps the most recent ones.
// Subscribers run synchronously on the publishing goroutine and must not
// block.
type EventHub struct {
    mu     sync.Mutex
    subs   []func(Event)
    recent []Event
    next   int
    full   bool
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
    return &EventHub{recent: make([]Event, recentEvents)}
}

// Subscribe registers fn for every later event.
func (h *EventHub) Subscribe(fn func(Event)) {
    h.mu.Lock()
    h.subs = append(h.subs, fn)
    h.mu.Unlock()
}

// Publish timestamps ev when needed, records it and hands it to every
// subscriber.
func (h *EventHub) Publish(ev Event) {
    if ev.Time.IsZero() {
        ev.Time = time.Now()
    }
    h.mu.Lock()
    h.recent[h.next] = ev
    h.next = (h.next + 1) % len(h.recent)
    if h.next == 0 {
        h.full = true
    }
    subs := h.subs
    h.mu.Unlock()
    for _, fn := range subs {
        fn(ev)
    }
}

// Recent returns the retained events, oldest first.
func (h *EventHub) Recent() []Event {
    h.mu.Lock()
    defer h.mu.Unlock()
    if !h.full {
        return append([]Event(nil), h.recent[:h.next]...)
    }
    out := make([]Event, 0, len(h.recent))
    out = append(out, h.recent[h.next:]...)
    return append(out, h.recent[:h.next]...)
}

// MatchCode holds the badge value sessions compare against.  It can be
// swapped at runtime while sessions are reading.
type MatchCode struct {
    v atomic.Value
}

// NewMatchCode returns a holder initialised to code.
func NewMatchCode(code string) *MatchCode {
    m := &MatchCode{}
    m.v.Store(code)
    return m
}

// Matches reports exact, case-sensitive equality with the current code.
func (m *MatchCode) Matches(code string) bool {
    return code == m.Get()
}

// Get returns the current code.
func (m *MatchCode) Get() string {
    s, _ := m.v.Load().(string)
    return s
}

// Set replaces the code.
func (m *MatchCode) Set(code string) {
    m.v.Store(code)
}
