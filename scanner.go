package main

import (
    "context"
    "errors"
    "sync"
)

// SessionState is the lifecycle position of a ScannerSession.
type SessionState int

const (
    StateUnopened SessionState = iota
    StateGrabbed
    StateReading
    StateClosed
)

func (s SessionState) String() string {
    switch s {
    case StateUnopened:
        return "unopened"
    case StateGrabbed:
        return "grabbed"
    case StateReading:
        return "reading"
    case StateClosed:
        return "closed"
    default:
        return "unknown"
    }
}

// ScannerSession binds one scanner device to its own accumulator and to the
// callback run when a badge matches.  The accumulator is only touched by the
// read loop, so it needs no locking; mu guards the fields the status API
// reads.
type ScannerSession struct {
    path      string
    direction Direction
    match     *MatchCode
    onMatch   func(Direction)
    publish   func(Event)
    acc       *CodeAccumulator

    mu      sync.Mutex
    dev     InputDevice
    state   SessionState
    lastErr error
}

// SessionStatus is the externally visible state of a session.
type SessionStatus struct {
    Device    string    `json:"device"`
    Direction Direction `json:"direction"`
    State     string    `json:"state"`
    Error     string    `json:"error,omitempty"`
}

// NewScannerSession prepares a session for the device at path.  onMatch is
// called synchronously from the read loop; publish receives every lifecycle
// event and may be nil.
func NewScannerSession(sc ScannerConfig, match *MatchCode, onMatch func(Direction), publish func(Event)) *ScannerSession {
    if publish == nil {
        publish = func(Event) {}
    }
    return &ScannerSession{
        path:      sc.Device,
        direction: sc.Direction,
        match:     match,
        onMatch:   onMatch,
        publish:   publish,
        acc:       NewCodeAccumulator(terminatorCode),
    }
}

// Open opens the device and grabs it exclusively.  Errors are DeviceErrors
// matching ErrDeviceUnavailable.
func (s *ScannerSession) Open(open DeviceOpener) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.state != StateUnopened {
        return &DeviceError{Op: "open", Path: s.path, Err: errors.New("session already opened")}
    }
    dev, err := open(s.path)
    if err != nil {
        s.lastErr = &DeviceError{Op: "open", Path: s.path, Err: err}
        return s.lastErr
    }
    if err := dev.Grab(); err != nil {
        _ = dev.Close()
        s.lastErr = &DeviceError{Op: "grab", Path: s.path, Err: err}
        return s.lastErr
    }
    s.dev = dev
    s.state = StateGrabbed
    s.publish(Event{Type: EventGrabbed, Device: s.path, Direction: s.direction, Code: dev.Name()})
    return nil
}

// Run reads events until ctx is cancelled or the device fails.  It returns
// nil on cancellation and a DeviceError matching ErrDeviceLost when the
// device stops delivering events.  Events are handled strictly in the order
// the device reports them.  Cancelling ctx alone does not unblock a pending
// read; Close does.
func (s *ScannerSession) Run(ctx context.Context) error {
    s.mu.Lock()
    if s.state != StateGrabbed {
        st := s.state
        s.mu.Unlock()
        return &DeviceError{Op: "read", Path: s.path, Err: errors.New("session is " + st.String())}
    }
    dev := s.dev
    s.state = StateReading
    s.mu.Unlock()
    s.publish(Event{Type: EventReading, Device: s.path, Direction: s.direction})

    for {
        ev, err := dev.ReadEvent()
        if err != nil {
            if ctx.Err() != nil {
                return nil
            }
            lost := &DeviceError{Op: "read", Path: s.path, Err: err}
            s.mu.Lock()
            s.lastErr = lost
            s.mu.Unlock()
            s.Close()
            s.publish(Event{Type: EventDeviceLost, Device: s.path, Direction: s.direction, Err: lost.Error()})
            return lost
        }
        if ctx.Err() != nil {
            return nil
        }
        s.handle(ev)
    }
}

// handle feeds key-down events to the accumulator and checks completed codes.
func (s *ScannerSession) handle(ev InputEvent) {
    if !ev.KeyDown() {
        return
    }
    code, done := s.acc.OnKeyDown(ev.Code)
    if !done {
        return
    }
    if s.match.Matches(code) {
        s.publish(Event{Type: EventMatch, Device: s.path, Direction: s.direction, Code: code})
        if s.onMatch != nil {
            s.onMatch(s.direction)
        }
        return
    }
    s.publish(Event{Type: EventMismatch, Device: s.path, Direction: s.direction, Code: code})
}

// Close releases the device.  It is idempotent and unblocks a running Run.
func (s *ScannerSession) Close() error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.state == StateClosed {
        return nil
    }
    s.state = StateClosed
    if s.dev == nil {
        return nil
    }
    return s.dev.Close()
}

// State returns the current lifecycle state.
func (s *ScannerSession) State() SessionState {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.state
}

// Status returns a snapshot for the status API.
func (s *ScannerSession) Status() SessionStatus {
    s.mu.Lock()
    defer s.mu.Unlock()
    st := SessionStatus{Device: s.path, Direction: s.direction, State: s.state.String()}
    if s.lastErr != nil {
        st.Error = s.lastErr.Error()
    }
    return st
}
