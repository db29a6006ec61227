package main

// This file drives the door-release relay.  Every pulse request, whether it
// comes from a scanner or from the control port, goes through Relay.Pulse.

import (
    "sync"
    "time"

    "periph.io/x/conn/v3/gpio"
)

// defaultPulse is the pulse length used when the caller does not give one.
const defaultPulse = 50 * time.Millisecond

// OutputLine is a single digital output.  periph's gpio.PinOut satisfies it.
type OutputLine interface {
    Out(l gpio.Level) error
}

// RelayStats summarises relay activity for the status API.  Pulses counts
// only pulses that ended with the line back LOW.
type RelayStats struct {
    Pulses    int       `json:"pulses"`
    Failures  int       `json:"failures"` // pulses that could not drive the line
    LastPulse time.Time `json:"last_pulse"`
    Closed    bool      `json:"closed"`
}

// Relay owns one output line that is LOW at rest.  Pulses are serialized:
// a pulse requested while another is running starts only after the line
// has been driven LOW again, so pulses never overlap or cut each other short.
type Relay struct {
    mu       sync.Mutex // held for the whole pulse
    line     OutputLine
    duration time.Duration // default pulse length
    stats    RelayStats
}

// NewRelay drives line LOW and returns a relay using duration as the
// default pulse length (50ms when duration is not positive).
func NewRelay(line OutputLine, duration time.Duration) (*Relay, error) {
    if duration <= 0 {
        duration = defaultPulse
    }
    if err := line.Out(gpio.Low); err != nil {
        return nil, err
    }
    return &Relay{line: line, duration: duration}, nil
}

// Pulse drives the line HIGH for d (the default when d <= 0) and returns
// once it is LOW again.  If driving HIGH fails the line is still driven LOW
// before the error is returned.
func (r *Relay) Pulse(d time.Duration) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.stats.Closed {
        return ErrRelayClosed
    }
    if d <= 0 {
        d = r.duration
    }
    if err := r.line.Out(gpio.High); err != nil {
        _ = r.line.Out(gpio.Low)
        r.stats.Failures++
        return err
    }
    time.Sleep(d)
    if err := r.line.Out(gpio.Low); err != nil {
        r.stats.Failures++
        return err
    }
    r.stats.Pulses++
    r.stats.LastPulse = time.Now()
    return nil
}

// SetDuration changes the default pulse length.  A running pulse keeps
// the length it started with.
func (r *Relay) SetDuration(d time.Duration) {
    if d <= 0 {
        d = defaultPulse
    }
    r.mu.Lock()
    r.duration = d
    r.mu.Unlock()
}

// Stats returns a snapshot of the relay counters.  It waits for a pulse in
// progress to finish.
func (r *Relay) Stats() RelayStats {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.stats
}

// Close waits for any pulse in progress, leaves the line LOW and rejects
// later pulses.  It is safe to call more than once.
func (r *Relay) Close() error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.stats.Closed = true
    return r.line.Out(gpio.Low)
}
