package main

import (
    "errors"
    "sync"
    "testing"
    "time"

    "periph.io/x/conn/v3/gpio"
)

// levelChange is one write to a recordingLine.
type levelChange struct {
    level gpio.Level
    at    time.Time
}

// recordingLine is an OutputLine that remembers every level written.
type recordingLine struct {
    mu      sync.Mutex
    changes []levelChange
    failOn  map[gpio.Level]error
}

func (l *recordingLine) Out(v gpio.Level) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    if err := l.failOn[v]; err != nil {
        return err
    }
    l.changes = append(l.changes, levelChange{level: v, at: time.Now()})
    return nil
}

func (l *recordingLine) levels() []gpio.Level {
    l.mu.Lock()
    defer l.mu.Unlock()
    out := make([]gpio.Level, len(l.changes))
    for i, c := range l.changes {
        out[i] = c.level
    }
    return out
}

func (l *recordingLine) history() []levelChange {
    l.mu.Lock()
    defer l.mu.Unlock()
    return append([]levelChange(nil), l.changes...)
}

func (l *recordingLine) highs() int {
    n := 0
    for _, v := range l.levels() {
        if v == gpio.High {
            n++
        }
    }
    return n
}

func (l *recordingLine) last() gpio.Level {
    lv := l.levels()
    if len(lv) == 0 {
        return gpio.Low
    }
    return lv[len(lv)-1]
}

// fakeDevice is an InputDevice fed by the test.
type fakeDevice struct {
    events    chan InputEvent
    fail      chan error
    closed    chan struct{}
    closeOnce sync.Once
    grabErr   error

    mu      sync.Mutex
    grabbed bool
}

func newFakeDevice() *fakeDevice {
    return &fakeDevice{
        events: make(chan InputEvent, 256),
        fail:   make(chan error, 1),
        closed: make(chan struct{}),
    }
}

func (d *fakeDevice) Grab() error {
    if d.grabErr != nil {
        return d.grabErr
    }
    d.mu.Lock()
    d.grabbed = true
    d.mu.Unlock()
    return nil
}

func (d *fakeDevice) ReadEvent() (InputEvent, error) {
    // Queued events win over a close so a test can feed and close in one go.
    select {
    case ev := <-d.events:
        return ev, nil
    default:
    }
    select {
    case ev := <-d.events:
        return ev, nil
    case err := <-d.fail:
        return InputEvent{}, err
    case <-d.closed:
        return InputEvent{}, errors.New("file already closed")
    }
}

func (d *fakeDevice) Close() error {
    d.closeOnce.Do(func() { close(d.closed) })
    return nil
}

func (d *fakeDevice) Name() string { return "Fake Barcode Scanner" }

func (d *fakeDevice) isClosed() bool {
    select {
    case <-d.closed:
        return true
    default:
        return false
    }
}

// send queues events on the device.
func (d *fakeDevice) send(evs ...InputEvent) {
    for _, ev := range evs {
        d.events <- ev
    }
}

// openerFor returns a DeviceOpener serving the given devices by path.
func openerFor(devs map[string]*fakeDevice) DeviceOpener {
    return func(path string) (InputDevice, error) {
        d, ok := devs[path]
        if !ok {
            return nil, errors.New("no such file or directory")
        }
        return d, nil
    }
}

// scancodeFor finds the keycode producing tok.
func scancodeFor(t *testing.T, tok string) uint16 {
    t.Helper()
    for code, s := range scancodes {
        if s == tok {
            return code
        }
    }
    t.Fatalf("no scancode for %q", tok)
    return 0
}

// keyPress is the press and release of one key.
func keyPress(code uint16) []InputEvent {
    return []InputEvent{
        {Kind: EventKey, Code: code, Value: keyPressed},
        {Kind: EventOther},
        {Kind: EventKey, Code: code, Value: keyReleased},
        {Kind: EventOther},
    }
}

// scan renders what a keyboard-wedge scanner emits for a single-character
// token string, Enter included.
func scan(t *testing.T, code string) []InputEvent {
    t.Helper()
    var evs []InputEvent
    for _, r := range code {
        evs = append(evs, keyPress(scancodeFor(t, string(r)))...)
    }
    return append(evs, keyPress(terminatorCode)...)
}

// collect returns a publish func and the channel it feeds.
func collect() (func(Event), chan Event) {
    ch := make(chan Event, 256)
    return func(ev Event) { ch <- ev }, ch
}

// waitFor reads events until one of type typ arrives.
func waitFor(t *testing.T, ch <-chan Event, typ EventType) Event {
    t.Helper()
    timeout := time.After(2 * time.Second)
    for {
        select {
        case ev := <-ch:
            if ev.Type == typ {
                return ev
            }
        case <-timeout:
            t.Fatalf("timed out waiting for %s event", typ)
            return Event{}
        }
    }
}
