package main

import (
    "context"
    "errors"
    "log"
    "sync"
)

// Coordinator owns the relay, one ScannerSession per configured scanner and
// the control listener, and runs them together for the life of the process.
// It only wires things up; the decisions live in the sessions and the
// listener.
type Coordinator struct {
    cfg      Config
    relay    *Relay
    match    *MatchCode
    events   *EventHub
    logger   *EventLogger
    alerts   []AlertHandler
    open     DeviceOpener
    sessions []*ScannerSession
    listener *ControlListener

    mu      sync.Mutex
    started bool
}

// NewCoordinator builds the relay on line and a session for every scanner
// in cfg.  open is used to reach the scanner devices; nil selects the
// platform's evdev implementation.
func NewCoordinator(cfg Config, line OutputLine, open DeviceOpener, logger *EventLogger) (*Coordinator, error) {
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    relay, err := NewRelay(line, cfg.PulseDuration())
    if err != nil {
        return nil, err
    }
    if open == nil {
        open = openInputDevice
    }
    if logger == nil {
        logger = NewEventLogger(cfg.LogFile)
    }
    c := &Coordinator{
        cfg:    cfg,
        relay:  relay,
        match:  NewMatchCode(cfg.MatchCode),
        events: NewEventHub(),
        logger: logger,
        alerts: initAlertHandlers(cfg),
        open:   open,
    }
    c.events.Subscribe(logger.LogEvent)
    c.events.Subscribe(c.dispatchAlerts)

    for _, sc := range cfg.Scanners {
        c.sessions = append(c.sessions, NewScannerSession(sc, c.match, c.passage, c.events.Publish))
    }
    if cfg.ListenAddr != "" {
        c.listener = NewControlListener(cfg.ListenAddr, relay, cfg.MaxConns, cfg.ReadTimeoutDuration(), c.events.Publish)
    }
    return c, nil
}

// passage is the match callback shared by every session.
func (c *Coordinator) passage(dir Direction) {
    if err := c.relay.Pulse(0); err != nil {
        c.events.Publish(Event{Type: EventPulseError, Direction: dir, Err: err.Error()})
    }
}

// dispatchAlerts hands operator-relevant events to the alert handlers off
// the publishing goroutine, since handlers may talk to the network.
func (c *Coordinator) dispatchAlerts(ev Event) {
    if !alertable(ev) {
        return
    }
    log.Printf("scanner %s lost: %s", ev.Device, ev.Err)
    go func() {
        for _, h := range c.alerts {
            if err := h.Send(ev, c.logger); err != nil {
                c.logger.Log("alert handler %s error: %v", h.Name(), err)
            }
        }
    }()
}

// Start opens and grabs every scanner and binds the control port.  Any
// failure is fatal: everything already acquired is released, the relay is
// left LOW and the error is returned.
func (c *Coordinator) Start() error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.started {
        return errors.New("coordinator already started")
    }
    for _, s := range c.sessions {
        if err := s.Open(c.open); err != nil {
            c.release()
            return err
        }
    }
    if c.listener != nil {
        if err := c.listener.Listen(); err != nil {
            c.release()
            return err
        }
        log.Printf("control port listening on %s", c.listener.Addr())
    }
    c.started = true
    return nil
}

// release undoes a partial Start.
func (c *Coordinator) release() {
    for _, s := range c.sessions {
        _ = s.Close()
    }
    if c.listener != nil {
        if ln := c.listener.listener(); ln != nil {
            _ = ln.Close()
        }
    }
    _ = c.relay.Close()
}

// Run drives every session and the listener until ctx is cancelled.  A
// scanner that is lost is reported and stays down; the others keep going.
// On return all devices are closed, no pulse is in flight and the relay is
// LOW.  Run calls Start if it has not been called.
func (c *Coordinator) Run(ctx context.Context) error {
    c.mu.Lock()
    started := c.started
    c.mu.Unlock()
    if !started {
        if err := c.Start(); err != nil {
            return err
        }
    }

    var wg sync.WaitGroup
    for _, s := range c.sessions {
        wg.Add(1)
        go func(s *ScannerSession) {
            defer wg.Done()
            // A lost device has already been published; it is not restarted.
            _ = s.Run(ctx)
        }(s)
    }
    if c.listener != nil {
        wg.Add(1)
        go func() {
            defer wg.Done()
            if err := c.listener.Serve(ctx); err != nil {
                log.Printf("control listener stopped: %v", err)
            }
        }()
    }

    <-ctx.Done()
    for _, s := range c.sessions {
        if s.State() == StateClosed {
            continue
        }
        _ = s.Close()
        c.events.Publish(Event{Type: EventClosed, Device: s.path, Direction: s.direction})
    }
    wg.Wait()
    return c.relay.Close()
}

// ApplyConfig takes over the settings that can change while running: the
// match code and the default pulse length.  Everything else needs a restart.
// A config identical to the running one is ignored.
func (c *Coordinator) ApplyConfig(cfg Config) {
    c.mu.Lock()
    old := c.cfg
    live := old.MatchCode != cfg.MatchCode || old.PulseMS != cfg.PulseMS
    restart := !sameScanners(old.Scanners, cfg.Scanners) || old.ListenAddr != cfg.ListenAddr || old.RelayPin != cfg.RelayPin
    c.cfg.MatchCode = cfg.MatchCode
    c.cfg.PulseMS = cfg.PulseMS
    c.mu.Unlock()
    if !live && !restart {
        return
    }
    c.match.Set(cfg.MatchCode)
    c.relay.SetDuration(cfg.PulseDuration())
    c.events.Publish(Event{Type: EventConfigReload})
    if restart {
        c.logger.Log("config: scanner, relay or listener changes take effect after a restart")
    }
}

// Config returns the configuration the coordinator is running with.
func (c *Coordinator) Config() Config {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.cfg
}

func sameScanners(a, b []ScannerConfig) bool {
    if len(a) != len(b) {
        return false
    }
    for i := range a {
        if a[i] != b[i] {
            return false
        }
    }
    return true
}

// Relay returns the shared relay.
func (c *Coordinator) Relay() *Relay { return c.relay }

// Events returns the event stream.  Subscribe to it to observe session
// lifecycle, match outcomes and control commands.
func (c *Coordinator) Events() *EventHub { return c.events }

// Sessions returns a status snapshot of every scanner session.
func (c *Coordinator) Sessions() []SessionStatus {
    out := make([]SessionStatus, 0, len(c.sessions))
    for _, s := range c.sessions {
        out = append(out, s.Status())
    }
    return out
}

// ListenAddr returns the control port address, or "" when disabled.
func (c *Coordinator) ListenAddr() string {
    if c.listener == nil {
        return ""
    }
    if a := c.listener.Addr(); a != nil {
        return a.String()
    }
    return c.listener.addr
}
