package main

// This file implements the control port.  The protocol is one line per
// connection: a client sends "open\n", the relay pulses and the server hangs
// up.  Anything else gets the same hang-up and no pulse.  There is no reply.

import (
    "bufio"
    "context"
    "errors"
    "fmt"
    "io"
    "net"
    "strings"
    "sync"
    "time"
    "unicode/utf8"
)

const (
    openCommand        = "open"
    maxCommandLine     = 256 // bytes including the line break
    defaultMaxConns    = 16
    defaultReadTimeout = 5 * time.Second

    // openPulse is fixed by the protocol; pulse_ms only changes the
    // pulse a scanner match fires.
    openPulse = 50 * time.Millisecond
)

// pulser is the part of Relay the listener needs.
type pulser interface {
    Pulse(d time.Duration) error
}

// ControlListener accepts control connections and pulses the relay on the
// open command.
type ControlListener struct {
    addr        string
    relay       pulser
    maxConns    int
    readTimeout time.Duration
    publish     func(Event)

    mu sync.Mutex
    ln net.Listener
}

// NewControlListener returns a listener for addr.  maxConns bounds how many
// connections are handled at once; readTimeout bounds how long a client may
// take to send its line.
func NewControlListener(addr string, relay pulser, maxConns int, readTimeout time.Duration, publish func(Event)) *ControlListener {
    if maxConns <= 0 {
        maxConns = defaultMaxConns
    }
    if readTimeout <= 0 {
        readTimeout = defaultReadTimeout
    }
    if publish == nil {
        publish = func(Event) {}
    }
    return &ControlListener{
        addr:        addr,
        relay:       relay,
        maxConns:    maxConns,
        readTimeout: readTimeout,
        publish:     publish,
    }
}

// Listen binds the TCP address.  It is separate from Serve so a bind failure
// is reported at startup.
func (l *ControlListener) Listen() error {
    ln, err := net.Listen("tcp", l.addr)
    if err != nil {
        return fmt.Errorf("listen on %s: %w", l.addr, err)
    }
    l.mu.Lock()
    l.ln = ln
    l.mu.Unlock()
    return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *ControlListener) Addr() net.Addr {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.ln == nil {
        return nil
    }
    return l.ln.Addr()
}

// Serve accepts connections until ctx is done.  It returns after every
// connection handler has finished, so a pulse started by a client completes
// before Serve returns.  Clients that have not sent their line yet are cut
// off when ctx is done.
func (l *ControlListener) Serve(ctx context.Context) error {
    if l.listener() == nil {
        if err := l.Listen(); err != nil {
            return err
        }
    }
    ln := l.listener()
    defer ln.Close()

    // Shut the listener down when the context expires.
    go func() {
        <-ctx.Done()
        ln.Close()
    }()

    var wg sync.WaitGroup
    defer wg.Wait()
    sem := make(chan struct{}, l.maxConns)

    for {
        select {
        case sem <- struct{}{}:
        case <-ctx.Done():
            return nil
        }
        conn, err := ln.Accept()
        if err != nil {
            <-sem
            select {
            case <-ctx.Done():
                return nil
            default:
            }
            if errors.Is(err, net.ErrClosed) {
                return nil
            }
            // Resource exhaustion and similar: back off and keep serving.
            time.Sleep(50 * time.Millisecond)
            continue
        }
        wg.Add(1)
        go func() {
            defer wg.Done()
            defer func() { <-sem }()
            l.handle(ctx, conn)
        }()
    }
}

func (l *ControlListener) listener() net.Listener {
    l.mu.Lock()
    defer l.mu.Unlock()
    return l.ln
}

// handle runs one connection: read a line, maybe pulse, close.
func (l *ControlListener) handle(ctx context.Context, conn net.Conn) {
    defer conn.Close()
    remote := conn.RemoteAddr().String()
    _ = conn.SetReadDeadline(time.Now().Add(l.readTimeout))

    // A pending read fails at once on shutdown.  Once the line is in, the
    // deadline no longer matters and a pulse runs to completion.
    read := make(chan struct{})
    go func() {
        select {
        case <-ctx.Done():
            _ = conn.SetReadDeadline(time.Now())
        case <-read:
        }
    }()
    cmd, err := readCommand(conn)
    close(read)
    if err != nil {
        l.publish(Event{Type: EventRejected, Remote: remote, Err: err.Error()})
        return
    }
    if cmd != openCommand {
        l.publish(Event{Type: EventRejected, Remote: remote, Code: cmd})
        return
    }
    l.publish(Event{Type: EventCommand, Remote: remote, Code: cmd})
    if err := l.relay.Pulse(openPulse); err != nil {
        l.publish(Event{Type: EventPulseError, Remote: remote, Err: err.Error()})
    }
}

// readCommand returns the first line sent on r without its terminator.  A
// stream that ends before a line break, a line longer than maxCommandLine or
// text that is not UTF-8 is an error.  Anything after the first line is
// ignored.
func readCommand(r io.Reader) (string, error) {
    br := bufio.NewReaderSize(io.LimitReader(r, maxCommandLine), maxCommandLine)
    line, err := br.ReadString('\n')
    if err != nil {
        if errors.Is(err, io.EOF) {
            if len(line) >= maxCommandLine {
                return "", errors.New("command line too long")
            }
            return "", errors.New("connection closed before a complete line")
        }
        return "", err
    }
    line = strings.TrimSuffix(line, "\n")
    line = strings.TrimSuffix(line, "\r")
    if !utf8.ValidString(line) {
        return "", errors.New("command is not valid UTF-8")
    }
    return line, nil
}
