package main

import (
    "errors"
    "fmt"
    "log"
    "os"
    "strings"
    "sync"
    "time"
)

// EventLogger writes timestamped events to a file.  It is safe for concurrent use.
// With an empty file path events go to the standard logger instead.
type EventLogger struct {
    filePath string
    mu       sync.Mutex
}

// NewEventLogger creates a logger writing to filePath.  The file is created on
// the first write.  File rotation by date can be added later.
func NewEventLogger(filePath string) *EventLogger {
    return &EventLogger{filePath: filePath}
}

// Log writes a single event with timestamp.  Errors are ignored but printed
// to standard error.
func (el *EventLogger) Log(format string, args ...any) {
    msg := fmt.Sprintf(format, args...)
    if el.filePath == "" {
        log.Print(msg)
        return
    }
    el.mu.Lock()
    defer el.mu.Unlock()
    ts := time.Now().Format(time.RFC3339)
    line := fmt.Sprintf("%s - %s\n", ts, msg)
    // Open file in append mode, create if not exists
    f, err := os.OpenFile(el.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
    if err != nil {
        fmt.Fprintf(os.Stderr, "log error: %v\n", err)
        return
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        fmt.Fprintf(os.Stderr, "log write error: %v\n", err)
    }
}

// LogEvent writes one coordinator event in the log's plain-text form.
func (el *EventLogger) LogEvent(ev Event) {
    switch ev.Type {
    case EventGrabbed:
        if ev.Code != "" {
            el.Log("scanner %s (%s) grabbed: %s", ev.Device, ev.Direction, ev.Code)
        } else {
            el.Log("scanner %s (%s) grabbed", ev.Device, ev.Direction)
        }
    case EventReading:
        el.Log("scanner %s (%s) reading", ev.Device, ev.Direction)
    case EventMatch:
        el.Log("read code %q on %s: code match success", ev.Code, ev.Device)
        switch ev.Direction {
        case DirectionIn:
            el.Log("entering via %s", ev.Device)
        case DirectionOut:
            el.Log("exiting via %s", ev.Device)
        default:
            el.Log("passage %s via %s", ev.Direction, ev.Device)
        }
    case EventMismatch:
        el.Log("read code %q on %s: code match failed", ev.Code, ev.Device)
    case EventDeviceLost:
        el.Log("scanner %s (%s) lost: %s", ev.Device, ev.Direction, ev.Err)
    case EventClosed:
        el.Log("scanner %s (%s) closed", ev.Device, ev.Direction)
    case EventCommand:
        el.Log("control %s: %s", ev.Remote, ev.Code)
    case EventRejected:
        if ev.Err != "" {
            el.Log("control %s: no command (%s)", ev.Remote, ev.Err)
        } else {
            el.Log("control %s: ignored %q", ev.Remote, ev.Code)
        }
    case EventPulseError:
        el.Log("relay pulse failed: %s", ev.Err)
    case EventConfigReload:
        if ev.Err != "" {
            el.Log("config reload: %s", ev.Err)
        } else {
            el.Log("config reloaded")
        }
    default:
        el.Log("%s %s %s", ev.Type, ev.Device, ev.Err)
    }
}

// Tail returns the last n lines of the log file, oldest first.
func (el *EventLogger) Tail(n int) ([]string, error) {
    if el.filePath == "" {
        return nil, errors.New("event log is not written to a file")
    }
    el.mu.Lock()
    data, err := os.ReadFile(el.filePath)
    el.mu.Unlock()
    if err != nil {
        return nil, err
    }
    lines := strings.Split(string(data), "\n")
    // Drop empty trailing line
    if len(lines) > 0 && lines[len(lines)-1] == "" {
        lines = lines[:len(lines)-1]
    }
    if n > 0 && len(lines) > n {
        lines = lines[len(lines)-n:]
    }
    return lines, nil
}
