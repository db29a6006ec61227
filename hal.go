//go:build !linux || !(arm || arm64) || disablegpio
// +build !linux !arm,!arm64 disablegpio

package main

// This file is the stub hardware abstraction layer.  It lets the
// coordinator run on a desktop machine without Raspberry Pi hardware: the
// relay line only records its level and logs transitions.  hal_rpi.go
// replaces it on the Pi.

import (
    "log"
    "sync"

    "periph.io/x/conn/v3/gpio"
)

// stubLine stands in for a GPIO output.
type stubLine struct {
    mu    sync.Mutex
    pin   int
    level gpio.Level
}

func (s *stubLine) Out(l gpio.Level) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if l != s.level {
        log.Printf("gpio stub: GPIO%d -> %s", s.pin, l)
    }
    s.level = l
    return nil
}

// openOutputPin returns the output line for the given BCM pin.
func openOutputPin(pin int) (OutputLine, error) {
    return &stubLine{pin: pin, level: gpio.Low}, nil
}
