//go:build linux && (arm || arm64) && !disablegpio
// +build linux
// +build arm arm64
// +build !disablegpio

// This file provides a Raspberry Pi implementation of the HAL functions using
// the periph.io library.  When cross‑compiling on other platforms or when
// the build tag "disablegpio" is specified, hal.go will be used instead.

package main

import (
    "fmt"
    // Use the new periph module layout.  See https://periph.io/news/2020/a_new_start/
    "periph.io/x/conn/v3/gpio"
    "periph.io/x/conn/v3/gpio/gpioreg"
    "periph.io/x/host/v3"
)

// initGPIO initialises periph host state.  Returning an error here will
// prevent the coordinator from starting.  host.Init can safely be called
// multiple times; subsequent calls will be no‑ops.
func initGPIO() error {
    _, err := host.Init()
    return err
}

// openOutputPin looks up the pin by its BCM name and drives it LOW.  Pins
// are addressed by their BCM numbers, so board pin 37 is GPIO26.
func openOutputPin(pin int) (OutputLine, error) {
    if err := initGPIO(); err != nil {
        return nil, fmt.Errorf("gpio init: %w", err)
    }
    p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
    if p == nil {
        return nil, fmt.Errorf("gpio: no pin GPIO%d", pin)
    }
    if err := p.Out(gpio.Low); err != nil {
        return nil, fmt.Errorf("gpio: GPIO%d: %w", pin, err)
    }
    return p, nil
}
