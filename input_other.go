//go:build !linux
// +build !linux

package main

import (
    "fmt"
    "runtime"
)

// openInputDevice is only implemented for Linux evdev.
func openInputDevice(path string) (InputDevice, error) {
    return nil, fmt.Errorf("input devices are not supported on %s", runtime.GOOS)
}
