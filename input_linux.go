//go:build linux
// +build linux

package main

import (
    "sync"

    evdev "github.com/holoplot/go-evdev"
)

// evdevDevice reads a scanner through the Linux evdev interface.
type evdevDevice struct {
    dev       *evdev.InputDevice
    closeOnce sync.Once
    closeErr  error
}

// openInputDevice opens an evdev node such as /dev/input/event3 or a udev
// symlink like /dev/barscanner0.
func openInputDevice(path string) (InputDevice, error) {
    dev, err := evdev.Open(path)
    if err != nil {
        return nil, err
    }
    return &evdevDevice{dev: dev}, nil
}

func (d *evdevDevice) Grab() error {
    return d.dev.Grab()
}

func (d *evdevDevice) ReadEvent() (InputEvent, error) {
    ev, err := d.dev.ReadOne()
    if err != nil {
        return InputEvent{}, err
    }
    kind := EventOther
    if ev.Type == evdev.EV_KEY {
        kind = EventKey
    }
    return InputEvent{Kind: kind, Code: uint16(ev.Code), Value: ev.Value}, nil
}

func (d *evdevDevice) Close() error {
    d.closeOnce.Do(func() {
        // Ungrab fails once the device is unplugged; closing still matters.
        _ = d.dev.Ungrab()
        d.closeErr = d.dev.Close()
    })
    return d.closeErr
}

// Name returns the kernel's name for the device, or "unknown".
func (d *evdevDevice) Name() string {
    name, err := d.dev.Name()
    if err != nil {
        return "unknown"
    }
    return name
}
