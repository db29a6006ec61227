package main

// EventKind separates key events from everything else an input device
// reports (sync, misc, LEDs).
type EventKind int

const (
    EventOther EventKind = iota
    EventKey
)

// Key event values as reported by the kernel.
const (
    keyReleased int32 = 0
    keyPressed  int32 = 1
    keyRepeated int32 = 2
)

// InputEvent is one raw event from a scanner.
type InputEvent struct {
    Kind  EventKind
    Code  uint16
    Value int32 // for key events: 0 release, 1 press, 2 auto-repeat
}

// KeyDown reports whether the event is a fresh key press.  Releases and
// auto-repeats are not.
func (e InputEvent) KeyDown() bool {
    return e.Kind == EventKey && e.Value == keyPressed
}

// InputDevice is an open scanner handle.
type InputDevice interface {
    // Grab takes exclusive access so no other reader sees the keystrokes.
    Grab() error
    // ReadEvent blocks until the next event arrives.  Any error means the
    // device is gone; the handle is not usable afterwards.
    ReadEvent() (InputEvent, error)
    // Close releases the grab and the handle.  It unblocks ReadEvent.
    Close() error
    // Name is the name the device reports about itself, for the log.
    Name() string
}

// DeviceOpener opens the device at path.
type DeviceOpener func(path string) (InputDevice, error)
