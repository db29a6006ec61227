package main

import "strings"

// CodeAccumulator folds key-down codes from one scanner into complete
// codes.  It is owned by a single session and is not safe for concurrent use.
type CodeAccumulator struct {
    terminator uint16
    buf        []string
}

// NewCodeAccumulator returns an empty accumulator that completes on
// terminator.
func NewCodeAccumulator(terminator uint16) *CodeAccumulator {
    return &CodeAccumulator{terminator: terminator}
}

// OnKeyDown feeds one key-down code.  On the terminator it returns the
// buffered tokens joined into one string and ok=true, and the buffer is
// empty again whatever the caller does with the result.  An empty string
// is a valid completion.  Any other code is translated and appended.
func (a *CodeAccumulator) OnKeyDown(code uint16) (string, bool) {
    if code == a.terminator {
        completed := strings.Join(a.buf, "")
        a.buf = a.buf[:0]
        return completed, true
    }
    a.buf = append(a.buf, lookupScancode(code))
    return "", false
}

// Len reports how many tokens are buffered.
func (a *CodeAccumulator) Len() int { return len(a.buf) }
