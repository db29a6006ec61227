package main

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLookupScancode(t *testing.T) {
    cases := []struct {
        code uint16
        want string
    }{
        {2, "1"},
        {11, "0"},
        {30, "A"},
        {43, `\`},
        {28, "CRLF"},
        {100, "RALT"},
        {0, "UNKNOWN:[0]"},
        {55, "UNKNOWN:[55]"},
        {65535, "UNKNOWN:[65535]"},
    }
    for _, c := range cases {
        assert.Equal(t, c.want, lookupScancode(c.code), "code %d", c.code)
    }
}

func TestAccumulatorGrowsUntilTerminator(t *testing.T) {
    acc := NewCodeAccumulator(terminatorCode)
    codes := []uint16{2, 3, 4, 99, 0, 30, 57}
    for i, code := range codes {
        got, done := acc.OnKeyDown(code)
        assert.False(t, done)
        assert.Empty(t, got)
        assert.Equal(t, i+1, acc.Len())
    }
}

func TestAccumulatorCompletes(t *testing.T) {
    cases := []struct {
        name  string
        codes []uint16
        want  string
    }{
        {"empty", nil, ""},
        {"digits", []uint16{10, 11, 6, 2}, "9051"},
        {"letters", []uint16{30, 48, 46}, "ABC"},
        {"unmapped", []uint16{2, 99, 3}, "1UNKNOWN:[99]2"},
        {"named keys", []uint16{42, 30}, "LSHFTA"},
    }
    for _, c := range cases {
        t.Run(c.name, func(t *testing.T) {
            acc := NewCodeAccumulator(terminatorCode)
            for _, code := range c.codes {
                _, done := acc.OnKeyDown(code)
                require.False(t, done)
            }
            got, done := acc.OnKeyDown(terminatorCode)
            require.True(t, done)
            assert.Equal(t, c.want, got)
            assert.Zero(t, acc.Len())
        })
    }
}

func TestAccumulatorNoCarryOver(t *testing.T) {
    acc := NewCodeAccumulator(terminatorCode)
    for _, code := range []uint16{2, 3, 4} {
        acc.OnKeyDown(code)
    }
    first, done := acc.OnKeyDown(terminatorCode)
    require.True(t, done)
    assert.Equal(t, "123", first)

    acc.OnKeyDown(5)
    second, done := acc.OnKeyDown(terminatorCode)
    require.True(t, done)
    assert.Equal(t, "4", second)

    third, done := acc.OnKeyDown(terminatorCode)
    require.True(t, done)
    assert.Equal(t, "", third)
}
