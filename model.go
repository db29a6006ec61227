package main

import "time"

// Direction tags a scanner with the way people pass it.  The value is
// handed to the match callback so the door handler can tell entry from
// exit.  Any non-empty label is accepted; "in" and "out" are the usual ones.
type Direction string

const (
    DirectionIn  Direction = "in"
    DirectionOut Direction = "out"
)

// ScannerConfig binds one input device to one direction.  Exactly one
// session is created per entry.
type ScannerConfig struct {
    Device    string    `json:"device" toml:"device"`       // e.g. /dev/barscanner0
    Direction Direction `json:"direction" toml:"direction"` // "in" or "out"
}

// User represents an account that can log in to the admin API.
// Passwords are stored as bcrypt hashes.  The Admin flag indicates
// whether the user may read the event log.
type User struct {
    Username     string `json:"username" toml:"username"`
    PasswordHash string `json:"password_hash" toml:"password_hash"`
    Admin        bool   `json:"admin" toml:"admin"`
}

// AlertConfig describes one alert handler.  Type is "log" or "email";
// the SMTP fields are only read for email alerts.
type AlertConfig struct {
    Type       string `json:"type" toml:"type"`
    SMTPServer string `json:"smtp_server,omitempty" toml:"smtp_server,omitempty"`
    SMTPPort   int    `json:"smtp_port,omitempty" toml:"smtp_port,omitempty"`
    Username   string `json:"username,omitempty" toml:"username,omitempty"`
    Password   string `json:"password,omitempty" toml:"password,omitempty"`
    From       string `json:"from,omitempty" toml:"from,omitempty"`
    To         string `json:"to,omitempty" toml:"to,omitempty"`
    Subject    string `json:"subject,omitempty" toml:"subject,omitempty"`
}

// Config is the top‑level structure serialized to config.json (or
// config.toml).  It holds everything the coordinator needs at startup;
// nothing else is persisted.
type Config struct {
    MatchCode   string          `json:"match_code" toml:"match_code"`     // badge value that opens the door
    RelayPin    int             `json:"relay_pin" toml:"relay_pin"`       // GPIO pin number (BCM numbering)
    PulseMS     int             `json:"pulse_ms" toml:"pulse_ms"`         // default pulse length
    ListenAddr  string          `json:"listen_addr" toml:"listen_addr"`   // control port, empty disables it
    MaxConns    int             `json:"max_conns" toml:"max_conns"`       // concurrent control connections
    ReadTimeout int             `json:"read_timeout" toml:"read_timeout"` // seconds to wait for a command line
    Scanners    []ScannerConfig `json:"scanners" toml:"scanners"`
    LogFile     string          `json:"log_file" toml:"log_file"`
    HTTPPort    int             `json:"http_port" toml:"http_port"` // admin API port, 0 disables it
    CertFile    string          `json:"cert_file" toml:"cert_file"` // PEM certificate, empty serves plain HTTP
    KeyFile     string          `json:"key_file" toml:"key_file"`
    Users       []User          `json:"users" toml:"users"`
    Alerts      []AlertConfig   `json:"alerts" toml:"alerts"`
}

// PulseDuration returns the configured pulse length, falling back to
// the 50ms default when unset.
func (c Config) PulseDuration() time.Duration {
    if c.PulseMS <= 0 {
        return defaultPulse
    }
    return time.Duration(c.PulseMS) * time.Millisecond
}

// ReadTimeoutDuration is how long a control connection may stay silent
// before it is dropped.
func (c Config) ReadTimeoutDuration() time.Duration {
    if c.ReadTimeout <= 0 {
        return defaultReadTimeout
    }
    return time.Duration(c.ReadTimeout) * time.Second
}
