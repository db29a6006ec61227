package main

import (
    "context"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    cm := NewConfigManager(path)
    require.NoError(t, cm.Load())

    cfg := cm.Get()
    assert.Equal(t, "9051203990002", cfg.MatchCode)
    assert.Equal(t, 26, cfg.RelayPin)
    assert.Equal(t, ":8888", cfg.ListenAddr)
    assert.Equal(t, defaultPulse, cfg.PulseDuration())
    require.Len(t, cfg.Scanners, 2)
    assert.Equal(t, ScannerConfig{Device: "/dev/barscanner0", Direction: DirectionIn}, cfg.Scanners[0])
    assert.Equal(t, ScannerConfig{Device: "/dev/barscanner1", Direction: DirectionOut}, cfg.Scanners[1])
    assert.FileExists(t, path)

    user, err := cm.Authenticate("admin", "admin")
    require.NoError(t, err)
    assert.True(t, user.Admin)
    _, err = cm.Authenticate("admin", "wrong")
    assert.Error(t, err)

    // A second manager reads back what was written.
    again := NewConfigManager(path)
    require.NoError(t, again.Load())
    assert.Equal(t, cfg.Scanners, again.Get().Scanners)
}

func TestLoadTOML(t *testing.T) {
    path := filepath.Join(t.TempDir(), "barrier.toml")
    data := `
match_code = "ABC123"
relay_pin = 17
pulse_ms = 120
listen_addr = "127.0.0.1:9000"
read_timeout = 2

[[scanners]]
device = "/dev/input/event3"
direction = "in"

[[scanners]]
device = "/dev/input/event4"
direction = "out"
`
    require.NoError(t, os.WriteFile(path, []byte(data), 0600))

    cm := NewConfigManager(path)
    require.NoError(t, cm.Load())
    cfg := cm.Get()
    assert.Equal(t, "ABC123", cfg.MatchCode)
    assert.Equal(t, 17, cfg.RelayPin)
    assert.Equal(t, 120*time.Millisecond, cfg.PulseDuration())
    assert.Equal(t, 2*time.Second, cfg.ReadTimeoutDuration())
    require.Len(t, cfg.Scanners, 2)
    assert.Equal(t, DirectionOut, cfg.Scanners[1].Direction)

    require.NoError(t, cm.Update(func(c *Config) error {
        c.MatchCode = "XYZ"
        return nil
    }))
    again := NewConfigManager(path)
    require.NoError(t, again.Load())
    assert.Equal(t, "XYZ", again.Get().MatchCode)
}

func TestLoadRejectsBadFiles(t *testing.T) {
    dir := t.TempDir()

    garbled := filepath.Join(dir, "garbled.json")
    require.NoError(t, os.WriteFile(garbled, []byte("{not json"), 0600))
    assert.Error(t, NewConfigManager(garbled).Load())

    invalid := filepath.Join(dir, "invalid.json")
    require.NoError(t, os.WriteFile(invalid, []byte(`{"match_code": "", "listen_addr": ":8888"}`), 0600))
    assert.Error(t, NewConfigManager(invalid).Load())
}

func TestValidate(t *testing.T) {
    valid := Config{MatchCode: "x", ListenAddr: ":8888"}
    require.NoError(t, valid.Validate())

    cases := map[string]func(*Config){
        "empty match code":  func(c *Config) { c.MatchCode = "" },
        "negative pulse":    func(c *Config) { c.PulseMS = -1 },
        "negative conns":    func(c *Config) { c.MaxConns = -1 },
        "bad http port":     func(c *Config) { c.HTTPPort = 70000 },
        "nothing to run":    func(c *Config) { c.ListenAddr = "" },
        "scanner no device": func(c *Config) { c.Scanners = []ScannerConfig{{Direction: DirectionIn}} },
        "scanner no dir":    func(c *Config) { c.Scanners = []ScannerConfig{{Device: "/dev/a"}} },
        "duplicate device": func(c *Config) {
            c.Scanners = []ScannerConfig{{Device: "/dev/a", Direction: DirectionIn}, {Device: "/dev/a", Direction: DirectionOut}}
        },
    }
    for name, mutate := range cases {
        t.Run(name, func(t *testing.T) {
            c := valid
            mutate(&c)
            assert.Error(t, c.Validate())
        })
    }
}

func TestUpdateRejectsInvalid(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    cm := NewConfigManager(path)
    require.NoError(t, cm.Load())

    err := cm.Update(func(c *Config) error {
        c.MatchCode = ""
        return nil
    })
    assert.Error(t, err)
    assert.Equal(t, "9051203990002", cm.Get().MatchCode)
}

func TestWatchReloads(t *testing.T) {
    path := filepath.Join(t.TempDir(), "config.json")
    cm := NewConfigManager(path)
    require.NoError(t, cm.Load())

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    changes := make(chan Config, 8)
    failures := make(chan error, 8)
    done := make(chan error, 1)
    go func() {
        done <- cm.Watch(ctx, func(c Config) { changes <- c }, func(err error) { failures <- err })
    }()

    // Give the watcher time to register the directory.
    time.Sleep(100 * time.Millisecond)
    next := cm.Get()
    next.MatchCode = "NEWCODE"
    next.PulseMS = 75
    writeJSONConfig(t, path, next)

    select {
    case c := <-changes:
        assert.Equal(t, "NEWCODE", c.MatchCode)
        assert.Equal(t, 75*time.Millisecond, c.PulseDuration())
    case <-time.After(3 * time.Second):
        t.Fatal("no reload seen")
    }
    assert.Equal(t, "NEWCODE", cm.Get().MatchCode)

    require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))
    select {
    case err := <-failures:
        assert.Error(t, err)
    case <-time.After(3 * time.Second):
        t.Fatal("no reload failure seen")
    }
    assert.Equal(t, "NEWCODE", cm.Get().MatchCode)

    cancel()
    assert.NoError(t, <-done)
}

func writeJSONConfig(t *testing.T, path string, cfg Config) {
    t.Helper()
    cm := NewConfigManager(path)
    cm.cfg = cfg
    cm.loaded = true
    require.NoError(t, cm.Save())
}
