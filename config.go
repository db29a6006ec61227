package main

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"

    "github.com/BurntSushi/toml"
    "github.com/fsnotify/fsnotify"
)

// defaultConfigPath is the default filename for persisted configuration.
const defaultConfigPath = "config.json"

// ConfigManager wraps the loaded configuration and a mutex for concurrent access.
// The file format follows the extension of path: ".toml" files are read and
// written as TOML, anything else as JSON.
type ConfigManager struct {
    mu     sync.RWMutex
    path   string
    cfg    Config
    loaded bool
}

// NewConfigManager returns a manager bound to path.  An empty path selects
// config.json in the working directory.
func NewConfigManager(path string) *ConfigManager {
    if path == "" {
        path = defaultConfigPath
    }
    return &ConfigManager{path: path}
}

// defaultConfig mirrors the original two-scanner door: one scanner per
// direction, relay on BCM GPIO26 (board pin 37) and the control port on 8888.
func defaultConfig() Config {
    return Config{
        MatchCode:   "9051203990002",
        RelayPin:    26,
        PulseMS:     50,
        ListenAddr:  ":8888",
        MaxConns:    defaultMaxConns,
        ReadTimeout: 5,
        Scanners: []ScannerConfig{
            {Device: "/dev/barscanner0", Direction: DirectionIn},
            {Device: "/dev/barscanner1", Direction: DirectionOut},
        },
        LogFile:  "events.log",
        HTTPPort: 0,
        Users: []User{
            {Username: "admin", PasswordHash: hashPassword("admin"), Admin: true},
        },
        Alerts: []AlertConfig{{Type: "log"}},
    }
}

// Load reads configuration from disk.  If the file does not exist, a default
// configuration is created with a single admin user (password: "admin", which
// you should change immediately) and persisted to disk.
func (cm *ConfigManager) Load() error {
    cm.mu.Lock()
    // If the config is already loaded in memory, release the lock and return.
    if cm.loaded {
        cm.mu.Unlock()
        return nil
    }
    cfg, err := readConfigFile(cm.path)
    if err != nil {
        if errors.Is(err, os.ErrNotExist) {
            cm.cfg = defaultConfig()
            cm.loaded = true
            // Release the write lock before saving to avoid deadlock: Save acquires
            // a read lock on the same mutex.
            cm.mu.Unlock()
            return cm.Save()
        }
        cm.mu.Unlock()
        return err
    }
    if err := cfg.Validate(); err != nil {
        cm.mu.Unlock()
        return fmt.Errorf("invalid %s: %w", cm.path, err)
    }
    cm.cfg = cfg
    cm.loaded = true
    cm.mu.Unlock()
    return nil
}

// readConfigFile decodes path according to its extension.  Missing fields
// keep their zero values; Config's helpers supply the defaults.
func readConfigFile(path string) (Config, error) {
    var cfg Config
    data, err := os.ReadFile(path)
    if err != nil {
        if os.IsNotExist(err) {
            return cfg, err
        }
        return cfg, fmt.Errorf("unable to read config: %w", err)
    }
    if isTOML(path) {
        if _, err := toml.Decode(string(data), &cfg); err != nil {
            return cfg, fmt.Errorf("invalid %s: %w", path, err)
        }
        return cfg, nil
    }
    if err := json.Unmarshal(data, &cfg); err != nil {
        return cfg, fmt.Errorf("invalid %s: %w", path, err)
    }
    return cfg, nil
}

func isTOML(path string) bool {
    return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Save writes the configuration to disk through a temporary file and a rename.
func (cm *ConfigManager) Save() error {
    cm.mu.RLock()
    defer cm.mu.RUnlock()

    var buf bytes.Buffer
    if isTOML(cm.path) {
        if err := toml.NewEncoder(&buf).Encode(cm.cfg); err != nil {
            return err
        }
    } else {
        data, err := json.MarshalIndent(cm.cfg, "", "  ")
        if err != nil {
            return err
        }
        buf.Write(data)
    }
    tmpPath := cm.path + ".tmp"
    if err := os.WriteFile(tmpPath, buf.Bytes(), 0600); err != nil {
        return err
    }
    return os.Rename(tmpPath, cm.path)
}

// Get returns a copy of the current configuration.  Callers must treat the
// returned Config as immutable.
func (cm *ConfigManager) Get() Config {
    cm.mu.RLock()
    defer cm.mu.RUnlock()
    return cm.cfg
}

// Update applies a user supplied function to modify the configuration.  It
// holds the write lock, calls the supplied function with a pointer to the
// internal config, validates the result and then persists the change.  The
// updater must not capture the pointer beyond the scope of the function.
func (cm *ConfigManager) Update(fn func(*Config) error) error {
    cm.mu.Lock()
    next := cm.cfg
    if err := fn(&next); err != nil {
        cm.mu.Unlock()
        return err
    }
    if err := next.Validate(); err != nil {
        cm.mu.Unlock()
        return err
    }
    cm.cfg = next
    // Release the lock before saving to avoid deadlock: Save acquires a read
    // lock on the same mutex.
    cm.mu.Unlock()
    return cm.Save()
}

// FindUser returns a user and its index by username.  If not found, index
// will be -1.
func (cm *ConfigManager) FindUser(username string) (User, int) {
    cm.mu.RLock()
    defer cm.mu.RUnlock()
    for i, u := range cm.cfg.Users {
        if u.Username == username {
            return u, i
        }
    }
    return User{}, -1
}

// Authenticate checks whether the provided username and password are valid.  It
// returns the user object if authentication succeeds.
func (cm *ConfigManager) Authenticate(username, password string) (User, error) {
    user, _ := cm.FindUser(username)
    if user.Username == "" {
        return User{}, errors.New("invalid credentials")
    }
    if err := checkPasswordHash(password, user.PasswordHash); err != nil {
        return User{}, errors.New("invalid credentials")
    }
    return user, nil
}

// Watch reloads the file whenever it changes on disk and hands every valid
// new configuration to onChange.  Invalid edits are reported through onError
// and the previous configuration stays in effect.  Watch blocks until ctx is
// done.  The parent directory is watched because editors usually replace the
// file rather than write it in place.
func (cm *ConfigManager) Watch(ctx context.Context, onChange func(Config), onError func(error)) error {
    watcher, err := fsnotify.NewWatcher()
    if err != nil {
        return fmt.Errorf("config watcher: %w", err)
    }
    defer watcher.Close()

    abs, err := filepath.Abs(cm.path)
    if err != nil {
        return err
    }
    if err := watcher.Add(filepath.Dir(abs)); err != nil {
        return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
    }

    for {
        select {
        case <-ctx.Done():
            return nil
        case ev, ok := <-watcher.Events:
            if !ok {
                return nil
            }
            if filepath.Clean(ev.Name) != abs {
                continue
            }
            if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
                continue
            }
            cfg, err := cm.reload()
            if err != nil {
                if onError != nil {
                    onError(err)
                }
                continue
            }
            if onChange != nil {
                onChange(cfg)
            }
        case err, ok := <-watcher.Errors:
            if !ok {
                return nil
            }
            if onError != nil {
                onError(err)
            }
        }
    }
}

// reload re-reads the file and swaps it in when it validates.
func (cm *ConfigManager) reload() (Config, error) {
    cfg, err := readConfigFile(cm.path)
    if err != nil {
        return Config{}, err
    }
    if err := cfg.Validate(); err != nil {
        return Config{}, fmt.Errorf("invalid %s: %w", cm.path, err)
    }
    cm.mu.Lock()
    cm.cfg = cfg
    cm.loaded = true
    cm.mu.Unlock()
    return cfg, nil
}

// Validate checks the values the coordinator cannot run without.
func (c Config) Validate() error {
    if c.MatchCode == "" {
        return errors.New("match_code must not be empty")
    }
    if c.PulseMS < 0 {
        return fmt.Errorf("pulse_ms must not be negative (got %d)", c.PulseMS)
    }
    if c.MaxConns < 0 {
        return fmt.Errorf("max_conns must not be negative (got %d)", c.MaxConns)
    }
    if c.HTTPPort < 0 || c.HTTPPort > 65535 {
        return fmt.Errorf("http_port out of range (got %d)", c.HTTPPort)
    }
    seen := make(map[string]bool)
    for i, sc := range c.Scanners {
        if sc.Device == "" {
            return fmt.Errorf("scanners[%d]: device must not be empty", i)
        }
        if sc.Direction == "" {
            return fmt.Errorf("scanners[%d]: direction must not be empty", i)
        }
        if seen[sc.Device] {
            return fmt.Errorf("scanners[%d]: device %s configured twice", i, sc.Device)
        }
        seen[sc.Device] = true
    }
    if len(c.Scanners) == 0 && c.ListenAddr == "" && c.HTTPPort == 0 {
        return errors.New("nothing to do: no scanners, no listen_addr and no http_port")
    }
    return nil
}
