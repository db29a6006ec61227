package main

import (
    "crypto/rand"
    "encoding/base64"
    "sort"
    "sync"
    "time"

    "golang.org/x/crypto/bcrypt"
)

// hashPassword bcrypts a password for the users list.  It panics on failure,
// which only happens for passwords longer than bcrypt accepts.
func hashPassword(password string) string {
    hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
    if err != nil {
        panic(err)
    }
    return string(hash)
}

// checkPasswordHash returns nil when password matches hash.
func checkPasswordHash(password, hash string) error {
    return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// LoginSession is one logged-in admin API client.  Admins see the list of
// open logins in the status response.
type LoginSession struct {
    Username string    `json:"username"`
    Admin    bool      `json:"admin"`
    Started  time.Time `json:"started"`
    Expires  time.Time `json:"expires"`
}

func (s LoginSession) expired(now time.Time) bool {
    return !now.Before(s.Expires)
}

// SessionManager holds the admin API logins in memory.  A restart logs
// everybody out.
type SessionManager struct {
    mu   sync.Mutex
    ttl  time.Duration
    now  func() time.Time
    byID map[string]LoginSession
}

// NewSessionManager returns an empty store whose logins last ttl.
func NewSessionManager(ttl time.Duration) *SessionManager {
    return &SessionManager{ttl: ttl, now: time.Now, byID: make(map[string]LoginSession)}
}

// Create logs u in and returns the cookie value for the new session.
func (sm *SessionManager) Create(u User) (string, LoginSession, error) {
    id, err := newSessionID()
    if err != nil {
        return "", LoginSession{}, err
    }
    sm.mu.Lock()
    defer sm.mu.Unlock()
    now := sm.now()
    s := LoginSession{Username: u.Username, Admin: u.Admin, Started: now, Expires: now.Add(sm.ttl)}
    sm.byID[id] = s
    return id, s, nil
}

// Lookup returns the live session for id.
func (sm *SessionManager) Lookup(id string) (LoginSession, bool) {
    sm.mu.Lock()
    defer sm.mu.Unlock()
    s, ok := sm.byID[id]
    if !ok || s.expired(sm.now()) {
        return LoginSession{}, false
    }
    return s, true
}

// End logs the session out and returns who it belonged to.
func (sm *SessionManager) End(id string) (LoginSession, bool) {
    sm.mu.Lock()
    defer sm.mu.Unlock()
    s, ok := sm.byID[id]
    delete(sm.byID, id)
    return s, ok
}

// Active lists the live sessions, oldest login first.
func (sm *SessionManager) Active() []LoginSession {
    sm.mu.Lock()
    defer sm.mu.Unlock()
    now := sm.now()
    out := make([]LoginSession, 0, len(sm.byID))
    for _, s := range sm.byID {
        if !s.expired(now) {
            out = append(out, s)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
    return out
}

// Purge drops expired sessions and returns how many there were.
func (sm *SessionManager) Purge() int {
    sm.mu.Lock()
    defer sm.mu.Unlock()
    now := sm.now()
    n := 0
    for id, s := range sm.byID {
        if s.expired(now) {
            delete(sm.byID, id)
            n++
        }
    }
    return n
}

// newSessionID returns 32 random bytes, URL-safe base64 encoded.
func newSessionID() (string, error) {
    b := make([]byte, 32)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return base64.RawURLEncoding.EncodeToString(b), nil
}
