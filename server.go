package main

import (
    "context"
    "crypto/tls"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "net/http"
    "strconv"
    "time"
)

// sessionTTL is how long an admin login stays valid.
const sessionTTL = 24 * time.Hour

// Server is the optional admin API.  It shows what the coordinator is doing
// and lets a logged-in user open the door.
type Server struct {
    cfgMgr   *ConfigManager
    coord    *Coordinator
    sessions *SessionManager
    logger   *EventLogger
    secure   bool // cookies are only sent back over TLS
}

// NewServer constructs the admin API for coord.
func NewServer(cfgMgr *ConfigManager, coord *Coordinator, logger *EventLogger) *Server {
    cfg := cfgMgr.Get()
    return &Server{
        cfgMgr:   cfgMgr,
        coord:    coord,
        sessions: NewSessionManager(sessionTTL),
        logger:   logger,
        secure:   cfg.CertFile != "",
    }
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
    mux := http.NewServeMux()
    mux.HandleFunc("/api/login", s.handleLogin)
    mux.HandleFunc("/api/logout", s.handleLogout)
    mux.HandleFunc("/api/status", s.withAuth(s.handleStatus))
    mux.HandleFunc("/api/open", s.withAuth(s.handleOpen))
    mux.HandleFunc("/api/logs", s.withAuth(s.handleLogs))
    mux.HandleFunc("/api/config", s.withAuth(s.handleConfig))
    return mux
}

// Start serves the API until ctx is done.  It serves HTTPS when a
// certificate is configured and plain HTTP otherwise.
func (s *Server) Start(ctx context.Context) error {
    cfg := s.cfgMgr.Get()
    addr := fmt.Sprintf(":%d", cfg.HTTPPort)

    // TLS configuration: use modern defaults
    srv := &http.Server{
        Addr:              addr,
        Handler:           s.Handler(),
        TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
        ReadHeaderTimeout: 10 * time.Second,
    }

    go s.purgeSessions(ctx)
    go func() {
        <-ctx.Done()
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = srv.Shutdown(shutdownCtx)
    }()

    var err error
    if cfg.CertFile != "" {
        log.Printf("admin API listening on https://0.0.0.0%s\n", addr)
        err = srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
    } else {
        log.Printf("admin API listening on http://0.0.0.0%s\n", addr)
        err = srv.ListenAndServe()
    }
    if errors.Is(err, http.ErrServerClosed) {
        return nil
    }
    return err
}

// purgeSessions drops expired logins once an hour.
func (s *Server) purgeSessions(ctx context.Context) {
    t := time.NewTicker(time.Hour)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            if n := s.sessions.Purge(); n > 0 {
                s.logger.Log("dropped %d expired login(s)", n)
            }
        }
    }
}

// withAuth wraps handlers that require a valid session.  If the request
// contains a valid "session" cookie, it calls the underlying handler with
// the user; otherwise it responds with 401.
func (s *Server) withAuth(handler func(http.ResponseWriter, *http.Request, User)) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        cookie, err := r.Cookie("session")
        if err != nil {
            http.Error(w, "unauthenticated", http.StatusUnauthorized)
            return
        }
        sess, ok := s.sessions.Lookup(cookie.Value)
        if !ok {
            http.Error(w, "session expired", http.StatusUnauthorized)
            return
        }
        user, _ := s.cfgMgr.FindUser(sess.Username)
        if user.Username == "" {
            http.Error(w, "unknown user", http.StatusUnauthorized)
            return
        }
        handler(w, r, user)
    }
}

// handleLogin authenticates a user and sets a session cookie.  Expected JSON:
// {"username":"...","password":"..."}
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    var creds struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
        http.Error(w, "invalid JSON", http.StatusBadRequest)
        return
    }
    user, err := s.cfgMgr.Authenticate(creds.Username, creds.Password)
    if err != nil {
        http.Error(w, "invalid credentials", http.StatusUnauthorized)
        return
    }
    sessID, sess, err := s.sessions.Create(user)
    if err != nil {
        http.Error(w, "failed to create session", http.StatusInternalServerError)
        return
    }
    http.SetCookie(w, &http.Cookie{
        Name:     "session",
        Value:    sessID,
        Path:     "/",
        HttpOnly: true,
        Secure:   s.secure,
        SameSite: http.SameSiteStrictMode,
        Expires:  sess.Expires,
    })
    s.logger.Log("login %s", user.Username)
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleLogout deletes the session cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    who := "unknown session"
    if cookie, err := r.Cookie("session"); err == nil {
        if sess, ok := s.sessions.End(cookie.Value); ok {
            who = sess.Username
        }
    }
    http.SetCookie(w, &http.Cookie{
        Name:     "session",
        Value:    "",
        Path:     "/",
        HttpOnly: true,
        Secure:   s.secure,
        Expires:  time.Unix(0, 0),
    })
    s.logger.Log("logout %s", who)
    w.WriteHeader(http.StatusNoContent)
}

// handleStatus returns scanner states, relay counters and recent events.
// Admins also get the list of open logins.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, user User) {
    if r.Method != http.MethodGet {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    type status struct {
        Scanners    []SessionStatus `json:"scanners"`
        Relay       RelayStats      `json:"relay"`
        ControlAddr string          `json:"control_addr,omitempty"`
        Events      []Event         `json:"events"`
        Logins      []LoginSession  `json:"logins,omitempty"`
    }
    resp := status{
        Scanners:    s.coord.Sessions(),
        Relay:       s.coord.Relay().Stats(),
        ControlAddr: s.coord.ListenAddr(),
        Events:      s.coord.Events().Recent(),
    }
    if user.Admin {
        resp.Logins = s.sessions.Active()
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(resp)
}

// handleOpen pulses the relay exactly like the control port's open command.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request, user User) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    s.coord.Events().Publish(Event{Type: EventCommand, Remote: "api:" + user.Username, Code: openCommand})
    if err := s.coord.Relay().Pulse(openPulse); err != nil {
        s.coord.Events().Publish(Event{Type: EventPulseError, Remote: "api:" + user.Username, Err: err.Error()})
        http.Error(w, "relay error", http.StatusServiceUnavailable)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// handleConfig changes the settings that apply without a restart.  Admins
// only.  Expected JSON, both fields optional:
// {"match_code":"...","pulse_ms":n}
// The change is saved to the config file and takes effect at once.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request, user User) {
    if r.Method != http.MethodPost {
        http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
        return
    }
    if !user.Admin {
        http.Error(w, "forbidden", http.StatusForbidden)
        return
    }
    var req struct {
        MatchCode *string `json:"match_code"`
        PulseMS   *int    `json:"pulse_ms"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid JSON", http.StatusBadRequest)
        return
    }
    err := s.cfgMgr.Update(func(c *Config) error {
        if req.MatchCode != nil {
            c.MatchCode = *req.MatchCode
        }
        if req.PulseMS != nil {
            c.PulseMS = *req.PulseMS
        }
        return nil
    })
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }
    // The file watcher sees the same change; the coordinator ignores the
    // second copy.
    next := s.coord.Config()
    saved := s.cfgMgr.Get()
    next.MatchCode = saved.MatchCode
    next.PulseMS = saved.PulseMS
    s.coord.ApplyConfig(next)
    s.logger.Log("config changed by %s", user.Username)
    w.WriteHeader(http.StatusNoContent)
}

// handleLogs returns the event log.  Admins only.  Accepts optional query parameter `lines=n` to limit number of lines returned.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, user User) {
    if !user.Admin {
        http.Error(w, "forbidden", http.StatusForbidden)
        return
    }
    linesParam := r.URL.Query().Get("lines")
    limit := 200
    if linesParam != "" {
        if n, err := strconv.Atoi(linesParam); err == nil && n > 0 {
            limit = n
        }
    }
    lines, err := s.logger.Tail(limit)
    if err != nil {
        http.Error(w, "log not found", http.StatusNotFound)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(lines)
}
