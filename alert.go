package main

// This file defines pluggable alert handlers for events an operator has to
// act on, currently a scanner that disappeared while running.

import (
    "fmt"
    "net/smtp"
    "strings"
)

// AlertHandler represents a mechanism that can send an alert for an event.
// Implementations may deliver notifications via email, SMS or other
// channels.  The Send method receives the event and a logger to record any
// diagnostics.  If an error is returned, the caller should log it but
// continue operation.
type AlertHandler interface {
    Name() string
    Send(ev Event, logger *EventLogger) error
}

// LogAlert logs a simple message to the event logger.
// This is the default alert handler if no other alerts are configured.
type LogAlert struct{}

// Name returns the type name of the alert handler.
func (LogAlert) Name() string { return "log" }

// Send writes an alert to the event log.
func (LogAlert) Send(ev Event, logger *EventLogger) error {
    logger.Log("alert: %s", describeAlert(ev))
    return nil
}

// EmailAlert sends an email via an SMTP server.  All configuration values
// are supplied via the corresponding AlertConfig.  The subject defaults to
// "Barrier alert" if empty.
type EmailAlert struct {
    SMTPServer string
    SMTPPort   int
    Username   string
    Password   string
    From       string
    To         string
    Subject    string
}

// Name returns the type name of the alert handler.
func (EmailAlert) Name() string { return "email" }

// Send dispatches an email.  It composes a minimal plaintext message with a
// subject and body describing the event.  Errors from smtp.SendMail are
// returned directly so the caller can log them.
func (e EmailAlert) Send(ev Event, logger *EventLogger) error {
    subject := e.Subject
    if subject == "" {
        subject = "Barrier alert"
    }
    body := describeAlert(ev)
    // Compose headers and body.  RFC 5322 requires CRLF line endings.
    msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", e.To, subject, body)
    addr := fmt.Sprintf("%s:%d", e.SMTPServer, e.SMTPPort)
    auth := smtp.PlainAuth("", e.Username, e.Password, e.SMTPServer)
    return smtp.SendMail(addr, auth, e.From, []string{e.To}, []byte(msg))
}

// describeAlert renders the one-line text used by every handler.
func describeAlert(ev Event) string {
    switch ev.Type {
    case EventDeviceLost:
        return fmt.Sprintf("scanner %s (%s) stopped at %s and will not be reopened: %s",
            ev.Device, ev.Direction, ev.Time.Format("2006-01-02 15:04:05"), ev.Err)
    default:
        return fmt.Sprintf("%s %s %s", ev.Type, ev.Device, ev.Err)
    }
}

// alertable reports whether an event should reach the alert handlers.
func alertable(ev Event) bool {
    return ev.Type == EventDeviceLost
}

// initAlertHandlers constructs a slice of AlertHandler instances from the
// provided configuration.  If cfg.Alerts is empty, a single LogAlert is
// returned to ensure that alerts are always recorded.
func initAlertHandlers(cfg Config) []AlertHandler {
    var handlers []AlertHandler
    for _, ac := range cfg.Alerts {
        switch strings.ToLower(ac.Type) {
        case "log":
            handlers = append(handlers, LogAlert{})
        case "email":
            handlers = append(handlers, EmailAlert{
                SMTPServer: ac.SMTPServer,
                SMTPPort:   ac.SMTPPort,
                Username:   ac.Username,
                Password:   ac.Password,
                From:       ac.From,
                To:         ac.To,
                Subject:    ac.Subject,
            })
        }
    }
    if len(handlers) == 0 {
        handlers = append(handlers, LogAlert{})
    }
    return handlers
}
