package main

import (
    "context"
    "errors"
    "fmt"
    "log"
    "os"
    "os/signal"
    "sync"
    "syscall"

    flag "github.com/spf13/pflag"
)

// version is overridable at link time:
//
//	go build -ldflags "-X main.version=1.1.0"
var version = "1.0.0"

// Entry point for the barrier door coordinator
func main() {
    if err := run(os.Args[1:]); err != nil {
        log.Fatalf("barrier: %v", err)
    }
}

func run(args []string) error {
    fs := flag.NewFlagSet("barrier", flag.ContinueOnError)
    configPath := fs.StringP("config", "c", defaultConfigPath, "Configuration file (.json or .toml)")
    listenAddr := fs.StringP("listen", "l", "", "Override the control port address")
    relayPin := fs.IntP("pin", "p", 0, "Override the relay GPIO pin (BCM numbering)")
    watch := fs.Bool("watch", true, "Reload the match code and pulse length when the config file changes")
    showVersion := fs.Bool("version", false, "Print version and exit")
    if err := fs.Parse(args); err != nil {
        if errors.Is(err, flag.ErrHelp) {
            return nil
        }
        return err
    }
    if *showVersion {
        fmt.Println("barrier", version)
        return nil
    }

    cfgMgr := NewConfigManager(*configPath)
    if err := cfgMgr.Load(); err != nil {
        return fmt.Errorf("failed to load configuration: %w", err)
    }
    cfg := cfgMgr.Get()
    if *listenAddr != "" {
        cfg.ListenAddr = *listenAddr
    }
    if *relayPin != 0 {
        cfg.RelayPin = *relayPin
    }

    line, err := openOutputPin(cfg.RelayPin)
    if err != nil {
        return fmt.Errorf("relay: %w", err)
    }
    logger := NewEventLogger(cfg.LogFile)
    coord, err := NewCoordinator(cfg, line, nil, logger)
    if err != nil {
        return fmt.Errorf("initialisation error: %w", err)
    }
    if err := coord.Start(); err != nil {
        return fmt.Errorf("startup: %w", err)
    }
    logger.Log("started with %d scanner(s)", len(cfg.Scanners))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    var wg sync.WaitGroup
    if *watch {
        wg.Add(1)
        go func() {
            defer wg.Done()
            apply := func(next Config) {
                // Flag overrides stay in force across reloads.
                if *listenAddr != "" {
                    next.ListenAddr = *listenAddr
                }
                if *relayPin != 0 {
                    next.RelayPin = *relayPin
                }
                coord.ApplyConfig(next)
            }
            err := cfgMgr.Watch(ctx, apply, func(err error) {
                coord.Events().Publish(Event{Type: EventConfigReload, Err: err.Error()})
            })
            if err != nil {
                log.Printf("config watch disabled: %v", err)
            }
        }()
    }
    if cfg.HTTPPort != 0 {
        srv := NewServer(cfgMgr, coord, logger)
        wg.Add(1)
        go func() {
            defer wg.Done()
            if err := srv.Start(ctx); err != nil {
                log.Printf("admin API exited: %v", err)
            }
        }()
    }

    err = coord.Run(ctx)
    wg.Wait()
    logger.Log("stopped")
    return err
}
