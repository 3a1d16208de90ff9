// Command secdgram-client is a reference secdgram client.
//
// It connects to a secdgram server over UDP, performs a DTLS handshake
// authenticated by a pre-shared key, and keeps the session alive with
// periodic pings. Server responses are printed as they arrive.
//
// Usage:
//
//	secdgram-client [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-server string       Server address as host:port
//	-discover string     Resolve the server by mDNS instance name instead
//	-name string         Client name, also the PSK identity (default "alice")
//	-psk string          Pre-shared key as hex (default: demo key)
//	-passphrase string   Derive the key from a passphrase instead of -psk
//	-keepalive duration  Ping interval (default 5s)
//	-session-log string  Write a CBOR session log to this file
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Enable interactive command mode
//	-reconnect           Redial with backoff when the session ends
//
// Examples:
//
//	# Connect to a local server with the demo key
//	secdgram-client -server 127.0.0.1:22445
//
//	# Find the server via mDNS and keep redialing
//	secdgram-client -discover living-room -reconnect
//
//	# Interactive mode with a derived key and a session log
//	secdgram-client -server 10.0.0.5:22445 -passphrase "correct horse" \
//	    -interactive -session-log session.sdlog
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/secdgram/secdgram-go/cmd/secdgram-client/interactive"
	"github.com/secdgram/secdgram-go/pkg/assoc"
	"github.com/secdgram/secdgram-go/pkg/connection"
	"github.com/secdgram/secdgram-go/pkg/discovery"
	"github.com/secdgram/secdgram-go/pkg/engine"
	sdlog "github.com/secdgram/secdgram-go/pkg/log"
	"github.com/secdgram/secdgram-go/pkg/psk"
	"github.com/secdgram/secdgram-go/pkg/transport"
)

const (
	defaultClientName = "alice"
	defaultLogLevel   = "info"
)

// clientConfig holds the resolved client configuration.
type clientConfig struct {
	ConfigFile        string
	Server            string
	Discover          string
	Name              string
	PSK               string
	Passphrase        string
	KeepaliveInterval time.Duration
	SessionLog        string
	LogLevel          string
	Interactive       bool
	Reconnect         bool
}

var config clientConfig

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.Server, "server", "", "Server address as host:port")
	flag.StringVar(&config.Discover, "discover", "", "Resolve the server by mDNS instance name")
	flag.StringVar(&config.Name, "name", defaultClientName, "Client name, also the PSK identity")
	flag.StringVar(&config.PSK, "psk", "", "Pre-shared key as hex")
	flag.StringVar(&config.Passphrase, "passphrase", "", "Derive the key from a passphrase")
	flag.DurationVar(&config.KeepaliveInterval, "keepalive", 0, "Ping interval")
	flag.StringVar(&config.SessionLog, "session-log", "", "Write a CBOR session log to this file")
	flag.StringVar(&config.LogLevel, "log-level", defaultLogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&config.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&config.Reconnect, "reconnect", false, "Redial with backoff when the session ends")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		file, err := loadFileConfig(config.ConfigFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		config.merge(file)
	}

	logger := setupLogging(config.LogLevel)

	if config.Server == "" && config.Discover == "" {
		log.Fatal("Either -server or -discover is required")
	}

	provider, err := buildProvider()
	if err != nil {
		log.Fatalf("Invalid key configuration: %v", err)
	}

	sessionLogger, closeLog, err := buildSessionLogger(logger)
	if err != nil {
		log.Fatalf("Failed to open session log: %v", err)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	address := config.Server
	if config.Discover != "" {
		address, err = resolveServer(ctx, config.Discover)
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		log.Printf("Resolved %s to %s", config.Discover, address)
	}

	log.Printf("secdgram client %q connecting to %s", config.Name, address)

	dial := func(ctx context.Context) (connection.Session, error) {
		return dialSession(ctx, address, provider, sessionLogger, logger)
	}

	var current atomic.Pointer[assoc.Association]
	setSession := func(s connection.Session) {
		if a, ok := s.(*assoc.Association); ok {
			current.Store(a)
		}
	}

	if config.Reconnect {
		sup := connection.NewSupervisor(dial)
		sup.OnSession(setSession)
		sup.OnRetry(func(attempt int, delay time.Duration) {
			log.Printf("Redial attempt %d in %v", attempt, delay)
		})
		if err := sup.Run(ctx); err != nil {
			log.Fatalf("Failed to start supervisor: %v", err)
		}
		defer sup.Close()
	} else {
		session, err := dial(ctx)
		if err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		setSession(session)
		defer session.Close()
	}

	if config.Interactive {
		ic, err := interactive.New(current.Load)
		if err != nil {
			log.Fatalf("Failed to create interactive client: %v", err)
		}
		// Redirect log output through readline to avoid interfering with input
		log.SetOutput(ic.Stdout())
		go ic.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
}

// dialSession builds a fresh transport, engine and association, starts it
// and triggers the handshake.
func dialSession(ctx context.Context, address string, provider psk.Provider, sessionLogger sdlog.Logger, logger *slog.Logger) (connection.Session, error) {
	udp := transport.NewUDP(transport.UDPConfig{Address: address})

	eng, err := engine.NewPion(engine.PionOptions{
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		udp.Close()
		return nil, err
	}

	a, err := assoc.New(assoc.Config{
		Name:              config.Name,
		Transport:         udp,
		Engine:            eng,
		KeepaliveInterval: config.KeepaliveInterval,
		SessionLogger:     sessionLogger,
	})
	if err != nil {
		udp.Close()
		return nil, err
	}
	a.OnEvent(printEvent)

	if err := a.Start(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.StartHandshake(); err != nil {
		a.Close()
		return nil, err
	}
	if err := udp.Connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// buildProvider resolves the key material from flags.
func buildProvider() (psk.Provider, error) {
	if config.PSK != "" && config.Passphrase != "" {
		return nil, fmt.Errorf("use either -psk or -passphrase, not both")
	}

	key := psk.DefaultKey()
	switch {
	case config.PSK != "":
		parsed, err := psk.ParseKey(config.PSK)
		if err != nil {
			return nil, err
		}
		key = parsed
	case config.Passphrase != "":
		key = psk.DeriveKey(config.Passphrase, config.Name)
	}

	return psk.NewStatic(config.Name, key)
}

// buildSessionLogger opens the session log file when configured.
func buildSessionLogger(logger *slog.Logger) (sdlog.Logger, func(), error) {
	loggers := []sdlog.Logger{sdlog.NewSlogAdapter(logger)}

	closeLog := func() {}
	if config.SessionLog != "" {
		fileLogger, err := sdlog.NewFileLogger(config.SessionLog)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fileLogger)
		closeLog = func() { _ = fileLogger.Close() }
	}

	return sdlog.NewMultiLogger(loggers...), closeLog, nil
}

// resolveServer finds a server by its mDNS instance name.
func resolveServer(ctx context.Context, instance string) (string, error) {
	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	svc, err := browser.Resolve(ctx, instance)
	if err != nil {
		return "", err
	}
	return svc.Addr(), nil
}

func setupLogging(level string) *slog.Logger {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}

func printEvent(event assoc.Event) {
	switch event.Type {
	case assoc.EventInfo:
		log.Printf("[INFO] %s", event.Message)
	case assoc.EventWarning:
		log.Printf("[WARN] %s", event.Message)
	case assoc.EventError:
		log.Printf("[ERROR] %s", event.Message)
	case assoc.EventServerResponse:
		log.Printf("[SERVER] %s", event.Plaintext)
	}
}
