package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wabridge/backend/internal/bridge"
	"github.com/wabridge/backend/internal/chat"
	"github.com/wabridge/backend/internal/config"
	"github.com/wabridge/backend/internal/session"
	"github.com/wabridge/backend/internal/ws"
)

func main() {
	demoMode := flag.Bool("demo", false, "Scripted messenger session with periodic disconnects")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) || *configPath != "config.yaml" {
			log.Fatalf("Failed to load config: %v", err)
		}
		// Default path absent: run on defaults.
		cfg = config.Default()
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	store := session.NewStore()
	broadcaster := ws.NewBroadcaster(store, cfg.Bridge.PingInterval, cfg.Server.MaxConnections)
	reconciler := bridge.New(cfg.Bridge, store, broadcaster, messengerDialer(*demoMode))
	server := ws.NewServer(store, broadcaster, reconciler, cfg.Server.AllowedOrigins, cfg.Server.AuthToken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.Run(ctx)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, ws.Handler(mux)); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// messengerDialer selects the session backend. The scripted dialer walks the
// real pairing flow in-process; -demo additionally drops the connection every
// couple of minutes so reconnect handling can be watched end to end.
func messengerDialer(demo bool) chat.Dialer {
	if demo {
		log.Println("Starting in demo mode (scripted session with periodic disconnects)")
		return chat.ScriptedDialer(chat.ScriptConfig{
			CloseAfter: 2 * time.Minute,
			CloseCause: chat.CauseConnLost,
		})
	}
	log.Println("Starting with scripted messenger session")
	return chat.ScriptedDialer(chat.ScriptConfig{})
}
