package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const HelpMessage = `Delivery location tracking

Usage:
  tracking -mode <mode> [-config-path config.yaml] [flags]

Modes:
  delivery-service   HTTP/WebSocket delivery service (postgres, redis, rabbitmq)
  driver-agent       replays a track file through the sampler and publisher
                     (-delivery-id, AGENT_TOKEN, AGENT_TRACK_FILE)
  tracking-viewer    follows one delivery live until it is delivered or cancelled
                     (-delivery-id, VIEWER_TRANSPORT=websocket|rabbitmq)
  set-status         validates and applies a status transition (-delivery-id, -status)
  issue-token        prints a signed bearer token (-subject, -role)

Flags:
`

func PrintHelp() {
	fmt.Fprint(os.Stderr, HelpMessage)
	flag.PrintDefaults()
}

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	var b strings.Builder

	fmt.Fprintf(&b, "mode=%s log_level=%s\n", cfg.Mode, cfg.LogLevel)
	fmt.Fprintf(&b, "database: %s@%s:%s/%s password=%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database, mask(cfg.Database.Password))
	fmt.Fprintf(&b, "redis: %s db=%d location_ttl=%s\n", cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.LocationTTL)
	fmt.Fprintf(&b, "rabbitmq: %s@%s:%s password=%s\n", cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, mask(cfg.RabbitMQ.Password))
	fmt.Fprintf(&b, "services: delivery=%s agent=%s\n", cfg.Services.DeliveryService, cfg.Services.DriverAgent)
	fmt.Fprintf(&b, "auth: secret=%s ttl=%s\n", mask(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL)
	fmt.Fprintf(&b, "tracking: upgrade_after=%s backoff=%s max_retries=%d window=%s leading=%t\n",
		cfg.Tracking.UpgradeAfter, cfg.Tracking.TimeoutBackoff, cfg.Tracking.MaxRetries, cfg.Tracking.PublishWindow, cfg.Tracking.LeadingSend)
	fmt.Fprintf(&b, "agent: remote=%s track=%s token=%s\n", cfg.Agent.RemoteURL, cfg.Agent.TrackFile, mask(cfg.Agent.Token))
	fmt.Fprintf(&b, "viewer: transport=%s base=%s token=%s\n", cfg.Viewer.Transport, cfg.Viewer.BaseURL, mask(cfg.Viewer.Token))

	fmt.Fprint(os.Stderr, b.String())
}

func mask(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	return "****"
}
