// hadiscovery publishes Home Assistant MQTT discovery documents for the
// devices declared in its configuration and keeps their command-backed
// entities updated.
//
// Commands:
//
//	hadiscovery run        connect, publish discovery and run probes until signalled
//	hadiscovery discovery  print the discovery documents without connecting
//	hadiscovery version    print build information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Build information, stamped with
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%F)"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "HADISCOVERY_CONFIG"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hadiscovery:", err)
		os.Exit(1)
	}
}

// configPathFromEnv returns $HADISCOVERY_CONFIG, or the default path when
// it is unset.
func configPathFromEnv() string {
	if path, ok := os.LookupEnv(configEnv); ok && path != "" {
		return path
	}
	return defaultConfigPath
}
