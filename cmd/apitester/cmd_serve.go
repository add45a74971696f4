package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openbank/apitester/internal/server"
)

func serveCmd() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFlag := fs.String("config", "", "Path to a config YAML file")
	portFlag := fs.Int("port", 0, "Listen port (overrides config)")
	var auth authFlags
	fs.StringVar(&auth.username, "username", "", "DirectLogin/GatewayLogin username")
	fs.StringVar(&auth.password, "password", "", "DirectLogin password")
	fs.StringVar(&auth.consumerKey, "consumer-key", "", "DirectLogin consumer key")
	fs.StringVar(&auth.gatewaySecret, "gateway-secret", "", "GatewayLogin shared secret")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: apitester serve [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Start the JSON boundary server for test configurations and runs.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, *configFlag, auth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if *portFlag != 0 {
		a.cfg.Port = *portFlag
	}

	srv := server.New(a.cfg, a.profiles, a.service, a.runner, a.cache, a.logger)
	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
