// Command evk-console talks to the EVK firmware console over a serial
// port: lines typed on stdin are sent as commands and board output is
// printed.
//
//	evk-console -config evk.yaml
//	EVK_PORT=/dev/ttyACM0 evk-console
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"bd18398-evk/host/console"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	envFile := flag.String("env", ".env", "environment file with EVK_* overrides")
	flag.Parse()

	if err := console.LoadEnv(*envFile); err != nil {
		log.Fatalf("env: %v", err)
	}
	cfg, err := console.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := console.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	port, err := console.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer port.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := console.NewSession(port, os.Stdout, cfg)
	go func() {
		if err := s.Echo(ctx); err != nil && ctx.Err() == nil {
			log.Printf("serial: %v", err)
			stop()
		}
	}()

	if err := s.Script(ctx, cfg.Startup); err != nil {
		log.Fatalf("startup script: %v", err)
	}
	go func() {
		if err := s.Forward(ctx, os.Stdin); err != nil && ctx.Err() == nil {
			log.Printf("stdin: %v", err)
		}
		stop()
	}()
	<-ctx.Done()
}
