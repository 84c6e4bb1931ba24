// Command evk-sim runs the BD18398 demo on the host against a simulated
// IC. Console commands are read from stdin; "press" advances the demo and
// "fault", "supply" and "clear" inject IC faults.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/platform"
	"bd18398-evk/services/evk"
	"bd18398-evk/x/logx"
	"bd18398-evk/x/timex"
)

func main() {
	idle := flag.Duration("idle", time.Millisecond, "sleep between loop iterations")
	current := flag.Uint("current", bd18398.DefaultMaxCurrentMA, "per-channel current limit in mA")
	report := flag.Bool("report", true, "print fault bit changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logx.To(os.Stdout)
	clk := timex.NewSystem()
	host := platform.NewHost(clk, log.With("[board] "))
	dev := bd18398.New(host.Transport(), bd18398.Config{Logf: log})
	demo := evk.New(dev, host, clk, evk.Config{
		MaxCurrentMA:       uint32(*current),
		ReportErrorChanges: *report,
		AliveEvery:         10000,
		Idle:               *idle,
		Logf:               log,
	})
	if err := demo.Setup(); err != nil {
		log.Printf("[main] bring-up: %s\r\n", err.Error())
	}
	host.RegisterCommands(demo.Console())
	demo.Input(host.Console(ctx, os.Stdin))

	log.Printf("[main] type 'help' for commands\r\n")
	demo.Run(ctx)
}
