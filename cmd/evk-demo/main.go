//go:build rp2040

// Command evk-demo is the BD18398 evaluation-kit firmware for the RP2040
// carrier.
//
// Build/flash (TinyGo):
//
//	tinygo flash -target pico ./cmd/evk-demo
//
// Wiring: see platform.DefaultSetup. Log output and the command console
// share UART0 at 115200 baud.
package main

import (
	"context"
	"time"

	"bd18398-evk/drivers/bd18398"
	"bd18398-evk/platform"
	"bd18398-evk/services/evk"
	"bd18398-evk/x/logx"
	"bd18398-evk/x/timex"
)

func main() {
	// Allow the host side of the UART to attach before we print.
	time.Sleep(2 * time.Second)

	board, err := platform.NewPico(platform.DefaultSetup)
	if err != nil {
		println("[main] board init failed:", err.Error())
		return
	}
	log := logx.Std()
	log.Printf("\r\n== BD18398 EVK demo ==\r\n")

	clk := timex.NewSystem()
	dev := bd18398.New(board.Transport(), bd18398.Config{Logf: log})
	demo := evk.New(dev, board, clk, evk.Config{Logf: log})

	if err := demo.Setup(); err != nil {
		log.Printf("[main] continuing after bring-up failure\r\n")
	}
	if err := board.AttachButton(demo.Button()); err != nil {
		log.Printf("[main] button: %s\r\n", err.Error())
	}

	ctx := context.Background()
	demo.Input(board.Console(ctx))
	demo.Run(ctx)
}
