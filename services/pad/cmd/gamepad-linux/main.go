//go:build linux && !tinygo

// Command gamepad-linux runs the gamepad on a Linux host.
//
// On a board with GPIO, I2C and BlueZ:
//
//	gamepad-linux -config pad.toml
//
// Without hardware, buttons and pedals are simulated and reports are logged:
//
//	gamepad-linux -sim -toggle 4 -log-level debug
//
// Commands typed on stdin go to the pad console (try "help").
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamepad-go/bus"
	"gamepad-go/services/config"
	"gamepad-go/services/console"
	"gamepad-go/services/heartbeat"
	"gamepad-go/services/pad"
	"gamepad-go/services/pad/internal/platform/linux"
	"gamepad-go/services/pad/internal/platform/sim"
	"gamepad-go/services/pad/internal/pinset"
	"gamepad-go/services/webconfig"
	"gamepad-go/types"
	"gamepad-go/x/jsonx"
	"gamepad-go/x/logx"
)

func main() {
	cfgPath := flag.String("config", "", "TOML file overriding the embedded device config")
	device := flag.String("device", "host", "embedded config to start from")
	simulate := flag.Bool("sim", false, "simulate buttons, pedals and HID")
	toggle := flag.Int("toggle", -1, "with -sim, press and release this pin every second")
	addr := flag.String("addr", "", "web config listen address (overrides config/web)")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	format := flag.String("log-format", "text", "text or json")
	flag.Parse()

	logFormat := logx.FormatText
	if *format == "json" {
		logFormat = logx.FormatJSON
	}
	logx.SetOutput(os.Stderr, logFormat)
	logx.SetLevel(logx.ParseLevel(*level))

	fc, err := loadFile(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		deps pad.Deps
		opts = pad.Options{ChipSeries: "HOST"}
	)
	if *simulate {
		board := sim.New()
		board.Throttle.Set(0)
		board.Brake.Set(0)
		deps = board.Deps()
		opts.ChipSeries = ""
		if *toggle >= 0 && *toggle <= 255 {
			go board.Toggle(ctx, pinset.PinID(*toggle), time.Second)
		}
	} else {
		board, err := linux.Open(fc.Board.linux())
		if err != nil {
			logx.Error(logx.ComponentSystem, "hardware unavailable", "err", err)
			os.Exit(1)
		}
		defer board.Close()
		deps = board.Deps()
		opts.Throttle = linux.ADCCalibration
		opts.Brake = linux.ADCCalibration
	}

	b := bus.NewBus(64)

	cfgSvc := config.NewConfigService()
	cfgSvc.Overlay = fc.overlay()
	cfgSvc.Start(config.WithDevice(ctx, *device), b.NewConnection("config"))

	_ = heartbeat.New().Start(ctx, b.NewConnection("heartbeat"))

	padSvc := pad.New(b.NewConnection("pad"), deps, opts)
	padSvc.Start(ctx)

	conn := b.NewConnection("main")
	go logSleepRequests(ctx, conn)

	listen := *addr
	if listen == "" {
		listen = webAddr(ctx, conn, time.Second)
	}
	if listen != "" {
		go func() {
			if err := webconfig.New(padSvc).Serve(ctx, listen); err != nil {
				logx.Error(logx.ComponentWeb, "web config stopped", "err", err)
			}
		}()
	}

	go func() {
		if err := console.New(padSvc).Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
			logx.Warn(logx.ComponentConsole, "console closed", "err", err)
		}
	}()

	<-ctx.Done()
	logx.Info(logx.ComponentSystem, "shutting down")
	// Let services observe cancellation before the deferred Close.
	time.Sleep(100 * time.Millisecond)
}

type webConfig struct {
	Addr string `json:"addr"`
}

// webAddr waits up to wait for the retained config/web document.
func webAddr(ctx context.Context, conn *bus.Connection, wait time.Duration) string {
	sub := conn.Subscribe(bus.T("config", "web"))
	defer conn.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		var wc webConfig
		if err := jsonx.Decode(m.Payload, &wc); err != nil {
			logx.Warn(logx.ComponentWeb, "bad web config", "err", err)
			return ""
		}
		return wc.Addr
	case <-time.After(wait):
		logx.Info(logx.ComponentWeb, "no web config, web surface disabled")
	case <-ctx.Done():
	}
	return ""
}

// logSleepRequests reports the heartbeat's sleep requests; a Linux host has
// no deep sleep to enter.
func logSleepRequests(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(heartbeat.TopicSleep())
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			var req types.SleepRequest
			if err := jsonx.Decode(m.Payload, &req); err == nil {
				logx.Info(logx.ComponentSystem, "sleep requested, ignoring on host", "idle_ms", req.IdleMs, "reason", req.Reason)
			}
		}
	}
}
