//go:build tinygo

// Command gamepad-mcu: BLE HID gamepad firmware.
//
// Build/flash (TinyGo):
//
//	tinygo flash -target <board> ./services/pad/cmd/gamepad-mcu
//
// Wiring assumptions (edit in board as needed):
//   - Buttons to ground on the pins in the embedded config, internal pull-ups.
//   - Throttle pot on ADC pin A0, brake pot on A1.
//
// The serial console accepts the same commands as padctl sends.
package main

import (
	"context"
	"machine"
	"os"
	"time"

	"gamepad-go/bus"
	"gamepad-go/services/config"
	"gamepad-go/services/console"
	"gamepad-go/services/heartbeat"
	"gamepad-go/services/pad"
	"gamepad-go/services/pad/internal/platform/mcu"
	"gamepad-go/types"
	"gamepad-go/x/jsonx"
	"gamepad-go/x/logx"
)

const device = "esp32s3-devkit"

func main() {
	time.Sleep(2 * time.Second)
	logx.Info(logx.ComponentSystem, "gamepad firmware starting", "device", device)

	board, err := mcu.Open(mcu.Config{ThrottlePin: machine.ADC0, BrakePin: machine.ADC1})
	if err != nil {
		logx.Error(logx.ComponentSystem, "board init failed", "err", err)
		for {
			time.Sleep(time.Second)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(32)
	config.NewConfigService().Start(config.WithDevice(ctx, device), b.NewConnection("config"))
	_ = heartbeat.New().Start(ctx, b.NewConnection("heartbeat"))

	padSvc := pad.New(b.NewConnection("pad"), board.Deps(), pad.Options{})
	padSvc.Start(ctx)

	go func() {
		_ = console.New(padSvc).Serve(ctx, os.Stdin, os.Stdout)
	}()

	conn := b.NewConnection("main")
	sleepSub := conn.Subscribe(heartbeat.TopicSleep())
	for m := range sleepSub.Channel() {
		var req types.SleepRequest
		if err := jsonx.Decode(m.Payload, &req); err == nil {
			// No portable deep-sleep API in machine; keep advertising.
			logx.Warn(logx.ComponentSystem, "sleep requested", "idle_ms", req.IdleMs)
		}
	}
}
