// padctl sends console commands to a gamepad over a serial port.
//
//	padctl -port /dev/ttyUSB0 apply 4,5,6
//	padctl -port /dev/ttyUSB0 set button_map "4:1,5:2"
//	padctl -list
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.bug.st/serial"
)

func main() {
	port := flag.String("port", "", "serial port of the pad")
	baud := flag.Int("baud", 115200, "baud rate")
	timeout := flag.Duration("timeout", 2*time.Second, "reply timeout")
	list := flag.Bool("list", false, "list serial ports and exit")
	flag.Parse()

	if *list {
		ports, err := serial.GetPortsList()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list ports:", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	if *port == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: padctl -port <dev> <command> [args...]")
		os.Exit(2)
	}

	p, err := serial.Open(*port, &serial.Mode{BaudRate: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *port, err)
		os.Exit(1)
	}
	defer p.Close()
	if err := p.SetReadTimeout(*timeout); err != nil {
		fmt.Fprintln(os.Stderr, "set timeout:", err)
		os.Exit(1)
	}

	reply, err := roundTrip(p, quoteArgs(flag.Args()))
	if reply != "" {
		fmt.Println(reply)
	}
	if err != nil {
		if !errors.Is(err, errRemote) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
