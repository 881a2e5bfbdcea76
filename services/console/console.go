// Package console is a line-oriented command interface for the serial port
// or stdin.
//
//	apply 4,5,6
//	set esp32_chip_series ESP32_C3
//	set button_map "4:1, 5:2"
//	status
//	log debug
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"

	"gamepad-go/errcode"
	"gamepad-go/types"
	"gamepad-go/x/logx"
)

// Pad is the part of the pad service the console needs.
type Pad interface {
	Submit(ctx context.Context, key, value string) error
	Status() types.PadStatus
}

// Reply prefixes; padctl matches on them.
const (
	ReplyOK  = "ok"
	ReplyErr = "error"
)

type Console struct {
	pad Pad
}

func New(pad Pad) *Console { return &Console{pad: pad} }

// Serve reads commands from r and writes one reply line per command to w,
// until r is exhausted or ctx is cancelled.
func (c *Console) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := io.WriteString(w, c.Exec(ctx, line)+"\n"); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Exec runs one command line and returns the reply.
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return fail(errcode.InvalidParams, err.Error())
	}
	if len(args) == 0 {
		return ReplyOK
	}
	logx.Debug(logx.ComponentConsole, "command", "args", args)

	switch strings.ToLower(args[0]) {
	case "help", "?":
		return ReplyOK + " commands: apply <pins> | chip <series> | set <key> <value> | status | log <level>"
	case "apply":
		return c.submit(ctx, "apply", strings.Join(args[1:], ","))
	case "chip":
		if len(args) != 2 {
			return fail(errcode.InvalidParams, "usage: chip <series>")
		}
		return c.submit(ctx, "esp32_chip_series", args[1])
	case "set":
		if len(args) < 2 || len(args) > 3 {
			return fail(errcode.InvalidParams, "usage: set <key> [value]")
		}
		value := ""
		if len(args) == 3 {
			value = args[2]
		}
		return c.submit(ctx, args[1], value)
	case "status":
		b, err := json.Marshal(c.pad.Status())
		if err != nil {
			return fail(errcode.Error, err.Error())
		}
		return ReplyOK + " " + string(b)
	case "log":
		if len(args) != 2 {
			return fail(errcode.InvalidParams, "usage: log <debug|info|warn|error>")
		}
		logx.SetLevel(logx.ParseLevel(args[1]))
		return ReplyOK + " " + logx.Level().String()
	}
	return fail(errcode.Unsupported, "unknown command "+args[0])
}

func (c *Console) submit(ctx context.Context, key, value string) string {
	if err := c.pad.Submit(ctx, key, value); err != nil {
		return fail(errcode.Of(err), err.Error())
	}
	return ReplyOK
}

func fail(code errcode.Code, msg string) string {
	return fmt.Sprintf("%s %s: %s", ReplyErr, code, msg)
}
