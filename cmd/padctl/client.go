package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"gamepad-go/services/console"
)

// errRemote marks a command the pad rejected.
var errRemote = errors.New("pad rejected command")

// roundTrip writes one command line and reads the single reply line.
func roundTrip(rw io.ReadWriter, cmd string) (string, error) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "", errors.New("empty command")
	}
	if _, err := io.WriteString(rw, cmd+"\n"); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(rw).ReadString('\n')
	line = strings.TrimRight(line, "\r\n\x00")
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	if strings.HasPrefix(line, console.ReplyErr) {
		return line, errRemote
	}
	return line, nil
}

// quoteArgs rebuilds a console line from argv, quoting arguments that
// contain spaces.
func quoteArgs(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		out[i] = a
	}
	return strings.Join(out, " ")
}
