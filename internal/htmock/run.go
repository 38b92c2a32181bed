package htmock

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pkt.systems/htx/core"
	"pkt.systems/htx/schema"
)

// Run speaks the engine's stdio contract: it parses the engine's own
// flag syntax, spawns the target command, answers JSON commands on
// stdin with JSON events on stdout, and returns a process exit code.
// It exists so the CLI can pose as a real engine binary.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	req, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "ht-mock: %v\n", err)
		return 2
	}
	handle, err := NewEngine().Spawn(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "ht-mock: %v\n", err)
		return 1
	}
	defer handle.Close()

	enc := json.NewEncoder(stdout)
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		stream := handle.Events()
		for {
			ev, err := stream.Next(ctx)
			if err != nil {
				return
			}
			if err := enc.Encode(wireEvent(ev)); err != nil {
				return
			}
		}
	}()

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cmd schema.Command
		if err := json.Unmarshal([]byte(line), &cmd); err != nil {
			fmt.Fprintf(stderr, "ht-mock: bad command line: %v\n", err)
			return 1
		}
		if err := handle.Send(ctx, cmd); err != nil {
			if errors.Is(err, schema.ErrChannelClosed) {
				break
			}
			fmt.Fprintf(stderr, "ht-mock: %v\n", err)
			return 1
		}
		if cmd.Type == schema.CommandExit {
			break
		}
	}
	// Stdin EOF without an exit command still winds the engine down,
	// matching the real binary; otherwise the event stream never ends.
	_ = handle.Close()
	<-writeDone
	return 0
}

// wireEvent reshapes an event for serialization, since Raw is not
// round-tripped and exited codes live at the top level already.
func wireEvent(ev schema.Event) schema.Event {
	ev.Raw = nil
	return ev
}

func parseArgs(args []string) (core.SpawnRequest, error) {
	var req core.SpawnRequest
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--subscribe":
			if i+1 >= len(args) {
				return req, errors.New("--subscribe requires a value")
			}
			req.Subscribe = strings.Split(args[i+1], ",")
			i += 2
		case arg == "--size":
			if i+1 >= len(args) {
				return req, errors.New("--size requires a value")
			}
			cols, rows, err := parseSize(args[i+1])
			if err != nil {
				return req, err
			}
			req.Cols, req.Rows = cols, rows
			i += 2
		case arg == "--no-exit":
			req.NoExit = true
			i++
		case arg == "--":
			req.Command = args[i+1:]
			i = len(args)
		case strings.HasPrefix(arg, "--"):
			return req, fmt.Errorf("unknown flag %q", arg)
		default:
			req.Command = args[i:]
			i = len(args)
		}
	}
	if len(req.Command) == 0 {
		return req, schema.ErrEmptyCommand
	}
	return req, nil
}

// parseSize reads the engine's COLSxROWS size syntax.
func parseSize(value string) (cols, rows int, err error) {
	parts := strings.SplitN(value, "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("size %q: want COLSxROWS", value)
	}
	cols, err = strconv.Atoi(parts[0])
	if err == nil {
		rows, err = strconv.Atoi(parts[1])
	}
	if err != nil || cols <= 0 || rows <= 0 {
		return 0, 0, fmt.Errorf("size %q: want positive COLSxROWS", value)
	}
	return cols, rows, nil
}
